package bom

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AddLineInput holds the validated payload to add a component line.
type AddLineInput struct {
	ComponentProductID  uuid.UUID `validate:"required"`
	PositionNumber      int       `validate:"required,min=1"`
	Quantity            decimal.Decimal
	Unit                string  `validate:"omitempty,max=16"`
	ReferenceDesignator *string `validate:"omitempty,max=255"`
}

// UpdateLineInput holds optional mutation values for a component line.
type UpdateLineInput struct {
	PositionNumber      *int `validate:"omitempty,min=1"`
	Quantity            *decimal.Decimal
	Unit                *string `validate:"omitempty,max=16"`
	ReferenceDesignator *string `validate:"omitempty,max=255"`
}

// ExplodedLine is one row of a multi-level BOM walk. Quantity is the line's
// own value; ExtendedQuantity multiplies through every parent on the path.
type ExplodedLine struct {
	ComponentProductID uuid.UUID
	RevisionID         uuid.UUID
	PositionNumber     int
	Level              int
	Quantity           decimal.Decimal
	ExtendedQuantity   decimal.Decimal
	Unit               string
}

type lineAddedData struct {
	LineID             uuid.UUID       `json:"lineId"`
	ComponentProductID uuid.UUID       `json:"componentProductId"`
	PositionNumber     int             `json:"positionNumber"`
	Quantity           decimal.Decimal `json:"quantity"`
	Unit               string          `json:"unit"`
}

type lineUpdatedData struct {
	LineID         uuid.UUID        `json:"lineId"`
	PositionNumber *int             `json:"positionNumber,omitempty"`
	Quantity       *decimal.Decimal `json:"quantity,omitempty"`
	Unit           *string          `json:"unit,omitempty"`
}

type lineRemovedData struct {
	LineID             uuid.UUID `json:"lineId"`
	ComponentProductID uuid.UUID `json:"componentProductId"`
}
