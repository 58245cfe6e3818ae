package catalog

import (
	"github.com/google/uuid"

	"github.com/tracelinehq/traceline-backend/pkg/db/models"
	"github.com/tracelinehq/traceline-backend/pkg/enums"
	"github.com/tracelinehq/traceline-backend/pkg/pagination"
)

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	SKU         string  `validate:"required,max=64"`
	Name        string  `validate:"required,max=255"`
	Description *string `validate:"omitempty,max=4000"`
}

// UpdateProductInput holds optional mutation values for a product.
// Status changes go through ChangeStatus, not here.
type UpdateProductInput struct {
	Name        *string `validate:"omitempty,min=1,max=255"`
	Description *string `validate:"omitempty,max=4000"`
}

// CreateRevisionInput holds the payload to open a new draft revision.
type CreateRevisionInput struct {
	RevisionNumber string  `validate:"required,max=32"`
	Notes          *string `validate:"omitempty,max=4000"`
}

// ListProductsInput filters and paginates the product list.
type ListProductsInput struct {
	Status     *enums.ProductStatus
	Query      string
	Pagination pagination.Params
}

// ProductListResult is one page of products plus the cursor for the next.
type ProductListResult struct {
	Products   []models.Product
	NextCursor string
}

type productCreatedData struct {
	SKU    string              `json:"sku"`
	Name   string              `json:"name"`
	Status enums.ProductStatus `json:"status"`
}

type productUpdatedData struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

type productStatusChangedData struct {
	From enums.ProductStatus `json:"from"`
	To   enums.ProductStatus `json:"to"`
}

type revisionCreatedData struct {
	RevisionID     uuid.UUID `json:"revisionId"`
	RevisionNumber string    `json:"revisionNumber"`
}

type revisionReleasedData struct {
	RevisionID         uuid.UUID            `json:"revisionId"`
	RevisionNumber     string               `json:"revisionNumber"`
	From               enums.RevisionStatus `json:"from"`
	To                 enums.RevisionStatus `json:"to"`
	Promoted           bool                 `json:"promoted"`
	PreviousRevisionID *uuid.UUID           `json:"previousRevisionId,omitempty"`
}
