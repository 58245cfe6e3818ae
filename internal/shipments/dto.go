package shipments

import (
	"github.com/google/uuid"

	"github.com/tracelinehq/traceline-backend/pkg/db/models"
	"github.com/tracelinehq/traceline-backend/pkg/enums"
	"github.com/tracelinehq/traceline-backend/pkg/pagination"
)

// CreateShipmentInput holds the validated payload to open a draft shipment.
type CreateShipmentInput struct {
	ShipmentNumber string                      `validate:"required,max=64"`
	Origin         string                      `validate:"required,max=64"`
	Destination    string                      `validate:"required,max=255"`
	Carrier        *string                     `validate:"omitempty,max=255"`
	Notes          *string                     `validate:"omitempty,max=4000"`
	Lines          []CreateShipmentLineInput   `validate:"required,min=1,dive"`
}

// CreateShipmentLineInput is one product on a new shipment.
type CreateShipmentLineInput struct {
	ProductID  uuid.UUID `validate:"required"`
	PlannedQty int64     `validate:"required,min=1"`
}

// LineQuantityInput overrides the quantity recorded for one line during
// picking or packing. Lines not listed default to the full prior stage.
type LineQuantityInput struct {
	LineID   uuid.UUID `validate:"required"`
	Quantity int64     `validate:"min=0"`
}

// PickInput records picked quantities.
type PickInput struct {
	Lines []LineQuantityInput `validate:"omitempty,dive"`
}

// PackInput records packed quantities.
type PackInput struct {
	Lines []LineQuantityInput `validate:"omitempty,dive"`
}

// ShipInput finalizes the outbound handoff.
type ShipInput struct {
	TrackingNumber *string `validate:"omitempty,max=255"`
}

// ListShipmentsInput filters and paginates the shipment list.
type ListShipmentsInput struct {
	Status     *enums.ShipmentStatus
	Pagination pagination.Params
}

// ShipmentListResult is one page of shipments plus the cursor for the next.
type ShipmentListResult struct {
	Shipments  []models.Shipment
	NextCursor string
}

type shipmentLineData struct {
	LineID     uuid.UUID `json:"lineId"`
	ProductID  uuid.UUID `json:"productId"`
	PlannedQty int64     `json:"plannedQty"`
}

type shipmentCreatedData struct {
	ShipmentNumber string             `json:"shipmentNumber"`
	Origin         string             `json:"origin"`
	Destination    string             `json:"destination"`
	Lines          []shipmentLineData `json:"lines"`
}

type shipmentTransitionData struct {
	From           enums.ShipmentStatus `json:"from"`
	To             enums.ShipmentStatus `json:"to"`
	TrackingNumber *string              `json:"trackingNumber,omitempty"`
}

type shipmentDeletedData struct {
	ShipmentNumber string               `json:"shipmentNumber"`
	Status         enums.ShipmentStatus `json:"status"`
}
