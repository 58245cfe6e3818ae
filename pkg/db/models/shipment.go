package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tracelinehq/traceline-backend/pkg/enums"
)

// Shipment is an outbound order moving through the fulfillment pipeline.
// Status only moves forward; timestamps are stamped on the transition in.
type Shipment struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID            `gorm:"column:organization_id;type:uuid;not null;uniqueIndex:idx_shipments_org_number"`
	ShipmentNumber string               `gorm:"column:shipment_number;not null;uniqueIndex:idx_shipments_org_number"`
	Status         enums.ShipmentStatus `gorm:"column:status;type:shipment_status;not null;default:'draft'"`
	Origin         string               `gorm:"column:origin;not null"`
	Destination    string               `gorm:"column:destination;not null"`
	Carrier        *string              `gorm:"column:carrier"`
	TrackingNumber *string              `gorm:"column:tracking_number"`
	Notes          *string              `gorm:"column:notes"`
	CreatedBy      uuid.UUID            `gorm:"column:created_by;type:uuid;not null"`
	ConfirmedAt    *time.Time           `gorm:"column:confirmed_at"`
	ShippedAt      *time.Time           `gorm:"column:shipped_at"`
	DeliveredAt    *time.Time           `gorm:"column:delivered_at"`
	CancelledAt    *time.Time           `gorm:"column:cancelled_at"`
	Lines          []ShipmentLine       `gorm:"foreignKey:ShipmentID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
