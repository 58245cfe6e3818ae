package models

import (
	"time"

	"github.com/google/uuid"
)

// ShipmentLine is one product on a shipment. Picked may not exceed planned
// and packed may not exceed picked.
type ShipmentLine struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID `gorm:"column:organization_id;type:uuid;not null"`
	ShipmentID     uuid.UUID `gorm:"column:shipment_id;type:uuid;not null;uniqueIndex:idx_shipment_lines_shipment_product"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_shipment_lines_shipment_product"`
	PlannedQty     int64     `gorm:"column:planned_qty;not null"`
	PickedQty      int64     `gorm:"column:picked_qty;not null;default:0"`
	PackedQty      int64     `gorm:"column:packed_qty;not null;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
