package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BOMLine links a component product into a parent revision's bill of
// materials. ParentProductID is denormalized from the revision to keep
// cycle checks to a single table scan.
type BOMLine struct {
	ID                  uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID      uuid.UUID       `gorm:"column:organization_id;type:uuid;not null"`
	RevisionID          uuid.UUID       `gorm:"column:revision_id;type:uuid;not null;uniqueIndex:idx_bom_lines_revision_component;uniqueIndex:idx_bom_lines_revision_position"`
	ParentProductID     uuid.UUID       `gorm:"column:parent_product_id;type:uuid;not null"`
	ComponentProductID  uuid.UUID       `gorm:"column:component_product_id;type:uuid;not null;uniqueIndex:idx_bom_lines_revision_component"`
	PositionNumber      int             `gorm:"column:position_number;not null;uniqueIndex:idx_bom_lines_revision_position"`
	Quantity            decimal.Decimal `gorm:"column:quantity;type:numeric(14,4);not null"`
	Unit                string          `gorm:"column:unit;not null;default:'ea'"`
	ReferenceDesignator *string         `gorm:"column:reference_designator"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
