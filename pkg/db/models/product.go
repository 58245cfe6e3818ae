package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tracelinehq/traceline-backend/pkg/enums"
)

// Product is a catalog item owned by one organization. SKU is unique per
// organization. CurrentRevisionID points at the released revision in effect.
type Product struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID    uuid.UUID           `gorm:"column:organization_id;type:uuid;not null;uniqueIndex:idx_products_org_sku"`
	SKU               string              `gorm:"column:sku;not null;uniqueIndex:idx_products_org_sku"`
	Name              string              `gorm:"column:name;not null"`
	Description       *string             `gorm:"column:description"`
	Status            enums.ProductStatus `gorm:"column:status;type:product_status;not null;default:'development'"`
	CurrentRevisionID *uuid.UUID          `gorm:"column:current_revision_id;type:uuid"`
	Revisions         []ProductRevision   `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
