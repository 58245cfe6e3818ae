package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tracelinehq/traceline-backend/pkg/enums"
)

// ProductRevision is one versioned definition of a product. Only draft
// revisions accept BOM edits; ReleasedAt/ReleasedBy are stamped once.
type ProductRevision struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID            `gorm:"column:organization_id;type:uuid;not null"`
	ProductID      uuid.UUID            `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_revisions_product_number"`
	RevisionNumber string               `gorm:"column:revision_number;not null;uniqueIndex:idx_revisions_product_number"`
	Status         enums.RevisionStatus `gorm:"column:status;type:revision_status;not null;default:'draft'"`
	Notes          *string              `gorm:"column:notes"`
	CreatedBy      uuid.UUID            `gorm:"column:created_by;type:uuid;not null"`
	ReleasedAt     *time.Time           `gorm:"column:released_at"`
	ReleasedBy     *uuid.UUID           `gorm:"column:released_by;type:uuid"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
