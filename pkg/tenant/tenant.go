package tenant

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracelinehq/traceline-backend/pkg/errors"
)

// Context identifies the organization and acting user for one request.
// Every service operation receives one and every query is scoped by it.
type Context struct {
	OrganizationID uuid.UUID
	ActorUserID    uuid.UUID
}

// Validate rejects a zero organization or actor before any data access runs.
func (c Context) Validate() error {
	if c.OrganizationID == uuid.Nil {
		return errors.New(errors.CodeValidation, "organization id is required")
	}
	if c.ActorUserID == uuid.Nil {
		return errors.New(errors.CodeValidation, "actor user id is required")
	}
	return nil
}

// Scope restricts a query to rows owned by the organization.
func Scope(organizationID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("organization_id = ?", organizationID)
	}
}

// Guard verifies a loaded row belongs to the caller's organization.
func Guard(c Context, ownerOrganizationID uuid.UUID) error {
	if c.OrganizationID != ownerOrganizationID {
		return errors.New(errors.CodeTenantMismatch, "resource belongs to another organization")
	}
	return nil
}
