package bom

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracelinehq/traceline-backend/pkg/db/models"
	"github.com/tracelinehq/traceline-backend/pkg/tenant"
)

// Repository manages persistence for BOM lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateLine(ctx context.Context, line *models.BOMLine) error
	SaveLine(ctx context.Context, line *models.BOMLine) error
	DeleteLine(ctx context.Context, organizationID, lineID uuid.UUID) error
	FindLineByID(ctx context.Context, organizationID, lineID uuid.UUID) (*models.BOMLine, error)
	ListLinesByRevision(ctx context.Context, organizationID, revisionID uuid.UUID) ([]models.BOMLine, error)
	ListComponentsOf(ctx context.Context, organizationID uuid.UUID, parentProductIDs []uuid.UUID) ([]uuid.UUID, error)
	FindProductByID(ctx context.Context, organizationID, productID uuid.UUID) (*models.Product, error)
	FindRevisionByID(ctx context.Context, organizationID, revisionID uuid.UUID) (*models.ProductRevision, error)
	ListEvents(ctx context.Context, organizationID, revisionID uuid.UUID) ([]models.BOMEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a BOM repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateLine(ctx context.Context, line *models.BOMLine) error {
	return r.db.WithContext(ctx).Create(line).Error
}

func (r *repository) SaveLine(ctx context.Context, line *models.BOMLine) error {
	return r.db.WithContext(ctx).Save(line).Error
}

func (r *repository) DeleteLine(ctx context.Context, organizationID, lineID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Scopes(tenant.Scope(organizationID)).
		Where("id = ?", lineID).
		Delete(&models.BOMLine{}).Error
}

func (r *repository) FindLineByID(ctx context.Context, organizationID, lineID uuid.UUID) (*models.BOMLine, error) {
	var line models.BOMLine
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(organizationID)).
		Where("id = ?", lineID).
		First(&line).Error
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *repository) ListLinesByRevision(ctx context.Context, organizationID, revisionID uuid.UUID) ([]models.BOMLine, error) {
	var lines []models.BOMLine
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(organizationID)).
		Where("revision_id = ?", revisionID).
		Order("position_number ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// ListComponentsOf returns the distinct components referenced by any revision
// of the given parents. Used for breadth-first cycle checks.
func (r *repository) ListComponentsOf(ctx context.Context, organizationID uuid.UUID, parentProductIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(parentProductIDs) == 0 {
		return nil, nil
	}
	var componentIDs []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.BOMLine{}).
		Scopes(tenant.Scope(organizationID)).
		Where("parent_product_id IN ?", parentProductIDs).
		Distinct().
		Pluck("component_product_id", &componentIDs).Error
	if err != nil {
		return nil, err
	}
	return componentIDs, nil
}

func (r *repository) FindProductByID(ctx context.Context, organizationID, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(organizationID)).
		Where("id = ?", productID).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindRevisionByID(ctx context.Context, organizationID, revisionID uuid.UUID) (*models.ProductRevision, error) {
	var revision models.ProductRevision
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(organizationID)).
		Where("id = ?", revisionID).
		First(&revision).Error
	if err != nil {
		return nil, err
	}
	return &revision, nil
}

func (r *repository) ListEvents(ctx context.Context, organizationID, revisionID uuid.UUID) ([]models.BOMEvent, error) {
	var events []models.BOMEvent
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(organizationID)).
		Where("revision_id = ?", revisionID).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
