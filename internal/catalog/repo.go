package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracelinehq/traceline-backend/pkg/db/models"
	"github.com/tracelinehq/traceline-backend/pkg/pagination"
	"github.com/tracelinehq/traceline-backend/pkg/tenant"
)

// Repository manages persistence for products and revisions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateProduct(ctx context.Context, product *models.Product) error
	SaveProduct(ctx context.Context, product *models.Product) error
	FindProductByID(ctx context.Context, organizationID, productID uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, organizationID uuid.UUID, input ListProductsInput) (*ProductListResult, error)
	CreateRevision(ctx context.Context, revision *models.ProductRevision) error
	SaveRevision(ctx context.Context, revision *models.ProductRevision) error
	FindRevisionByID(ctx context.Context, organizationID, revisionID uuid.UUID) (*models.ProductRevision, error)
	FindCurrentReleasedRevision(ctx context.Context, organizationID, productID uuid.UUID) (*models.ProductRevision, error)
	ListRevisions(ctx context.Context, organizationID, productID uuid.UUID) ([]models.ProductRevision, error)
	ListEvents(ctx context.Context, organizationID, productID uuid.UUID) ([]models.ProductEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *repository) SaveProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
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

func (r *repository) ListProducts(ctx context.Context, organizationID uuid.UUID, input ListProductsInput) (*ProductListResult, error) {
	pageSize := pagination.NormalizeLimit(input.Pagination.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(input.Pagination.Limit)

	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Scopes(tenant.Scope(organizationID))

	if input.Status != nil {
		qb = qb.Where("status = ?", *input.Status)
	}
	if search := strings.TrimSpace(input.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(name) LIKE ? OR LOWER(sku) LIKE ?)", pattern, pattern)
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Product
	if err := qb.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer).Find(&rows).Error; err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return &ProductListResult{
		Products:   rows,
		NextCursor: nextCursor,
	}, nil
}

func (r *repository) CreateRevision(ctx context.Context, revision *models.ProductRevision) error {
	return r.db.WithContext(ctx).Create(revision).Error
}

func (r *repository) SaveRevision(ctx context.Context, revision *models.ProductRevision) error {
	return r.db.WithContext(ctx).Save(revision).Error
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

func (r *repository) FindCurrentReleasedRevision(ctx context.Context, organizationID, productID uuid.UUID) (*models.ProductRevision, error) {
	var revision models.ProductRevision
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(organizationID)).
		Where("product_id = ?", productID).
		Where("status = ?", "released").
		Order("released_at DESC").
		First(&revision).Error
	if err != nil {
		return nil, err
	}
	return &revision, nil
}

func (r *repository) ListRevisions(ctx context.Context, organizationID, productID uuid.UUID) ([]models.ProductRevision, error) {
	var revisions []models.ProductRevision
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(organizationID)).
		Where("product_id = ?", productID).
		Order("created_at ASC").
		Find(&revisions).Error
	if err != nil {
		return nil, err
	}
	return revisions, nil
}

func (r *repository) ListEvents(ctx context.Context, organizationID, productID uuid.UUID) ([]models.ProductEvent, error) {
	var events []models.ProductEvent
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(organizationID)).
		Where("product_id = ?", productID).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
