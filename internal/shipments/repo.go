package shipments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracelinehq/traceline-backend/pkg/db/models"
	"github.com/tracelinehq/traceline-backend/pkg/enums"
	"github.com/tracelinehq/traceline-backend/pkg/pagination"
	"github.com/tracelinehq/traceline-backend/pkg/tenant"
)

// Repository manages persistence for shipments and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateShipment(ctx context.Context, shipment *models.Shipment) error
	FindShipmentByID(ctx context.Context, organizationID, shipmentID uuid.UUID) (*models.Shipment, error)
	UpdateStatusCAS(ctx context.Context, shipmentID uuid.UUID, from, to enums.ShipmentStatus, updates map[string]any) (bool, error)
	SaveLine(ctx context.Context, line *models.ShipmentLine) error
	DeleteShipment(ctx context.Context, organizationID, shipmentID uuid.UUID) error
	DeleteLines(ctx context.Context, organizationID, shipmentID uuid.UUID) error
	ListShipments(ctx context.Context, organizationID uuid.UUID, input ListShipmentsInput) (*ShipmentListResult, error)
	FindProductByID(ctx context.Context, organizationID, productID uuid.UUID) (*models.Product, error)
	ListEvents(ctx context.Context, organizationID, shipmentID uuid.UUID) ([]models.ShipmentEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a shipments repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateShipment(ctx context.Context, shipment *models.Shipment) error {
	return r.db.WithContext(ctx).Create(shipment).Error
}

func (r *repository) FindShipmentByID(ctx context.Context, organizationID, shipmentID uuid.UUID) (*models.Shipment, error) {
	var shipment models.Shipment
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(organizationID)).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", shipmentID).
		First(&shipment).Error
	if err != nil {
		return nil, err
	}
	return &shipment, nil
}

// UpdateStatusCAS advances the status only when the stored value still
// matches. Returns false when a concurrent transition won.
func (r *repository) UpdateStatusCAS(ctx context.Context, shipmentID uuid.UUID, from, to enums.ShipmentStatus, updates map[string]any) (bool, error) {
	values := map[string]any{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	for column, value := range updates {
		values[column] = value
	}
	result := r.db.WithContext(ctx).
		Model(&models.Shipment{}).
		Where("id = ? AND status = ?", shipmentID, from).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) SaveLine(ctx context.Context, line *models.ShipmentLine) error {
	return r.db.WithContext(ctx).Save(line).Error
}

func (r *repository) DeleteShipment(ctx context.Context, organizationID, shipmentID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Scopes(tenant.Scope(organizationID)).
		Where("id = ?", shipmentID).
		Delete(&models.Shipment{}).Error
}

func (r *repository) DeleteLines(ctx context.Context, organizationID, shipmentID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Scopes(tenant.Scope(organizationID)).
		Where("shipment_id = ?", shipmentID).
		Delete(&models.ShipmentLine{}).Error
}

func (r *repository) ListShipments(ctx context.Context, organizationID uuid.UUID, input ListShipmentsInput) (*ShipmentListResult, error) {
	pageSize := pagination.NormalizeLimit(input.Pagination.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(input.Pagination.Limit)

	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).
		Model(&models.Shipment{}).
		Scopes(tenant.Scope(organizationID))

	if input.Status != nil {
		qb = qb.Where("status = ?", *input.Status)
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Shipment
	if err := qb.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer).Find(&rows).Error; err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return &ShipmentListResult{
		Shipments:  rows,
		NextCursor: nextCursor,
	}, nil
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

func (r *repository) ListEvents(ctx context.Context, organizationID, shipmentID uuid.UUID) ([]models.ShipmentEvent, error) {
	var events []models.ShipmentEvent
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(organizationID)).
		Where("shipment_id = ?", shipmentID).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
