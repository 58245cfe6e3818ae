package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracelinehq/traceline-backend/pkg/db/models"
	"github.com/tracelinehq/traceline-backend/pkg/tenant"
)

// Repository manages persistence for inventory balances and the ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindBalance(ctx context.Context, organizationID, productID uuid.UUID, location string) (*models.InventoryBalance, error)
	CreateBalance(ctx context.Context, balance *models.InventoryBalance) error
	UpdateBalanceCAS(ctx context.Context, balance *models.InventoryBalance, expectedVersion int64, at time.Time) (bool, error)
	ListBalances(ctx context.Context, organizationID uuid.UUID, filter BalanceFilter) ([]models.InventoryBalance, error)
	CreateTransaction(ctx context.Context, transaction *models.InventoryTransaction) error
	ListTransactions(ctx context.Context, organizationID uuid.UUID, filter TransactionFilter) ([]models.InventoryTransaction, error)
	FindProductByID(ctx context.Context, organizationID, productID uuid.UUID) (*models.Product, error)
	ListEvents(ctx context.Context, organizationID, productID uuid.UUID) ([]models.InventoryEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindBalance(ctx context.Context, organizationID, productID uuid.UUID, location string) (*models.InventoryBalance, error) {
	var balance models.InventoryBalance
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(organizationID)).
		Where("product_id = ? AND location = ?", productID, location).
		First(&balance).Error
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

func (r *repository) CreateBalance(ctx context.Context, balance *models.InventoryBalance) error {
	return r.db.WithContext(ctx).Create(balance).Error
}

// UpdateBalanceCAS writes the new counters only when the stored version still
// matches. Returns false when another writer got there first.
func (r *repository) UpdateBalanceCAS(ctx context.Context, balance *models.InventoryBalance, expectedVersion int64, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.InventoryBalance{}).
		Where("id = ? AND version = ?", balance.ID, expectedVersion).
		Updates(map[string]any{
			"on_hand":             balance.OnHand,
			"reserved":            balance.Reserved,
			"version":             expectedVersion + 1,
			"last_transaction_at": at,
			"updated_at":          at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) ListBalances(ctx context.Context, organizationID uuid.UUID, filter BalanceFilter) ([]models.InventoryBalance, error) {
	qb := r.db.WithContext(ctx).
		Scopes(tenant.Scope(organizationID)).
		Order("product_id ASC, location ASC")
	if filter.ProductID != nil {
		qb = qb.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Location != nil {
		qb = qb.Where("location = ?", *filter.Location)
	}
	var balances []models.InventoryBalance
	if err := qb.Find(&balances).Error; err != nil {
		return nil, err
	}
	return balances, nil
}

func (r *repository) CreateTransaction(ctx context.Context, transaction *models.InventoryTransaction) error {
	return r.db.WithContext(ctx).Create(transaction).Error
}

func (r *repository) ListTransactions(ctx context.Context, organizationID uuid.UUID, filter TransactionFilter) ([]models.InventoryTransaction, error) {
	qb := r.db.WithContext(ctx).
		Scopes(tenant.Scope(organizationID)).
		Order("created_at DESC")
	if filter.ProductID != nil {
		qb = qb.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Location != nil {
		qb = qb.Where("location = ?", *filter.Location)
	}
	if filter.Limit > 0 {
		qb = qb.Limit(filter.Limit)
	}
	var transactions []models.InventoryTransaction
	if err := qb.Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
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

func (r *repository) ListEvents(ctx context.Context, organizationID, productID uuid.UUID) ([]models.InventoryEvent, error) {
	var events []models.InventoryEvent
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
