package inventory

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracelinehq/traceline-backend/pkg/db"
	"github.com/tracelinehq/traceline-backend/pkg/db/models"
	"github.com/tracelinehq/traceline-backend/pkg/enums"
	pkgerrors "github.com/tracelinehq/traceline-backend/pkg/errors"
	"github.com/tracelinehq/traceline-backend/pkg/events"
	"github.com/tracelinehq/traceline-backend/pkg/logger"
	"github.com/tracelinehq/traceline-backend/pkg/tenant"
	"github.com/tracelinehq/traceline-backend/pkg/validate"
)

// Service exposes inventory ledger operations. Every movement appends a
// transaction row and an event in the same transaction that updates the
// balance.
type Service interface {
	Receipt(ctx context.Context, tc tenant.Context, input MovementInput) (*models.InventoryTransaction, error)
	Issue(ctx context.Context, tc tenant.Context, input MovementInput) (*models.InventoryTransaction, error)
	Adjust(ctx context.Context, tc tenant.Context, input AdjustInput) (*models.InventoryTransaction, error)
	Reserve(ctx context.Context, tc tenant.Context, input MovementInput) (*models.InventoryTransaction, error)
	ReleaseReservation(ctx context.Context, tc tenant.Context, input MovementInput) (*models.InventoryTransaction, error)
	Transfer(ctx context.Context, tc tenant.Context, input TransferInput) (*TransferResult, error)
	ApplyTx(ctx context.Context, tx *gorm.DB, tc tenant.Context, input ApplyInput) (*models.InventoryTransaction, error)
	GetBalances(ctx context.Context, tc tenant.Context, filter BalanceFilter) ([]models.InventoryBalance, error)
	ListTransactions(ctx context.Context, tc tenant.Context, filter TransactionFilter) ([]models.InventoryTransaction, error)
	ListEvents(ctx context.Context, tc tenant.Context, productID uuid.UUID) ([]models.InventoryEvent, error)
}

type service struct {
	repo          Repository
	dbClient      *db.Client
	recorder      *events.Recorder
	logg          *logger.Logger
	retryAttempts int
}

// NewService constructs an inventory service instance.
func NewService(repo Repository, dbClient *db.Client, recorder *events.Recorder, logg *logger.Logger, retryAttempts int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("event recorder required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if retryAttempts <= 0 {
		return nil, fmt.Errorf("retry attempts must be positive")
	}
	return &service{
		repo:          repo,
		dbClient:      dbClient,
		recorder:      recorder,
		logg:          logg,
		retryAttempts: retryAttempts,
	}, nil
}

func (s *service) Receipt(ctx context.Context, tc tenant.Context, input MovementInput) (*models.InventoryTransaction, error) {
	return s.applyMovement(ctx, tc, input, enums.InventoryTransactionReceipt)
}

func (s *service) Issue(ctx context.Context, tc tenant.Context, input MovementInput) (*models.InventoryTransaction, error) {
	return s.applyMovement(ctx, tc, input, enums.InventoryTransactionIssue)
}

func (s *service) Reserve(ctx context.Context, tc tenant.Context, input MovementInput) (*models.InventoryTransaction, error) {
	return s.applyMovement(ctx, tc, input, enums.InventoryTransactionReservation)
}

func (s *service) ReleaseReservation(ctx context.Context, tc tenant.Context, input MovementInput) (*models.InventoryTransaction, error) {
	return s.applyMovement(ctx, tc, input, enums.InventoryTransactionReleaseReservation)
}

func (s *service) Adjust(ctx context.Context, tc tenant.Context, input AdjustInput) (*models.InventoryTransaction, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if input.Quantity == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment quantity cannot be zero")
	}

	var transaction *models.InventoryTransaction
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		applied, err := s.ApplyTx(ctx, tx, tc, ApplyInput{
			ProductID: input.ProductID,
			Location:  input.Location,
			Type:      enums.InventoryTransactionAdjustment,
			Quantity:  input.Quantity,
			Reference: input.Reference,
		})
		if err != nil {
			return err
		}
		transaction = applied
		return nil
	}); err != nil {
		return nil, err
	}
	return transaction, nil
}

func (s *service) Transfer(ctx context.Context, tc tenant.Context, input TransferInput) (*TransferResult, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if input.FromLocation == input.ToLocation {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer requires two distinct locations")
	}

	result := &TransferResult{}
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		out, err := s.ApplyTx(ctx, tx, tc, ApplyInput{
			ProductID: input.ProductID,
			Location:  input.FromLocation,
			Type:      enums.InventoryTransactionTransferOut,
			Quantity:  input.Quantity,
			Reference: input.Reference,
		})
		if err != nil {
			return err
		}
		in, err := s.ApplyTx(ctx, tx, tc, ApplyInput{
			ProductID: input.ProductID,
			Location:  input.ToLocation,
			Type:      enums.InventoryTransactionTransferIn,
			Quantity:  input.Quantity,
			Reference: input.Reference,
		})
		if err != nil {
			return err
		}
		result.Out = out
		result.In = in
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) applyMovement(ctx context.Context, tc tenant.Context, input MovementInput, movementType enums.InventoryTransactionType) (*models.InventoryTransaction, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	var transaction *models.InventoryTransaction
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		applied, err := s.ApplyTx(ctx, tx, tc, ApplyInput{
			ProductID: input.ProductID,
			Location:  input.Location,
			Type:      movementType,
			Quantity:  input.Quantity,
			Reference: input.Reference,
		})
		if err != nil {
			return err
		}
		transaction = applied
		return nil
	}); err != nil {
		return nil, err
	}
	return transaction, nil
}

// ApplyTx runs one movement inside the caller's transaction. Collaborating
// services use it to combine stock effects with their own state changes.
func (s *service) ApplyTx(ctx context.Context, tx *gorm.DB, tc tenant.Context, input ApplyInput) (*models.InventoryTransaction, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction type %q", input.Type))
	}
	if input.Quantity == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be zero")
	}
	if input.Quantity < 0 && input.Type != enums.InventoryTransactionAdjustment {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	txRepo := s.repo.WithTx(tx)

	if _, err := txRepo.FindProductByID(ctx, tc.OrganizationID, input.ProductID); err != nil {
		return nil, notFoundOrInternal(err, "product")
	}

	for attempt := 0; attempt < s.retryAttempts; attempt++ {
		balance, created, err := s.loadOrCreateBalance(ctx, txRepo, tc, input)
		if err != nil {
			return nil, err
		}

		newOnHand, newReserved, err := nextCounters(balance, input.Type, input.Quantity)
		if err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		if !created {
			expected := balance.Version
			balance.OnHand = newOnHand
			balance.Reserved = newReserved
			ok, err := txRepo.UpdateBalanceCAS(ctx, balance, expected, now)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update balance")
			}
			if !ok {
				continue
			}
		} else {
			balance.OnHand = newOnHand
			balance.Reserved = newReserved
			balance.LastTransactionAt = &now
			if err := txRepo.CreateBalance(ctx, balance); err != nil {
				if db.IsUniqueViolation(err, "idx_balances_org_product_location") {
					continue
				}
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert balance")
			}
		}

		transaction := &models.InventoryTransaction{
			ID:             uuid.New(),
			OrganizationID: tc.OrganizationID,
			ProductID:      input.ProductID,
			Location:       input.Location,
			Type:           input.Type,
			Quantity:       ledgerQuantity(input.Type, input.Quantity),
			BalanceAfter:   newOnHand,
			Reference:      input.Reference,
			ActorUserID:    tc.ActorUserID,
		}
		if err := txRepo.CreateTransaction(ctx, transaction); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert inventory transaction")
		}

		if _, err := s.recorder.Inventory(ctx, tx, tc, input.ProductID, input.Type, movementData{
			Location:  input.Location,
			Type:      input.Type,
			Quantity:  transaction.Quantity,
			OnHand:    newOnHand,
			Reserved:  newReserved,
			Reference: input.Reference,
		}); err != nil {
			return nil, err
		}
		return transaction, nil
	}

	return nil, pkgerrors.New(pkgerrors.CodeConflict, "balance contention, retry the operation")
}

func (s *service) loadOrCreateBalance(ctx context.Context, repo Repository, tc tenant.Context, input ApplyInput) (*models.InventoryBalance, bool, error) {
	balance, err := repo.FindBalance(ctx, tc.OrganizationID, input.ProductID, input.Location)
	if err == nil {
		return balance, false, nil
	}
	if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load balance")
	}

	// No balance row yet: only inbound movements may create one.
	switch input.Type {
	case enums.InventoryTransactionReceipt, enums.InventoryTransactionTransferIn:
	case enums.InventoryTransactionAdjustment:
		if input.Quantity < 0 {
			return nil, false, pkgerrors.New(pkgerrors.CodeInsufficientStock, "no stock at location")
		}
	default:
		return nil, false, pkgerrors.New(pkgerrors.CodeInsufficientStock, "no stock at location")
	}

	return &models.InventoryBalance{
		ID:             uuid.New(),
		OrganizationID: tc.OrganizationID,
		ProductID:      input.ProductID,
		Location:       input.Location,
	}, true, nil
}

// nextCounters computes the balance counters a movement produces, enforcing
// 0 <= reserved <= on_hand.
func nextCounters(balance *models.InventoryBalance, movementType enums.InventoryTransactionType, quantity int64) (int64, int64, error) {
	onHand := balance.OnHand
	reserved := balance.Reserved

	switch movementType {
	case enums.InventoryTransactionReceipt, enums.InventoryTransactionTransferIn:
		onHand += quantity
	case enums.InventoryTransactionIssue, enums.InventoryTransactionTransferOut:
		onHand -= quantity
	case enums.InventoryTransactionAdjustment:
		onHand += quantity
	case enums.InventoryTransactionReservation:
		reserved += quantity
	case enums.InventoryTransactionReleaseReservation:
		reserved -= quantity
	default:
		return 0, 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction type %q", movementType))
	}

	if onHand < 0 {
		return 0, 0, pkgerrors.New(pkgerrors.CodeInsufficientStock,
			fmt.Sprintf("on hand would drop to %d", onHand))
	}
	if reserved < 0 {
		return 0, 0, pkgerrors.New(pkgerrors.CodeInsufficientStock,
			fmt.Sprintf("reserved would drop to %d", reserved))
	}
	if reserved > onHand {
		return 0, 0, pkgerrors.New(pkgerrors.CodeInsufficientStock,
			fmt.Sprintf("reserved %d would exceed on hand %d", reserved, onHand))
	}
	return onHand, reserved, nil
}

// ledgerQuantity signs the recorded quantity by its effect on on-hand stock.
// Reservation movements leave on-hand untouched and are recorded as given.
func ledgerQuantity(movementType enums.InventoryTransactionType, quantity int64) int64 {
	switch movementType {
	case enums.InventoryTransactionIssue, enums.InventoryTransactionTransferOut:
		return -quantity
	default:
		return quantity
	}
}

func (s *service) GetBalances(ctx context.Context, tc tenant.Context, filter BalanceFilter) ([]models.InventoryBalance, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if filter.ProductID != nil {
		if _, err := s.repo.FindProductByID(ctx, tc.OrganizationID, *filter.ProductID); err != nil {
			return nil, notFoundOrInternal(err, "product")
		}
	}
	balances, err := s.repo.ListBalances(ctx, tc.OrganizationID, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list balances")
	}
	return balances, nil
}

func (s *service) ListTransactions(ctx context.Context, tc tenant.Context, filter TransactionFilter) ([]models.InventoryTransaction, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if filter.ProductID != nil {
		if _, err := s.repo.FindProductByID(ctx, tc.OrganizationID, *filter.ProductID); err != nil {
			return nil, notFoundOrInternal(err, "product")
		}
	}
	transactions, err := s.repo.ListTransactions(ctx, tc.OrganizationID, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list transactions")
	}
	return transactions, nil
}

func (s *service) ListEvents(ctx context.Context, tc tenant.Context, productID uuid.UUID) ([]models.InventoryEvent, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindProductByID(ctx, tc.OrganizationID, productID); err != nil {
		return nil, notFoundOrInternal(err, "product")
	}
	eventRows, err := s.repo.ListEvents(ctx, tc.OrganizationID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list inventory events")
	}
	return eventRows, nil
}

func notFoundOrInternal(err error, resource string) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, resource+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load "+resource)
}
