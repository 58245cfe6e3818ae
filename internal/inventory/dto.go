package inventory

import (
	"github.com/google/uuid"

	"github.com/tracelinehq/traceline-backend/pkg/db/models"
	"github.com/tracelinehq/traceline-backend/pkg/enums"
)

// ApplyInput is the single entry point every stock movement reduces to.
// Quantity is always positive; the transaction type decides direction.
type ApplyInput struct {
	ProductID uuid.UUID                      `validate:"required"`
	Location  string                         `validate:"required,max=64"`
	Type      enums.InventoryTransactionType `validate:"required"`
	Quantity  int64
	Reference *string `validate:"omitempty,max=255"`
}

// MovementInput covers the unidirectional operations: receipt, issue,
// reserve, release.
type MovementInput struct {
	ProductID uuid.UUID `validate:"required"`
	Location  string    `validate:"required,max=64"`
	Quantity  int64     `validate:"required,min=1"`
	Reference *string   `validate:"omitempty,max=255"`
}

// AdjustInput corrects a balance by a signed delta.
type AdjustInput struct {
	ProductID uuid.UUID `validate:"required"`
	Location  string    `validate:"required,max=64"`
	Quantity  int64
	Reference *string `validate:"omitempty,max=255"`
}

// TransferInput moves stock between two locations atomically.
type TransferInput struct {
	ProductID    uuid.UUID `validate:"required"`
	FromLocation string    `validate:"required,max=64"`
	ToLocation   string    `validate:"required,max=64"`
	Quantity     int64     `validate:"required,min=1"`
	Reference    *string   `validate:"omitempty,max=255"`
}

// BalanceFilter narrows the balance projection. Nil fields match everything
// in the tenant.
type BalanceFilter struct {
	ProductID *uuid.UUID
	Location  *string
}

// TransactionFilter narrows the ledger projection. Limit zero returns the
// full history, newest first.
type TransactionFilter struct {
	ProductID *uuid.UUID
	Location  *string
	Limit     int
}

// TransferResult carries both legs of a completed transfer.
type TransferResult struct {
	Out *models.InventoryTransaction
	In  *models.InventoryTransaction
}

type movementData struct {
	Location  string                         `json:"location"`
	Type      enums.InventoryTransactionType `json:"type"`
	Quantity  int64                          `json:"quantity"`
	OnHand    int64                          `json:"onHand"`
	Reserved  int64                          `json:"reserved"`
	Reference *string                        `json:"reference,omitempty"`
}
