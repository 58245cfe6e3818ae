package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tracelinehq/traceline-backend/pkg/enums"
)

// InventoryTransaction is an immutable ledger row. Quantity is signed:
// receipts are positive, issues negative, adjustments either. BalanceAfter
// snapshots on-hand at commit time so the ledger replays without joins.
type InventoryTransaction struct {
	ID             uuid.UUID                      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID                      `gorm:"column:organization_id;type:uuid;not null"`
	ProductID      uuid.UUID                      `gorm:"column:product_id;type:uuid;not null"`
	Location       string                         `gorm:"column:location;not null"`
	Type           enums.InventoryTransactionType `gorm:"column:type;type:inventory_transaction_type;not null"`
	Quantity       int64                          `gorm:"column:quantity;not null"`
	BalanceAfter   int64                          `gorm:"column:balance_after;not null"`
	Reference      *string                        `gorm:"column:reference"`
	ActorUserID    uuid.UUID                      `gorm:"column:actor_user_id;type:uuid;not null"`
	CreatedAt      time.Time                      `gorm:"column:created_at;autoCreateTime"`
}
