package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryBalance tracks on-hand and reserved stock per product and
// location. Version guards concurrent writers via compare-and-swap.
type InventoryBalance struct {
	ID                uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID    uuid.UUID  `gorm:"column:organization_id;type:uuid;not null;uniqueIndex:idx_balances_org_product_location"`
	ProductID         uuid.UUID  `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_balances_org_product_location"`
	Location          string     `gorm:"column:location;not null;uniqueIndex:idx_balances_org_product_location"`
	OnHand            int64      `gorm:"column:on_hand;not null;default:0"`
	Reserved          int64      `gorm:"column:reserved;not null;default:0"`
	Version           int64      `gorm:"column:version;not null;default:0"`
	LastTransactionAt *time.Time `gorm:"column:last_transaction_at"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// Available is the quantity free to promise: on hand minus reserved.
func (b InventoryBalance) Available() int64 {
	return b.OnHand - b.Reserved
}
