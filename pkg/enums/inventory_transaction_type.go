package enums

import "fmt"

// InventoryTransactionType maps to the inventory_transaction_type enum in Postgres.
type InventoryTransactionType string

const (
	InventoryTransactionReceipt            InventoryTransactionType = "receipt"
	InventoryTransactionIssue              InventoryTransactionType = "issue"
	InventoryTransactionAdjustment         InventoryTransactionType = "adjustment"
	InventoryTransactionTransferOut        InventoryTransactionType = "transfer_out"
	InventoryTransactionTransferIn         InventoryTransactionType = "transfer_in"
	InventoryTransactionReservation        InventoryTransactionType = "reservation"
	InventoryTransactionReleaseReservation InventoryTransactionType = "release_reservation"
)

var validInventoryTransactionTypes = []InventoryTransactionType{
	InventoryTransactionReceipt,
	InventoryTransactionIssue,
	InventoryTransactionAdjustment,
	InventoryTransactionTransferOut,
	InventoryTransactionTransferIn,
	InventoryTransactionReservation,
	InventoryTransactionReleaseReservation,
}

// IsValid reports whether the value matches the canonical transaction type enum.
func (t InventoryTransactionType) IsValid() bool {
	for _, candidate := range validInventoryTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseInventoryTransactionType converts raw input into InventoryTransactionType.
func ParseInventoryTransactionType(value string) (InventoryTransactionType, error) {
	for _, candidate := range validInventoryTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory transaction type %q", value)
}
