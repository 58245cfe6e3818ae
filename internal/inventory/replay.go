package inventory

import (
	"fmt"

	"github.com/tracelinehq/traceline-backend/pkg/db/models"
	"github.com/tracelinehq/traceline-backend/pkg/enums"
)

// BalanceView is the counters reconstructed by folding the ledger.
type BalanceView struct {
	OnHand   int64
	Reserved int64
}

// Replay folds an ordered ledger for one product into per-location counters.
// Transactions must be sorted oldest first.
func Replay(transactions []models.InventoryTransaction) (map[string]BalanceView, error) {
	views := map[string]BalanceView{}
	for _, transaction := range transactions {
		view := views[transaction.Location]

		switch transaction.Type {
		case enums.InventoryTransactionReceipt,
			enums.InventoryTransactionTransferIn,
			enums.InventoryTransactionIssue,
			enums.InventoryTransactionTransferOut,
			enums.InventoryTransactionAdjustment:
			view.OnHand += transaction.Quantity
		case enums.InventoryTransactionReservation:
			view.Reserved += transaction.Quantity
		case enums.InventoryTransactionReleaseReservation:
			view.Reserved -= transaction.Quantity
		default:
			return nil, fmt.Errorf("unknown transaction type %q", transaction.Type)
		}

		if view.OnHand < 0 || view.Reserved < 0 || view.Reserved > view.OnHand {
			return nil, fmt.Errorf("ledger replay violates balance invariants at transaction %s", transaction.ID)
		}
		views[transaction.Location] = view
	}
	return views, nil
}
