package ledger

import (
	"context"
	"slices"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
)

// KeyLocker serializes commits that touch the same keys. Implementations
// acquire keys in sorted order and give up with CONCURRENCY_CONFLICT once
// timeout elapses. The returned release function must be called exactly once.
type KeyLocker interface {
	Acquire(ctx context.Context, keys []string, timeout time.Duration) (release func(), err error)
}

// TransactionLockKey is the key that serializes voids of one transaction
func TransactionLockKey(id string) string {
	return "tx:" + id
}

// IdempotencyLockKey is the key that serializes submissions sharing a key
func IdempotencyLockKey(key string) string {
	return "idem:" + key
}

// SortedKeys returns keys deduplicated in ascending order
func SortedKeys(keys []string) []string {
	out := slices.Clone(keys)
	slices.Sort(out)
	return slices.Compact(out)
}

// requestLockKeys lists every record a request may touch. Settlements that
// fail validation are skipped here and rejected later under the lock.
func requestLockKeys(req ledger.TransactionRequest) []string {
	keys := make([]string, 0, len(req.Items)*2+len(req.Settlements)+1)
	for _, item := range req.Items {
		if req.FromWarehouseID != nil {
			keys = append(keys, ledger.StockKey{ProductID: item.ProductID, WarehouseID: *req.FromWarehouseID}.LockKey())
		}
		if req.ToWarehouseID != nil {
			keys = append(keys, ledger.StockKey{ProductID: item.ProductID, WarehouseID: *req.ToWarehouseID}.LockKey())
		}
	}
	for _, m := range req.Settlements {
		if m == nil || ledger.ValidateMovement(m) != nil {
			continue
		}
		keys = append(keys, ledger.MovementKey(m).LockKey())
	}
	if req.IdempotencyKey != "" {
		keys = append(keys, IdempotencyLockKey(req.IdempotencyKey))
	}
	return SortedKeys(keys)
}

// entryLockKeys lists the records touched by a set of entries
func entryLockKeys(entries []ledger.Entry) []string {
	keys := make([]string, 0, len(entries))
	for i := range entries {
		if key, ok := entries[i].StockKey(); ok {
			keys = append(keys, key.LockKey())
		}
		if key, ok := entries[i].BalanceKey(); ok {
			keys = append(keys, key.LockKey())
		}
	}
	return SortedKeys(keys)
}
