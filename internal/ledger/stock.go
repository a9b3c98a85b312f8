// Package ledger implements the two append-only ledgers at the heart of the
// back office: product stock (with its stock-history audit trail) and
// customer debt (with its debt-record trail). Every mutation goes through a
// caller-supplied unit of work; nothing here commits.
package ledger

import (
	"context"
	"fmt"
	"time"

	"tokopintar/backend/internal/domain"
	"tokopintar/backend/internal/store"
	"tokopintar/backend/internal/xid"
)

// StockLedger applies signed stock deltas to products and appends exactly
// one StockHistory row per delta, inside the caller's unit of work.
type StockLedger struct{}

// Apply mutates product.StockQuantity by delta and records the change.
// Negative deltas that would drive stock below zero fail with
// ErrInsufficientStock before any mutation; positive deltas (restocks,
// reversals restoring prior state) always pass.
func (StockLedger) Apply(ctx context.Context, uow store.UnitOfWork, product *domain.Product, delta int, changeType string, note string) error {
	if delta < 0 && product.StockQuantity+delta < 0 {
		return fmt.Errorf("%w for %s", store.ErrInsufficientStock, product.Name)
	}

	product.StockQuantity += delta
	if err := uow.SetProductStock(ctx, product.ID, product.StockQuantity); err != nil {
		return err
	}

	return uow.AppendStockHistory(ctx, domain.StockHistory{
		ID:           xid.New("sh"),
		ProductID:    product.ID,
		ChangeAmount: delta,
		ChangeType:   changeType,
		Note:         note,
		CreatedAt:    time.Now().UTC(),
	})
}
