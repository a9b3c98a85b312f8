package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tokopintar/backend/internal/domain"
	"tokopintar/backend/internal/store"
	"tokopintar/backend/internal/store/memory"
)

func seedProduct(t *testing.T, repo *memory.Store, stock int) domain.Product {
	t.Helper()
	ctx := context.Background()
	cat, err := repo.CreateCategory(ctx, domain.Category{Name: "Grocery " + t.Name()})
	require.NoError(t, err)
	product, err := repo.CreateProduct(ctx, domain.Product{
		Name:          "Beras 5kg",
		SKU:           "SKU-" + t.Name(),
		Price:         decimal.NewFromInt(12),
		StockQuantity: stock,
		CategoryID:    cat.ID,
		CreatedAt:     time.Now().UTC(),
	})
	require.NoError(t, err)
	return *product
}

func TestStockLedgerApplyRecordsHistory(t *testing.T) {
	repo := memory.New()
	product := seedProduct(t, repo, 10)
	ctx := context.Background()

	uow, err := repo.Begin(ctx)
	require.NoError(t, err)
	locked, err := uow.ProductForUpdate(ctx, product.ID)
	require.NoError(t, err)

	var ledger StockLedger
	require.NoError(t, ledger.Apply(ctx, uow, locked, -4, domain.StockChangeSale, "Sale txn-1"))
	require.Equal(t, 6, locked.StockQuantity)
	require.NoError(t, uow.Commit())

	got, err := repo.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, 6, got.StockQuantity)

	history, err := repo.ListStockHistory(ctx, product.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, -4, history[0].ChangeAmount)
	require.Equal(t, domain.StockChangeSale, history[0].ChangeType)
}

func TestStockLedgerRejectsOverdraw(t *testing.T) {
	repo := memory.New()
	product := seedProduct(t, repo, 5)
	ctx := context.Background()

	uow, err := repo.Begin(ctx)
	require.NoError(t, err)
	locked, err := uow.ProductForUpdate(ctx, product.ID)
	require.NoError(t, err)

	var ledger StockLedger
	err = ledger.Apply(ctx, uow, locked, -6, domain.StockChangeSale, "")
	require.ErrorIs(t, err, store.ErrInsufficientStock)
	require.Equal(t, 5, locked.StockQuantity)
	require.NoError(t, uow.Rollback())

	got, err := repo.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, 5, got.StockQuantity)

	history, err := repo.ListStockHistory(ctx, product.ID, 10)
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestStockLedgerHistorySumsToStock(t *testing.T) {
	repo := memory.New()
	product := seedProduct(t, repo, 0)
	ctx := context.Background()

	var ledger StockLedger
	deltas := []struct {
		delta      int
		changeType string
	}{
		{50, domain.StockChangeInitial},
		{-12, domain.StockChangeSale},
		{30, domain.StockChangeRestock},
		{-8, domain.StockChangeManualUpdate},
		{12, domain.StockChangeRevertDelete},
	}
	for _, d := range deltas {
		uow, err := repo.Begin(ctx)
		require.NoError(t, err)
		locked, err := uow.ProductForUpdate(ctx, product.ID)
		require.NoError(t, err)
		require.NoError(t, ledger.Apply(ctx, uow, locked, d.delta, d.changeType, ""))
		require.NoError(t, uow.Commit())
	}

	got, err := repo.GetProduct(ctx, product.ID)
	require.NoError(t, err)

	history, err := repo.ListStockHistory(ctx, product.ID, 100)
	require.NoError(t, err)
	sum := 0
	for _, h := range history {
		sum += h.ChangeAmount
	}
	require.Equal(t, got.StockQuantity, sum)
	require.Equal(t, 72, got.StockQuantity)
}
