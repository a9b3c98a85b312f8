package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tokopintar/backend/internal/domain"
	"tokopintar/backend/internal/store"
)

func seedProduct(t *testing.T, s *Store) domain.Product {
	t.Helper()
	ctx := context.Background()
	cat, err := s.CreateCategory(ctx, domain.Category{Name: "Grocery"})
	require.NoError(t, err)
	p, err := s.CreateProduct(ctx, domain.Product{
		Name:          "Beras 5kg",
		SKU:           "SKU-BERAS",
		Price:         decimal.NewFromInt(10),
		StockQuantity: 10,
		CategoryID:    cat.ID,
	})
	require.NoError(t, err)
	return *p
}

func TestRollbackRestoresSnapshot(t *testing.T) {
	s := New()
	product := seedProduct(t, s)
	ctx := context.Background()

	uow, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.SetProductStock(ctx, product.ID, 3))
	require.NoError(t, uow.AppendStockHistory(ctx, domain.StockHistory{ProductID: product.ID, ChangeAmount: -7, ChangeType: domain.StockChangeSale}))
	require.NoError(t, uow.Rollback())

	got, err := s.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, 10, got.StockQuantity)

	history, err := s.ListStockHistory(ctx, product.ID, 10)
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestRollbackAfterCommitIsNoop(t *testing.T) {
	s := New()
	product := seedProduct(t, s)
	ctx := context.Background()

	uow, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.SetProductStock(ctx, product.ID, 4))
	require.NoError(t, uow.Commit())
	require.NoError(t, uow.Rollback())

	got, err := s.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, 4, got.StockQuantity)
}

func TestSavepointRollbackIsPartial(t *testing.T) {
	s := New()
	product := seedProduct(t, s)
	ctx := context.Background()

	uow, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.SetProductStock(ctx, product.ID, 8))

	name, err := uow.Savepoint(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.SetProductStock(ctx, product.ID, 1))
	require.NoError(t, uow.RollbackTo(ctx, name))

	// The change before the savepoint survives the commit.
	require.NoError(t, uow.Commit())
	got, err := s.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, 8, got.StockQuantity)
}

func TestSavepointRelease(t *testing.T) {
	s := New()
	ctx := context.Background()

	uow, err := s.Begin(ctx)
	require.NoError(t, err)
	name, err := uow.Savepoint(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.Release(ctx, name))
	require.Error(t, uow.RollbackTo(ctx, name))
	require.NoError(t, uow.Rollback())
}

func TestUnitOfWorkSerializesAccess(t *testing.T) {
	s := New()
	product := seedProduct(t, s)
	ctx := context.Background()

	uow, err := s.Begin(ctx)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		// Blocks until the first unit of work finishes.
		other, err := s.Begin(ctx)
		if err == nil {
			_ = other.Rollback()
		}
		close(done)
	}()

	require.NoError(t, uow.SetProductStock(ctx, product.ID, 2))
	require.NoError(t, uow.Commit())
	<-done

	got, err := s.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.StockQuantity)
}

func TestDeleteProductInUse(t *testing.T) {
	s := New()
	product := seedProduct(t, s)
	ctx := context.Background()

	uow, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.InsertTransaction(ctx, domain.Transaction{
		ID:          "txn-1",
		TotalAmount: decimal.NewFromInt(10),
		PaidAmount:  decimal.NewFromInt(10),
		Items:       []domain.TransactionItem{{ProductID: product.ID, Quantity: 1, PriceAtSale: decimal.NewFromInt(10)}},
	}))
	require.NoError(t, uow.Commit())

	require.ErrorIs(t, s.DeleteProduct(ctx, product.ID), store.ErrProductInUse)
}
