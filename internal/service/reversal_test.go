package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tokopintar/backend/internal/domain"
	"tokopintar/backend/internal/store"
)

func (f *fixture) debtSale(t *testing.T) *domain.Transaction {
	t.Helper()
	paid := decimal.NewFromInt(10)
	tx, err := f.svc.CreateSale(context.Background(), domain.SaleCreateRequest{
		Items: []domain.SaleItemInput{
			{ProductID: f.rice.ID, Quantity: 2},
			{ProductID: f.coffee.ID, Quantity: 4},
		},
		CustomerID:    f.customer.ID,
		PaymentMethod: domain.PaymentDebt,
		PaidAmount:    &paid,
	})
	require.NoError(t, err)
	return tx
}

// insertOrphanSale writes a transaction whose line item points at a product
// that was never created, the shape reversals must tolerate.
func (f *fixture) insertOrphanSale(t *testing.T, id string) {
	t.Helper()
	ctx := context.Background()
	uow, err := f.repo.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.InsertTransaction(ctx, domain.Transaction{
		ID:            id,
		TotalAmount:   decimal.NewFromInt(9),
		PaidAmount:    decimal.NewFromInt(9),
		PaymentMethod: domain.PaymentCash,
		CreatedAt:     time.Now().UTC(),
		Items:         []domain.TransactionItem{{ProductID: "prod-ghost", Quantity: 3, PriceAtSale: decimal.NewFromInt(3)}},
	}))
	require.NoError(t, uow.Commit())
}

func TestDeleteSaleRestoresAllLedgers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tx := f.debtSale(t)

	outcome, err := f.svc.DeleteSale(ctx, tx.ID)
	require.NoError(t, err)
	require.Equal(t, tx.ID, outcome.TransactionID)
	require.Empty(t, outcome.SkippedProducts)
	require.Equal(t, 3, outcome.PointsRemoved)
	require.True(t, outcome.DebtReverted.Equal(decimal.NewFromInt(20)))

	require.Equal(t, 5, f.stockOf(t, f.rice.ID))
	require.Equal(t, 50, f.stockOf(t, f.coffee.ID))

	history := f.historyOf(t, f.rice.ID)
	require.Len(t, history, 3)
	require.Equal(t, 2, history[0].ChangeAmount)
	require.Equal(t, domain.StockChangeRevertDelete, history[0].ChangeType)

	customer := f.customerState(t)
	require.Equal(t, 0, customer.Points)
	require.True(t, customer.TotalDebt.IsZero())

	records, err := f.repo.ListDebtRecords(ctx, f.customer.ID, 10)
	require.NoError(t, err)
	require.Empty(t, records)

	_, err = f.repo.GetTransaction(ctx, tx.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteSaleTwiceFailsCleanly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tx := f.debtSale(t)

	_, err := f.svc.DeleteSale(ctx, tx.ID)
	require.NoError(t, err)

	// The second attempt must not touch any ledger again.
	_, err = f.svc.DeleteSale(ctx, tx.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.Equal(t, 5, f.stockOf(t, f.rice.ID))
	require.Equal(t, 0, f.customerState(t).Points)
}

func TestDeleteSalePointsFlooredAtZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tx := f.debtSale(t)

	// Points were spent elsewhere between the sale and its reversal.
	uow, err := f.repo.Begin(ctx)
	require.NoError(t, err)
	customer, err := uow.CustomerForUpdate(ctx, f.customer.ID)
	require.NoError(t, err)
	require.NoError(t, uow.SetCustomerBalance(ctx, customer.ID, 1, customer.TotalDebt))
	require.NoError(t, uow.Commit())

	outcome, err := f.svc.DeleteSale(ctx, tx.ID)
	require.NoError(t, err)
	require.Equal(t, 1, outcome.PointsRemoved)
	require.Equal(t, 0, f.customerState(t).Points)
}

func TestDeleteSaleSkipsMissingProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.insertOrphanSale(t, "txn-orphan")

	outcome, err := f.svc.DeleteSale(ctx, "txn-orphan")
	require.NoError(t, err)
	require.Equal(t, []string{"prod-ghost"}, outcome.SkippedProducts)

	_, err = f.repo.GetTransaction(ctx, "txn-orphan")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteSaleMissingProductFailPolicy(t *testing.T) {
	f := newFixture(t)
	f.svc.WithReversalPolicy(ReversalPolicy{OnMissingProduct: MissingProductFail})
	ctx := context.Background()
	f.insertOrphanSale(t, "txn-orphan")

	_, err := f.svc.DeleteSale(ctx, "txn-orphan")
	require.ErrorIs(t, err, store.ErrReversalFailed)

	// Nothing was committed; the transaction survives.
	got, err := f.repo.GetTransaction(ctx, "txn-orphan")
	require.NoError(t, err)
	require.Equal(t, "txn-orphan", got.ID)
}

func TestBulkDeleteSalesIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.CreateSale(ctx, domain.SaleCreateRequest{
		Items: []domain.SaleItemInput{{ProductID: f.rice.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	second, err := f.svc.CreateSale(ctx, domain.SaleCreateRequest{
		Items: []domain.SaleItemInput{{ProductID: f.coffee.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	result, err := f.svc.BulkDeleteSales(ctx, []string{first.ID, "txn-bogus", second.ID})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{first.ID, second.ID}, result.Deleted)
	require.Contains(t, result.Failed, "txn-bogus")

	require.Equal(t, 5, f.stockOf(t, f.rice.ID))
	require.Equal(t, 50, f.stockOf(t, f.coffee.ID))
}

func TestBulkDeleteSalesRejectsEmptyList(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.BulkDeleteSales(context.Background(), nil)
	require.ErrorIs(t, err, store.ErrValidation)
}

func TestDeleteSalesByFilterCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	groceriesSale, err := f.svc.CreateSale(ctx, domain.SaleCreateRequest{
		Items: []domain.SaleItemInput{{ProductID: f.rice.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	_, err = f.svc.CreateSale(ctx, domain.SaleCreateRequest{
		Items: []domain.SaleItemInput{{ProductID: f.coffee.ID, Quantity: 5}},
	})
	require.NoError(t, err)

	result, err := f.svc.DeleteSalesByFilter(ctx, domain.SalesFilter{CategoryID: f.grocery.ID})
	require.NoError(t, err)
	require.Equal(t, 1, result.DeletedCount)
	require.Equal(t, []string{groceriesSale.ID}, result.Deleted)
	require.Empty(t, result.Failed)

	require.Equal(t, 5, f.stockOf(t, f.rice.ID))
	require.Equal(t, 45, f.stockOf(t, f.coffee.ID))

	sales, err := f.repo.ListTransactions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sales, 1)
}

func TestDeleteSalesByFilterValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.DeleteSalesByFilter(context.Background(), domain.SalesFilter{})
	require.ErrorIs(t, err, store.ErrValidation)
}
