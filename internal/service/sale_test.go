package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tokopintar/backend/internal/domain"
	"tokopintar/backend/internal/store"
)

func TestCreateSaleCash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.svc.CreateSale(ctx, domain.SaleCreateRequest{
		Items: []domain.SaleItemInput{
			{ProductID: f.rice.ID, Quantity: 2},
			{ProductID: f.coffee.ID, Quantity: 4},
		},
	})
	require.NoError(t, err)
	require.True(t, tx.TotalAmount.Equal(decimal.NewFromInt(30)))
	require.True(t, tx.PaidAmount.Equal(tx.TotalAmount))
	require.Equal(t, domain.PaymentCash, tx.PaymentMethod)
	require.Equal(t, 0, tx.PointsEarned)
	require.Len(t, tx.Items, 2)
	require.True(t, tx.Items[0].PriceAtSale.Equal(decimal.NewFromInt(10)))

	require.Equal(t, 3, f.stockOf(t, f.rice.ID))
	require.Equal(t, 46, f.stockOf(t, f.coffee.ID))

	history := f.historyOf(t, f.rice.ID)
	require.Len(t, history, 2)
	require.Equal(t, -2, history[0].ChangeAmount)
	require.Equal(t, domain.StockChangeSale, history[0].ChangeType)

	got, err := f.repo.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	require.True(t, got.TotalAmount.Equal(decimal.NewFromInt(30)))
}

func TestCreateSalePriceSnapshotSurvivesRepricing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.svc.CreateSale(ctx, domain.SaleCreateRequest{
		Items: []domain.SaleItemInput{{ProductID: f.rice.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	newPrice := decimal.NewFromInt(99)
	_, err = f.svc.UpdateProduct(ctx, f.rice.ID, domain.ProductUpdateRequest{Price: &newPrice})
	require.NoError(t, err)

	got, err := f.repo.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	require.True(t, got.Items[0].PriceAtSale.Equal(decimal.NewFromInt(10)))
	require.True(t, got.TotalAmount.Equal(decimal.NewFromInt(10)))
}

func TestCreateSaleEmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateSale(context.Background(), domain.SaleCreateRequest{})
	require.ErrorIs(t, err, store.ErrEmptyCart)
}

func TestCreateSaleInsufficientStockRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateSale(ctx, domain.SaleCreateRequest{
		Items: []domain.SaleItemInput{
			{ProductID: f.coffee.ID, Quantity: 3},
			{ProductID: f.rice.ID, Quantity: 6},
		},
	})
	require.ErrorIs(t, err, store.ErrInsufficientStock)
	require.ErrorContains(t, err, f.rice.Name)

	// The whole sale rolled back, including the coffee line that succeeded.
	require.Equal(t, 5, f.stockOf(t, f.rice.ID))
	require.Equal(t, 50, f.stockOf(t, f.coffee.ID))
	require.Len(t, f.historyOf(t, f.coffee.ID), 1)

	sales, err := f.repo.ListTransactions(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, sales)
}

func TestCreateSaleUnknownProduct(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateSale(context.Background(), domain.SaleCreateRequest{
		Items: []domain.SaleItemInput{{ProductID: "prod-ghost", Quantity: 1}},
	})
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorContains(t, err, "prod-ghost")
}

func TestCreateSaleDebt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	paid := decimal.NewFromInt(10)
	tx, err := f.svc.CreateSale(ctx, domain.SaleCreateRequest{
		Items: []domain.SaleItemInput{
			{ProductID: f.rice.ID, Quantity: 2},
			{ProductID: f.coffee.ID, Quantity: 4},
		},
		CustomerID:    f.customer.ID,
		PaymentMethod: domain.PaymentDebt,
		PaidAmount:    &paid,
	})
	require.NoError(t, err)
	require.True(t, tx.TotalAmount.Equal(decimal.NewFromInt(30)))
	require.Equal(t, 3, tx.PointsEarned)

	customer := f.customerState(t)
	require.Equal(t, 3, customer.Points)
	require.True(t, customer.TotalDebt.Equal(decimal.NewFromInt(20)))

	records, err := f.repo.ListDebtRecords(ctx, f.customer.ID, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, domain.DebtTypeDebt, records[0].Type)
	require.Equal(t, tx.ID, records[0].TransactionID)
	require.True(t, records[0].Amount.Equal(decimal.NewFromInt(20)))
}

func TestCreateSaleDebtFullyPaidBooksNoDebt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateSale(ctx, domain.SaleCreateRequest{
		Items:         []domain.SaleItemInput{{ProductID: f.coffee.ID, Quantity: 4}},
		CustomerID:    f.customer.ID,
		PaymentMethod: domain.PaymentDebt,
	})
	require.NoError(t, err)

	customer := f.customerState(t)
	require.True(t, customer.TotalDebt.IsZero())
	require.Equal(t, 1, customer.Points)

	records, err := f.repo.ListDebtRecords(ctx, f.customer.ID, 10)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestCreateSaleValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateSale(ctx, domain.SaleCreateRequest{
		Items:         []domain.SaleItemInput{{ProductID: f.rice.ID, Quantity: 1}},
		PaymentMethod: "barter",
	})
	require.ErrorIs(t, err, store.ErrValidation)

	_, err = f.svc.CreateSale(ctx, domain.SaleCreateRequest{
		Items:         []domain.SaleItemInput{{ProductID: f.rice.ID, Quantity: 1}},
		PaymentMethod: domain.PaymentDebt,
	})
	require.ErrorIs(t, err, store.ErrValidation)

	_, err = f.svc.CreateSale(ctx, domain.SaleCreateRequest{
		Items: []domain.SaleItemInput{{ProductID: f.rice.ID, Quantity: 0}},
	})
	require.ErrorIs(t, err, store.ErrValidation)

	require.Equal(t, 5, f.stockOf(t, f.rice.ID))
}

func TestCreateSalePointsFloor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 7 * 2.50 = 17.50, which earns 1 point.
	tx, err := f.svc.CreateSale(ctx, domain.SaleCreateRequest{
		Items:      []domain.SaleItemInput{{ProductID: f.coffee.ID, Quantity: 7}},
		CustomerID: f.customer.ID,
	})
	require.NoError(t, err)
	require.Equal(t, 1, tx.PointsEarned)
	require.Equal(t, 1, f.customerState(t).Points)
}
