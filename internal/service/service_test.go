package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tokopintar/backend/internal/domain"
	"tokopintar/backend/internal/store/memory"
)

type fixture struct {
	svc      *Service
	repo     *memory.Store
	grocery  domain.Category
	beverage domain.Category
	rice     domain.Product // 10.00, stock 5
	coffee   domain.Product // 2.50, stock 50
	customer domain.Customer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := memory.New()
	svc := New(repo, nil, 0)
	ctx := context.Background()

	grocery, err := svc.CreateCategory(ctx, "Grocery")
	require.NoError(t, err)
	beverage, err := svc.CreateCategory(ctx, "Beverage")
	require.NoError(t, err)

	rice, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Name:          "Beras 5kg",
		SKU:           "SKU-BERAS",
		Price:         decimal.NewFromInt(10),
		StockQuantity: 5,
		CategoryID:    grocery.ID,
	})
	require.NoError(t, err)
	coffee, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Name:          "Kopi Sachet",
		SKU:           "SKU-KOPI",
		Price:         decimal.NewFromFloat(2.5),
		StockQuantity: 50,
		CategoryID:    beverage.ID,
	})
	require.NoError(t, err)

	customer, err := svc.CreateCustomer(ctx, domain.CustomerCreateRequest{Name: "Ibu Sari", Phone: "0812"})
	require.NoError(t, err)

	return &fixture{
		svc:      svc,
		repo:     repo,
		grocery:  *grocery,
		beverage: *beverage,
		rice:     *rice,
		coffee:   *coffee,
		customer: *customer,
	}
}

func (f *fixture) stockOf(t *testing.T, productID string) int {
	t.Helper()
	p, err := f.repo.GetProduct(context.Background(), productID)
	require.NoError(t, err)
	return p.StockQuantity
}

func (f *fixture) customerState(t *testing.T) domain.Customer {
	t.Helper()
	c, err := f.repo.GetCustomer(context.Background(), f.customer.ID)
	require.NoError(t, err)
	return *c
}

func (f *fixture) historyOf(t *testing.T, productID string) []domain.StockHistory {
	t.Helper()
	entries, err := f.repo.ListStockHistory(context.Background(), productID, 100)
	require.NoError(t, err)
	return entries
}
