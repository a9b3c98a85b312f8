package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tokopintar/backend/internal/domain"
	"tokopintar/backend/internal/store"
)

func TestPayDebt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AdjustDebt(ctx, f.customer.ID, domain.DebtAdjustRequest{NewDebt: decimal.NewFromInt(100)})
	require.NoError(t, err)

	resp, err := f.svc.PayDebt(ctx, f.customer.ID, domain.DebtPaymentRequest{Amount: decimal.NewFromInt(40)})
	require.NoError(t, err)
	require.True(t, resp.NewDebt.Equal(decimal.NewFromInt(60)))

	records, err := f.repo.ListDebtRecords(ctx, f.customer.ID, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, domain.DebtTypePayment, records[0].Type)
	require.True(t, records[0].Amount.Equal(decimal.NewFromInt(-40)))
}

func TestPayDebtOverBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AdjustDebt(ctx, f.customer.ID, domain.DebtAdjustRequest{NewDebt: decimal.NewFromInt(100)})
	require.NoError(t, err)

	_, err = f.svc.PayDebt(ctx, f.customer.ID, domain.DebtPaymentRequest{Amount: decimal.NewFromInt(150)})
	require.ErrorIs(t, err, store.ErrExceedsBalance)

	customer := f.customerState(t)
	require.True(t, customer.TotalDebt.Equal(decimal.NewFromInt(100)))

	records, err := f.repo.ListDebtRecords(ctx, f.customer.ID, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestPayDebtUnknownCustomer(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.PayDebt(context.Background(), "cust-ghost", domain.DebtPaymentRequest{Amount: decimal.NewFromInt(10)})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAdjustDebt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.AdjustDebt(ctx, f.customer.ID, domain.DebtAdjustRequest{NewDebt: decimal.NewFromInt(75), Description: "opening balance"})
	require.NoError(t, err)
	require.True(t, resp.NewDebt.Equal(decimal.NewFromInt(75)))

	// Same figure again: balance untouched, no extra record.
	resp, err = f.svc.AdjustDebt(ctx, f.customer.ID, domain.DebtAdjustRequest{NewDebt: decimal.NewFromInt(75)})
	require.NoError(t, err)
	require.True(t, resp.NewDebt.Equal(decimal.NewFromInt(75)))

	records, err := f.repo.ListDebtRecords(ctx, f.customer.ID, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	_, err = f.svc.AdjustDebt(ctx, f.customer.ID, domain.DebtAdjustRequest{NewDebt: decimal.NewFromInt(-5)})
	require.ErrorIs(t, err, store.ErrInvalidAmount)
}

func TestDebtHistoryRequiresCustomer(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.DebtHistory(context.Background(), "cust-ghost", 10)
	require.ErrorIs(t, err, store.ErrNotFound)
}
