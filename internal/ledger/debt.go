package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tokopintar/backend/internal/domain"
	"tokopintar/backend/internal/store"
	"tokopintar/backend/internal/xid"
)

// DebtLedger applies signed deltas to a customer's outstanding balance and
// appends one DebtRecord per change. The customer's TotalDebt field is
// mutated in place so callers see the running balance; the row update goes
// through the unit of work.
type DebtLedger struct{}

// Add increases the customer's debt by amount (> 0) and links the record to
// transactionID when the debt originates from a sale.
func (DebtLedger) Add(ctx context.Context, uow store.UnitOfWork, customer *domain.Customer, amount decimal.Decimal, description string, transactionID string) (*domain.DebtRecord, error) {
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: debt amount must be positive", store.ErrInvalidAmount)
	}

	customer.TotalDebt = customer.TotalDebt.Add(amount)
	if err := uow.SetCustomerBalance(ctx, customer.ID, customer.Points, customer.TotalDebt); err != nil {
		return nil, err
	}

	record := domain.DebtRecord{
		ID:            xid.New("debt"),
		CustomerID:    customer.ID,
		TransactionID: transactionID,
		Amount:        amount,
		Type:          domain.DebtTypeDebt,
		Description:   description,
		CreatedAt:     time.Now().UTC(),
	}
	if err := uow.InsertDebtRecord(ctx, record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Pay reduces the customer's debt by amount. Fails with ErrInvalidAmount for
// non-positive amounts and ErrExceedsBalance when amount is larger than the
// outstanding debt, both before any mutation.
func (DebtLedger) Pay(ctx context.Context, uow store.UnitOfWork, customer *domain.Customer, amount decimal.Decimal, description string) (*domain.DebtRecord, error) {
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: payment must be positive", store.ErrInvalidAmount)
	}
	if amount.GreaterThan(customer.TotalDebt) {
		return nil, fmt.Errorf("%w for customer %s", store.ErrExceedsBalance, customer.Name)
	}

	customer.TotalDebt = customer.TotalDebt.Sub(amount)
	if err := uow.SetCustomerBalance(ctx, customer.ID, customer.Points, customer.TotalDebt); err != nil {
		return nil, err
	}

	if description == "" {
		description = "Debt Payment"
	}
	record := domain.DebtRecord{
		ID:          xid.New("debt"),
		CustomerID:  customer.ID,
		Amount:      amount.Neg(),
		Type:        domain.DebtTypePayment,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := uow.InsertDebtRecord(ctx, record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Adjust sets the customer's debt to newTotal directly, recording the signed
// difference. A zero difference is a no-op and produces no record; the
// balance is assigned rather than accumulated so repeated adjustments cannot
// drift.
func (DebtLedger) Adjust(ctx context.Context, uow store.UnitOfWork, customer *domain.Customer, newTotal decimal.Decimal, description string) (*domain.DebtRecord, error) {
	if newTotal.Sign() < 0 {
		return nil, fmt.Errorf("%w: debt cannot be negative", store.ErrInvalidAmount)
	}

	diff := newTotal.Sub(customer.TotalDebt)
	if diff.IsZero() {
		return nil, nil
	}

	customer.TotalDebt = newTotal
	if err := uow.SetCustomerBalance(ctx, customer.ID, customer.Points, customer.TotalDebt); err != nil {
		return nil, err
	}

	if description == "" {
		description = "Manual debt adjustment"
	}
	record := domain.DebtRecord{
		ID:          xid.New("debt"),
		CustomerID:  customer.ID,
		Amount:      diff,
		Type:        domain.DebtTypeAdjustment,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := uow.InsertDebtRecord(ctx, record); err != nil {
		return nil, err
	}
	return &record, nil
}

// RevertForTransaction removes every debt record tied to transactionID and
// subtracts each record's amount from the customer's balance, exactly
// inverting what the sale applied. Customer may be nil when it was deleted
// after the sale; the records are still removed so no orphan rows survive
// the reversal.
func (DebtLedger) RevertForTransaction(ctx context.Context, uow store.UnitOfWork, customer *domain.Customer, transactionID string) (decimal.Decimal, error) {
	records, err := uow.DebtRecordsByTransaction(ctx, transactionID)
	if err != nil {
		return decimal.Zero, err
	}

	reverted := decimal.Zero
	for _, record := range records {
		if customer != nil {
			customer.TotalDebt = customer.TotalDebt.Sub(record.Amount)
		}
		reverted = reverted.Add(record.Amount)
		if err := uow.DeleteDebtRecord(ctx, record.ID); err != nil {
			return decimal.Zero, err
		}
	}

	if customer != nil && len(records) > 0 {
		if err := uow.SetCustomerBalance(ctx, customer.ID, customer.Points, customer.TotalDebt); err != nil {
			return decimal.Zero, err
		}
	}
	return reverted, nil
}
