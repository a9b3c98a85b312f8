package service

import (
	"context"

	"tokopintar/backend/internal/domain"
)

// PayDebt records a manual payment against the customer's outstanding
// balance. The ledger rejects non-positive amounts and overpayments.
func (s *Service) PayDebt(ctx context.Context, customerID string, req domain.DebtPaymentRequest) (*domain.DebtChangeResponse, error) {
	uow, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = uow.Rollback() }()

	customer, err := uow.CustomerForUpdate(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.debt.Pay(ctx, uow, customer, req.Amount, req.Description); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	return &domain.DebtChangeResponse{CustomerID: customer.ID, NewDebt: customer.TotalDebt}, nil
}

// AdjustDebt sets the customer's balance to the requested figure and records
// the difference. Setting the balance to its current value is a no-op.
func (s *Service) AdjustDebt(ctx context.Context, customerID string, req domain.DebtAdjustRequest) (*domain.DebtChangeResponse, error) {
	uow, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = uow.Rollback() }()

	customer, err := uow.CustomerForUpdate(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.debt.Adjust(ctx, uow, customer, req.NewDebt, req.Description); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	return &domain.DebtChangeResponse{CustomerID: customer.ID, NewDebt: customer.TotalDebt}, nil
}
