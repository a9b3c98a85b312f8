package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"tokopintar/backend/internal/domain"
	"tokopintar/backend/internal/store"
)

const (
	// MissingProductSkip restores stock for the products that still exist
	// and records the rest as skipped.
	MissingProductSkip = "skip"
	// MissingProductFail aborts the reversal when any line item's product
	// has been deleted.
	MissingProductFail = "fail"
)

// ReversalPolicy names the fallback behavior a reversal applies when the
// world has changed since the sale was made.
type ReversalPolicy struct {
	OnMissingProduct string
}

var DefaultReversalPolicy = ReversalPolicy{OnMissingProduct: MissingProductSkip}

// ReversalOutcome reports what a reversal actually did, including which
// fallbacks fired.
type ReversalOutcome struct {
	TransactionID   string          `json:"transaction_id"`
	SkippedProducts []string        `json:"skipped_products,omitempty"`
	PointsRemoved   int             `json:"points_removed"`
	DebtReverted    decimal.Decimal `json:"debt_reverted"`
}

// removeTransaction undoes one sale inside the caller's unit of work: stock
// goes back with a revert_delete history entry, the customer loses the points
// the sale earned (floored at zero), debt records tied to the sale are
// removed with the balance reversed, and the transaction row goes away. The
// caller commits.
func (s *Service) removeTransaction(ctx context.Context, uow store.UnitOfWork, id string) (*ReversalOutcome, error) {
	tx, err := uow.TransactionForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}

	outcome := &ReversalOutcome{TransactionID: id, DebtReverted: decimal.Zero}
	for _, item := range tx.Items {
		product, err := uow.ProductForUpdate(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				if s.reversal.OnMissingProduct == MissingProductFail {
					return nil, fmt.Errorf("%w: product %s no longer exists", store.ErrReversalFailed, item.ProductID)
				}
				log.Printf("[service] WARN: reversal of %s: product %s missing, skipping stock restore", id, item.ProductID)
				outcome.SkippedProducts = append(outcome.SkippedProducts, item.ProductID)
				continue
			}
			return nil, err
		}
		if err := s.stock.Apply(ctx, uow, product, item.Quantity, domain.StockChangeRevertDelete, "Reversal of sale "+id); err != nil {
			return nil, err
		}
	}

	var customer *domain.Customer
	if tx.CustomerID != "" {
		customer, err = uow.CustomerForUpdate(ctx, tx.CustomerID)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				return nil, err
			}
			log.Printf("[service] WARN: reversal of %s: customer %s missing, skipping points and debt restore", id, tx.CustomerID)
			customer = nil
		}
	}

	if customer != nil && tx.PointsEarned > 0 {
		removed := tx.PointsEarned
		if removed > customer.Points {
			removed = customer.Points
		}
		customer.Points -= removed
		outcome.PointsRemoved = removed
	}

	reverted, err := s.debt.RevertForTransaction(ctx, uow, customer, id)
	if err != nil {
		return nil, err
	}
	outcome.DebtReverted = reverted

	if customer != nil {
		if err := uow.SetCustomerBalance(ctx, customer.ID, customer.Points, customer.TotalDebt); err != nil {
			return nil, err
		}
	}

	if err := uow.DeleteTransaction(ctx, id); err != nil {
		return nil, err
	}
	return outcome, nil
}

// DeleteSale reverses a single transaction atomically.
func (s *Service) DeleteSale(ctx context.Context, id string) (*ReversalOutcome, error) {
	uow, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = uow.Rollback() }()

	outcome, err := s.removeTransaction(ctx, uow, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrReversalFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", store.ErrReversalFailed, err)
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrReversalFailed, err)
	}

	s.invalidateAnalytics(ctx)
	return outcome, nil
}

// BulkDeleteSales reverses each listed transaction under one unit of work,
// isolating failures with savepoints so one bad id does not abandon the
// batch. The surviving reversals commit together at the end.
func (s *Service) BulkDeleteSales(ctx context.Context, ids []string) (*domain.BulkDeleteResult, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no transaction ids given", store.ErrValidation)
	}

	uow, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = uow.Rollback() }()

	result := &domain.BulkDeleteResult{
		Deleted: make([]string, 0, len(ids)),
		Failed:  make(map[string]string),
	}
	for _, id := range ids {
		name, err := uow.Savepoint(ctx)
		if err != nil {
			return nil, err
		}
		if _, rerr := s.removeTransaction(ctx, uow, id); rerr != nil {
			if err := uow.RollbackTo(ctx, name); err != nil {
				return nil, err
			}
			log.Printf("[service] WARN: bulk reversal: %s failed: %v", id, rerr)
			result.Failed[id] = rerr.Error()
			continue
		}
		if err := uow.Release(ctx, name); err != nil {
			return nil, err
		}
		result.Deleted = append(result.Deleted, id)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrReversalFailed, err)
	}

	s.invalidateAnalytics(ctx)
	return result, nil
}

// DeleteSalesByFilter resolves the filter to transaction ids inside the unit
// of work and then reverses them the same way BulkDeleteSales does.
func (s *Service) DeleteSalesByFilter(ctx context.Context, filter domain.SalesFilter) (*domain.FilterDeleteResult, error) {
	if filter.ProductID == "" && filter.CategoryID == "" {
		return nil, fmt.Errorf("%w: filter needs a product or category", store.ErrValidation)
	}
	if filter.ProductID != "" {
		filter.CategoryID = ""
	}

	uow, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = uow.Rollback() }()

	ids, err := uow.TransactionIDsByFilter(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := &domain.FilterDeleteResult{
		Deleted: make([]string, 0, len(ids)),
		Failed:  make(map[string]string),
	}
	for _, id := range ids {
		name, err := uow.Savepoint(ctx)
		if err != nil {
			return nil, err
		}
		if _, rerr := s.removeTransaction(ctx, uow, id); rerr != nil {
			if err := uow.RollbackTo(ctx, name); err != nil {
				return nil, err
			}
			log.Printf("[service] WARN: filter reversal: %s failed: %v", id, rerr)
			result.Failed[id] = rerr.Error()
			continue
		}
		if err := uow.Release(ctx, name); err != nil {
			return nil, err
		}
		result.Deleted = append(result.Deleted, id)
	}
	result.DeletedCount = len(result.Deleted)

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrReversalFailed, err)
	}

	s.invalidateAnalytics(ctx)
	return result, nil
}
