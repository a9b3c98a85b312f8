package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tokopintar/backend/internal/domain"
	"tokopintar/backend/internal/store"
	"tokopintar/backend/internal/xid"
)

var pointsDivisor = decimal.NewFromInt(10)

func validPaymentMethod(method string) bool {
	switch method {
	case domain.PaymentCash, domain.PaymentDebt, domain.PaymentCard, domain.PaymentQRIS:
		return true
	}
	return false
}

// CreateSale runs the whole checkout inside one unit of work: it locks and
// decrements stock per line item with a matching history entry, snapshots the
// sale price per item, accrues loyalty points for the customer, and books the
// unpaid remainder of a debt sale on the customer's ledger. Any failure rolls
// the entire sale back.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (*domain.Transaction, error) {
	if len(req.Items) == 0 {
		return nil, store.ErrEmptyCart
	}
	method := req.PaymentMethod
	if method == "" {
		method = domain.PaymentCash
	}
	if !validPaymentMethod(method) {
		return nil, fmt.Errorf("%w: unknown payment method %q", store.ErrValidation, method)
	}
	if method == domain.PaymentDebt && req.CustomerID == "" {
		return nil, fmt.Errorf("%w: debt sale requires a customer", store.ErrValidation)
	}

	uow, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = uow.Rollback() }()

	txID := xid.New("txn")
	total := decimal.Zero
	items := make([]domain.TransactionItem, 0, len(req.Items))
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive", store.ErrValidation)
		}
		product, err := uow.ProductForUpdate(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, line.ProductID)
			}
			return nil, err
		}
		if err := s.stock.Apply(ctx, uow, product, -line.Quantity, domain.StockChangeSale, "Sale "+txID); err != nil {
			return nil, err
		}
		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		items = append(items, domain.TransactionItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			PriceAtSale: product.Price,
		})
	}

	paid := total
	if req.PaidAmount != nil {
		paid = *req.PaidAmount
	}
	if paid.Sign() < 0 {
		return nil, fmt.Errorf("%w: paid amount cannot be negative", store.ErrInvalidAmount)
	}

	var customer *domain.Customer
	points := 0
	if req.CustomerID != "" {
		customer, err = uow.CustomerForUpdate(ctx, req.CustomerID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("%w: customer %s", store.ErrNotFound, req.CustomerID)
			}
			return nil, err
		}
		points = int(total.Div(pointsDivisor).IntPart())
		customer.Points += points
	}

	tx := domain.Transaction{
		ID:            txID,
		TotalAmount:   total,
		PaidAmount:    paid,
		PaymentMethod: method,
		CustomerID:    req.CustomerID,
		PointsEarned:  points,
		CreatedAt:     time.Now().UTC(),
		Items:         items,
	}
	if err := uow.InsertTransaction(ctx, tx); err != nil {
		return nil, err
	}

	if customer != nil {
		outstanding := total.Sub(paid)
		if method == domain.PaymentDebt && outstanding.Sign() > 0 {
			_, err := s.debt.Add(ctx, uow, customer, outstanding, "Debt from sale "+txID, txID)
			if err != nil {
				return nil, err
			}
		} else {
			if err := uow.SetCustomerBalance(ctx, customer.ID, customer.Points, customer.TotalDebt); err != nil {
				return nil, err
			}
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.invalidateAnalytics(ctx)
	return &tx, nil
}
