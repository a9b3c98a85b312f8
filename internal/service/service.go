// Package service holds the back-office business rules: catalog management,
// the sale engine, transaction reversal, and customer debt handling. Every
// multi-ledger operation runs inside a single unit of work obtained from the
// store and commits exactly once.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tokopintar/backend/internal/cache"
	"tokopintar/backend/internal/domain"
	"tokopintar/backend/internal/ledger"
	"tokopintar/backend/internal/store"
	"tokopintar/backend/internal/xid"
)

const (
	cacheKeySummary     = "analytics:summary"
	cacheKeyDailySales  = "analytics:daily"
	cacheKeyTopProducts = "analytics:top5"
)

type Service struct {
	repo       store.Store
	stock      ledger.StockLedger
	debt       ledger.DebtLedger
	cache      cache.SummaryCache
	summaryTTL time.Duration
	reversal   ReversalPolicy
}

func New(repo store.Store, summaryCache cache.SummaryCache, summaryTTL time.Duration) *Service {
	if summaryCache == nil {
		summaryCache = cache.Noop{}
	}
	if summaryTTL <= 0 {
		summaryTTL = 60 * time.Second
	}
	return &Service{
		repo:       repo,
		cache:      summaryCache,
		summaryTTL: summaryTTL,
		reversal:   DefaultReversalPolicy,
	}
}

// WithReversalPolicy overrides the default missing-product handling for
// reversals. Returns the service for chaining at wiring time.
func (s *Service) WithReversalPolicy(policy ReversalPolicy) *Service {
	s.reversal = policy
	return s
}

type actorKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(domain.Actor)
	return actor, ok
}

// --- catalog ---

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	return s.repo.CreateCategory(ctx, domain.Category{Name: name})
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// CreateProduct registers the product and, when an opening quantity is given,
// books it through the stock ledger so the history trail starts at the same
// figure as the on-hand count.
func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (*domain.Product, error) {
	threshold := 0
	if req.LowStockThreshold != nil {
		threshold = *req.LowStockThreshold
	} else {
		cfg, err := s.repo.GetConfig(ctx)
		if err != nil {
			return nil, err
		}
		threshold = cfg.DefaultLowStockThreshold
	}
	if threshold < 0 || req.StockQuantity < 0 || req.Price.Sign() < 0 {
		return nil, store.ErrValidation
	}

	product, err := s.repo.CreateProduct(ctx, domain.Product{
		ID:                xid.New("prod"),
		Name:              req.Name,
		SKU:               req.SKU,
		Price:             req.Price,
		StockQuantity:     0,
		LowStockThreshold: threshold,
		CategoryID:        req.CategoryID,
		CreatedAt:         time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	if req.StockQuantity > 0 {
		uow, err := s.repo.Begin(ctx)
		if err != nil {
			return nil, err
		}
		defer func() { _ = uow.Rollback() }()

		locked, err := uow.ProductForUpdate(ctx, product.ID)
		if err != nil {
			return nil, err
		}
		if err := s.stock.Apply(ctx, uow, locked, req.StockQuantity, domain.StockChangeInitial, "Initial stock"); err != nil {
			return nil, err
		}
		if err := uow.Commit(); err != nil {
			return nil, err
		}
		product.StockQuantity = locked.StockQuantity
	}

	s.invalidateAnalytics(ctx)
	return product, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (*domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.LowStockThreshold != nil {
		product.LowStockThreshold = *req.LowStockThreshold
	}
	if req.CategoryID != nil {
		product.CategoryID = *req.CategoryID
	}
	updated, err := s.repo.UpdateProduct(ctx, *product)
	if err != nil {
		return nil, err
	}
	s.invalidateAnalytics(ctx)
	return updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.invalidateAnalytics(ctx)
	return nil
}

// RestockProduct adds quantity to the product's stock and books a restock
// history entry, atomically.
func (s *Service) RestockProduct(ctx context.Context, id string, req domain.RestockRequest) (*domain.Product, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: restock quantity must be positive", store.ErrInvalidAmount)
	}

	uow, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = uow.Rollback() }()

	product, err := uow.ProductForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.stock.Apply(ctx, uow, product, req.Quantity, domain.StockChangeRestock, req.Note); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.invalidateAnalytics(ctx)
	return product, nil
}

// CorrectStock sets the on-hand count to the physically counted quantity and
// books the signed difference as a manual update. A count that matches the
// current figure changes nothing and books nothing.
func (s *Service) CorrectStock(ctx context.Context, id string, req domain.StockCorrectionRequest) (*domain.Product, error) {
	if req.CountedQuantity < 0 {
		return nil, fmt.Errorf("%w: counted quantity cannot be negative", store.ErrInvalidAmount)
	}

	uow, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = uow.Rollback() }()

	product, err := uow.ProductForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	delta := req.CountedQuantity - product.StockQuantity
	if delta != 0 {
		if err := s.stock.Apply(ctx, uow, product, delta, domain.StockChangeManualUpdate, req.Note); err != nil {
			return nil, err
		}
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.invalidateAnalytics(ctx)
	return product, nil
}

func (s *Service) StockHistory(ctx context.Context, productID string, limit int) ([]domain.StockHistory, error) {
	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.ListStockHistory(ctx, productID, limit)
}

func (s *Service) Restocks(ctx context.Context, limit int) ([]domain.StockHistory, error) {
	return s.repo.ListRestocks(ctx, limit)
}

// --- customers ---

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (*domain.Customer, error) {
	return s.repo.CreateCustomer(ctx, domain.Customer{
		ID:        xid.New("cust"),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *Service) DeleteCustomer(ctx context.Context, id string) error {
	return s.repo.DeleteCustomer(ctx, id)
}

func (s *Service) DebtHistory(ctx context.Context, customerID string, limit int) ([]domain.DebtRecord, error) {
	if _, err := s.repo.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	return s.repo.ListDebtRecords(ctx, customerID, limit)
}

// --- sales reads ---

func (s *Service) ListTransactions(ctx context.Context, limit int) ([]domain.Transaction, error) {
	return s.repo.ListTransactions(ctx, limit)
}

func (s *Service) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

// --- analytics ---

func (s *Service) Summary(ctx context.Context) (domain.Summary, error) {
	var cached domain.Summary
	if err := s.cache.Get(ctx, cacheKeySummary, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		log.Printf("[service] WARN: summary cache read: %v", err)
	}

	summary, err := s.repo.Summary(ctx)
	if err != nil {
		return domain.Summary{}, err
	}
	if err := s.cache.Set(ctx, cacheKeySummary, summary, s.summaryTTL); err != nil {
		log.Printf("[service] WARN: summary cache write: %v", err)
	}
	return summary, nil
}

func (s *Service) DailySales(ctx context.Context) ([]domain.DailySales, error) {
	var cached []domain.DailySales
	if err := s.cache.Get(ctx, cacheKeyDailySales, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		log.Printf("[service] WARN: daily sales cache read: %v", err)
	}

	days, err := s.repo.DailySales(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, cacheKeyDailySales, days, s.summaryTTL); err != nil {
		log.Printf("[service] WARN: daily sales cache write: %v", err)
	}
	return days, nil
}

func (s *Service) TopProducts(ctx context.Context, limit int) ([]domain.TopProduct, error) {
	if limit < 1 {
		limit = 5
	}
	if limit != 5 {
		return s.repo.TopProducts(ctx, limit)
	}

	var cached []domain.TopProduct
	if err := s.cache.Get(ctx, cacheKeyTopProducts, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		log.Printf("[service] WARN: top products cache read: %v", err)
	}

	top, err := s.repo.TopProducts(ctx, limit)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, cacheKeyTopProducts, top, s.summaryTTL); err != nil {
		log.Printf("[service] WARN: top products cache write: %v", err)
	}
	return top, nil
}

func (s *Service) invalidateAnalytics(ctx context.Context) {
	err := s.cache.Invalidate(ctx, cacheKeySummary, cacheKeyDailySales, cacheKeyTopProducts)
	if err != nil {
		log.Printf("[service] WARN: analytics cache invalidate: %v", err)
	}
}

// --- settings ---

func (s *Service) GetConfig(ctx context.Context) (domain.StoreConfig, error) {
	return s.repo.GetConfig(ctx)
}

func (s *Service) UpdateConfig(ctx context.Context, req domain.StoreConfigUpdateRequest) (domain.StoreConfig, error) {
	cfg, err := s.repo.GetConfig(ctx)
	if err != nil {
		return domain.StoreConfig{}, err
	}
	if req.StoreName != nil {
		cfg.StoreName = *req.StoreName
	}
	if req.StoreAddress != nil {
		cfg.StoreAddress = *req.StoreAddress
	}
	if req.DefaultLowStockThreshold != nil {
		cfg.DefaultLowStockThreshold = *req.DefaultLowStockThreshold
	}
	return s.repo.UpdateConfig(ctx, cfg)
}
