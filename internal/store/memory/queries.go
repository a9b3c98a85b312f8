package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tokopintar/backend/internal/domain"
	"tokopintar/backend/internal/store"
	"tokopintar/backend/internal/xid"
)

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	categories := make([]domain.Category, 0, len(s.state.categories))
	for _, c := range s.state.categories {
		categories = append(categories, c)
	}
	slices.SortFunc(categories, func(a, b domain.Category) int {
		return strings.Compare(a.Name, b.Name)
	})
	return categories, nil
}

func (s *Store) CreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if category.Name == "" {
		return nil, store.ErrValidation
	}
	for _, existing := range s.state.categories {
		if strings.EqualFold(existing.Name, category.Name) {
			return nil, store.ErrValidation
		}
	}
	if category.ID == "" {
		category.ID = xid.New("cat")
	}
	s.state.categories[category.ID] = category
	created := category
	return &created, nil
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := make([]domain.Product, 0, len(s.state.products))
	for _, p := range s.state.products {
		if c, ok := s.state.categories[p.CategoryID]; ok {
			p.CategoryName = c.Name
		}
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.CategoryName == b.CategoryName {
			return strings.Compare(a.Name, b.Name)
		}
		return strings.Compare(a.CategoryName, b.CategoryName)
	})
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.state.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if c, ok := s.state.categories[p.CategoryID]; ok {
		p.CategoryName = c.Name
	}
	cp := p
	return &cp, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.Name == "" || product.SKU == "" || product.Price.Sign() < 0 {
		return nil, store.ErrValidation
	}
	if _, ok := s.state.categories[product.CategoryID]; !ok {
		return nil, store.ErrNotFound
	}
	for _, existing := range s.state.products {
		if existing.SKU == product.SKU {
			return nil, store.ErrValidation
		}
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	s.state.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.state.products[product.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if product.Name == "" || product.Price.Sign() < 0 {
		return nil, store.ErrValidation
	}
	if _, ok := s.state.categories[product.CategoryID]; !ok {
		return nil, store.ErrNotFound
	}
	// Stock is owned by the stock ledger; updates never touch it.
	product.SKU = existing.SKU
	product.StockQuantity = existing.StockQuantity
	product.CreatedAt = existing.CreatedAt
	s.state.products[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.products[id]; !ok {
		return store.ErrNotFound
	}
	for _, tx := range s.state.transactions {
		for _, item := range tx.Items {
			if item.ProductID == id {
				return store.ErrProductInUse
			}
		}
	}
	delete(s.state.products, id)
	return nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customers := make([]domain.Customer, 0, len(s.state.customers))
	for _, c := range s.state.customers {
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		return strings.Compare(a.Name, b.Name)
	})
	return customers, nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.state.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := c
	return &cp, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.Name == "" {
		return nil, store.ErrValidation
	}
	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	customer.TotalDebt = decimal.Zero
	customer.Points = 0
	s.state.customers[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) DeleteCustomer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.customers[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.state.customers, id)
	for recordID, r := range s.state.debtRecords {
		if r.CustomerID == id {
			delete(s.state.debtRecords, recordID)
		}
	}
	return nil
}

func (s *Store) ListDebtRecords(_ context.Context, customerID string, limit int) ([]domain.DebtRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit < 1 {
		limit = 100
	}
	records := make([]domain.DebtRecord, 0, 16)
	for _, r := range s.state.debtRecords {
		if r.CustomerID == customerID {
			records = append(records, r)
		}
	}
	slices.SortFunc(records, func(a, b domain.DebtRecord) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *Store) ListTransactions(_ context.Context, limit int) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit < 1 {
		limit = 200
	}
	transactions := make([]domain.Transaction, 0, len(s.state.transactions))
	for _, tx := range s.state.transactions {
		transactions = append(transactions, s.withItemNames(tx))
	}
	slices.SortFunc(transactions, func(a, b domain.Transaction) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if len(transactions) > limit {
		transactions = transactions[:limit]
	}
	return transactions, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.state.transactions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := s.withItemNames(tx)
	return &cp, nil
}

func (s *Store) withItemNames(tx domain.Transaction) domain.Transaction {
	items := make([]domain.TransactionItem, len(tx.Items))
	copy(items, tx.Items)
	for i := range items {
		if p, ok := s.state.products[items[i].ProductID]; ok {
			items[i].ProductName = p.Name
		} else if items[i].ProductName == "" {
			items[i].ProductName = "Unknown"
		}
	}
	tx.Items = items
	return tx
}

func (s *Store) ListStockHistory(_ context.Context, productID string, limit int) ([]domain.StockHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit < 1 {
		limit = 200
	}
	entries := make([]domain.StockHistory, 0, 32)
	for _, h := range s.state.stockHistory {
		if h.ProductID == productID {
			entries = append(entries, h)
		}
	}
	sortHistoryDesc(entries)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *Store) ListRestocks(_ context.Context, limit int) ([]domain.StockHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit < 1 {
		limit = 200
	}
	entries := make([]domain.StockHistory, 0, 32)
	for _, h := range s.state.stockHistory {
		if h.ChangeAmount > 0 {
			entries = append(entries, h)
		}
	}
	sortHistoryDesc(entries)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func sortHistoryDesc(entries []domain.StockHistory) {
	slices.SortFunc(entries, func(a, b domain.StockHistory) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
}

func (s *Store) Summary(_ context.Context) (domain.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := domain.Summary{TotalRevenue: decimal.Zero}
	for _, tx := range s.state.transactions {
		summary.TotalRevenue = summary.TotalRevenue.Add(tx.TotalAmount)
		summary.TotalSalesCount++
	}
	for _, p := range s.state.products {
		summary.TotalProducts++
		if p.StockQuantity <= p.LowStockThreshold {
			summary.LowStockCount++
		}
	}
	return summary, nil
}

func (s *Store) DailySales(_ context.Context) ([]domain.DailySales, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byDate := make(map[string]decimal.Decimal)
	for _, tx := range s.state.transactions {
		day := tx.CreatedAt.UTC().Format("2006-01-02")
		byDate[day] = byDate[day].Add(tx.TotalAmount)
	}
	days := make([]domain.DailySales, 0, len(byDate))
	for day, total := range byDate {
		days = append(days, domain.DailySales{Date: day, TotalAmount: total})
	}
	slices.SortFunc(days, func(a, b domain.DailySales) int {
		return strings.Compare(a.Date, b.Date)
	})
	return days, nil
}

func (s *Store) TopProducts(_ context.Context, limit int) ([]domain.TopProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit < 1 {
		limit = 5
	}
	sold := make(map[string]int)
	for _, tx := range s.state.transactions {
		for _, item := range tx.Items {
			sold[item.ProductID] += item.Quantity
		}
	}
	top := make([]domain.TopProduct, 0, len(sold))
	for productID, qty := range sold {
		name := "Unknown"
		if p, ok := s.state.products[productID]; ok {
			name = p.Name
		}
		top = append(top, domain.TopProduct{ProductID: productID, Name: name, TotalSold: qty})
	}
	slices.SortFunc(top, func(a, b domain.TopProduct) int {
		if a.TotalSold == b.TotalSold {
			return strings.Compare(a.ProductID, b.ProductID)
		}
		return b.TotalSold - a.TotalSold
	})
	if len(top) > limit {
		top = top[:limit]
	}
	return top, nil
}

func (s *Store) GetConfig(_ context.Context) (domain.StoreConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.config, nil
}

func (s *Store) UpdateConfig(_ context.Context, cfg domain.StoreConfig) (domain.StoreConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg.StoreName == "" || cfg.DefaultLowStockThreshold < 0 {
		return domain.StoreConfig{}, store.ErrValidation
	}
	s.state.config = cfg
	return cfg, nil
}

func (s *Store) GetUser(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.state.users[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := u
	return &cp, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Username == "" || user.PasswordHash == "" {
		return store.ErrValidation
	}
	if _, exists := s.state.users[user.Username]; exists {
		return store.ErrValidation
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.state.users[user.Username] = user
	return nil
}
