package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"tokopintar/backend/internal/domain"
	"tokopintar/backend/internal/store"
	"tokopintar/backend/internal/xid"
)

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, 16)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	if category.Name == "" {
		return nil, store.ErrValidation
	}
	if category.ID == "" {
		category.ID = xid.New("cat")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name) VALUES ($1,$2)
	`, category.ID, category.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}
	created := category
	return &created, nil
}

const productColumns = `
	p.id, p.name, p.sku, p.price, p.stock_quantity, p.low_stock_threshold,
	p.category_id, c.name, p.created_at
`

func scanProduct(scanner interface{ Scan(...any) error }) (domain.Product, error) {
	var p domain.Product
	var categoryName sql.NullString
	err := scanner.Scan(&p.ID, &p.Name, &p.SKU, &p.Price, &p.StockQuantity,
		&p.LowStockThreshold, &p.CategoryID, &categoryName, &p.CreatedAt)
	if err != nil {
		return domain.Product{}, err
	}
	p.CategoryName = categoryName.String
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		ORDER BY c.name, p.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1
	`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.SKU == "" || product.Price.Sign() < 0 {
		return nil, store.ErrValidation
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, sku, price, stock_quantity, low_stock_threshold, category_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, product.ID, product.Name, product.SKU, product.Price, product.StockQuantity,
		product.LowStockThreshold, product.CategoryID, product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.Price.Sign() < 0 {
		return nil, store.ErrValidation
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, price = $3, low_stock_threshold = $4, category_id = $5
		WHERE id = $1
	`, product.ID, product.Name, product.Price, product.LowStockThreshold, product.CategoryID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, product.ID)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	var inUse bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM transaction_items WHERE product_id = $1)
	`, id).Scan(&inUse)
	if err != nil {
		return err
	}
	if inUse {
		return store.ErrProductInUse
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(email, ''), COALESCE(phone, ''), points, total_debt, created_at
		FROM customers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Points, &c.TotalDebt, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(email, ''), COALESCE(phone, ''), points, total_debt, created_at
		FROM customers
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Points, &c.TotalDebt, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" {
		return nil, store.ErrValidation
	}
	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, email, phone, points, total_debt, created_at)
		VALUES ($1,$2,$3,$4,0,0,$5)
	`, customer.ID, customer.Name, nullIfEmpty(customer.Email), nullIfEmpty(customer.Phone), customer.CreatedAt)
	if err != nil {
		return nil, err
	}
	customer.Points = 0
	customer.TotalDebt = decimal.Zero
	created := customer
	return &created, nil
}

func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) ListDebtRecords(ctx context.Context, customerID string, limit int) ([]domain.DebtRecord, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_id, COALESCE(transaction_id, ''), amount, type, COALESCE(description, ''), created_at
		FROM debt_records
		WHERE customer_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.DebtRecord, 0, limit)
	for rows.Next() {
		var r domain.DebtRecord
		if err := rows.Scan(&r.ID, &r.CustomerID, &r.TransactionID, &r.Amount, &r.Type, &r.Description, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.CreatedAt = r.CreatedAt.UTC()
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) ListTransactions(ctx context.Context, limit int) ([]domain.Transaction, error) {
	if limit < 1 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, total_amount, paid_amount, payment_method, COALESCE(customer_id, ''), points_earned, created_at
		FROM transactions
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := make([]domain.Transaction, 0, limit)
	index := make(map[string]int, limit)
	for rows.Next() {
		var tx domain.Transaction
		if err := rows.Scan(&tx.ID, &tx.TotalAmount, &tx.PaidAmount, &tx.PaymentMethod, &tx.CustomerID, &tx.PointsEarned, &tx.CreatedAt); err != nil {
			return nil, err
		}
		tx.CreatedAt = tx.CreatedAt.UTC()
		tx.Items = []domain.TransactionItem{}
		index[tx.ID] = len(transactions)
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(transactions) == 0 {
		return transactions, nil
	}

	ids := make([]string, 0, len(transactions))
	for _, tx := range transactions {
		ids = append(ids, tx.ID)
	}
	itemRows, err := s.db.QueryContext(ctx, `
		SELECT ti.transaction_id, ti.product_id, COALESCE(p.name, 'Unknown'), ti.quantity, ti.price_at_sale
		FROM transaction_items ti
		LEFT JOIN products p ON p.id = ti.product_id
		WHERE ti.transaction_id = ANY($1)
		ORDER BY ti.id
	`, ids)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var txID string
		var item domain.TransactionItem
		if err := itemRows.Scan(&txID, &item.ProductID, &item.ProductName, &item.Quantity, &item.PriceAtSale); err != nil {
			return nil, err
		}
		if i, ok := index[txID]; ok {
			transactions[i].Items = append(transactions[i].Items, item)
		}
	}
	return transactions, itemRows.Err()
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	var tx domain.Transaction
	err := s.db.QueryRowContext(ctx, `
		SELECT id, total_amount, paid_amount, payment_method, COALESCE(customer_id, ''), points_earned, created_at
		FROM transactions
		WHERE id = $1
	`, id).Scan(&tx.ID, &tx.TotalAmount, &tx.PaidAmount, &tx.PaymentMethod, &tx.CustomerID, &tx.PointsEarned, &tx.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	tx.CreatedAt = tx.CreatedAt.UTC()

	rows, err := s.db.QueryContext(ctx, `
		SELECT ti.product_id, COALESCE(p.name, 'Unknown'), ti.quantity, ti.price_at_sale
		FROM transaction_items ti
		LEFT JOIN products p ON p.id = ti.product_id
		WHERE ti.transaction_id = $1
		ORDER BY ti.id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.TransactionItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Quantity, &item.PriceAtSale); err != nil {
			return nil, err
		}
		tx.Items = append(tx.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (s *Store) ListStockHistory(ctx context.Context, productID string, limit int) ([]domain.StockHistory, error) {
	if limit < 1 {
		limit = 200
	}
	return s.queryStockHistory(ctx, `
		SELECT id, product_id, change_amount, change_type, COALESCE(note, ''), created_at
		FROM stock_history
		WHERE product_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, productID, limit)
}

func (s *Store) ListRestocks(ctx context.Context, limit int) ([]domain.StockHistory, error) {
	if limit < 1 {
		limit = 200
	}
	return s.queryStockHistory(ctx, `
		SELECT id, product_id, change_amount, change_type, COALESCE(note, ''), created_at
		FROM stock_history
		WHERE change_amount > 0
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
}

func (s *Store) queryStockHistory(ctx context.Context, query string, args ...any) ([]domain.StockHistory, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.StockHistory, 0, 64)
	for rows.Next() {
		var h domain.StockHistory
		if err := rows.Scan(&h.ID, &h.ProductID, &h.ChangeAmount, &h.ChangeType, &h.Note, &h.CreatedAt); err != nil {
			return nil, err
		}
		h.CreatedAt = h.CreatedAt.UTC()
		entries = append(entries, h)
	}
	return entries, rows.Err()
}

func (s *Store) Summary(ctx context.Context) (domain.Summary, error) {
	var summary domain.Summary
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_amount), 0), COUNT(*) FROM transactions
	`).Scan(&summary.TotalRevenue, &summary.TotalSalesCount)
	if err != nil {
		return domain.Summary{}, err
	}
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE stock_quantity <= low_stock_threshold)
		FROM products
	`).Scan(&summary.TotalProducts, &summary.LowStockCount)
	if err != nil {
		return domain.Summary{}, err
	}
	return summary, nil
}

func (s *Store) DailySales(ctx context.Context) ([]domain.DailySales, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, SUM(total_amount)
		FROM transactions
		GROUP BY day
		ORDER BY day
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	days := make([]domain.DailySales, 0, 32)
	for rows.Next() {
		var d domain.DailySales
		if err := rows.Scan(&d.Date, &d.TotalAmount); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

func (s *Store) TopProducts(ctx context.Context, limit int) ([]domain.TopProduct, error) {
	if limit < 1 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT ti.product_id, COALESCE(p.name, 'Unknown'), SUM(ti.quantity) AS total_sold
		FROM transaction_items ti
		LEFT JOIN products p ON p.id = ti.product_id
		GROUP BY ti.product_id, p.name
		ORDER BY total_sold DESC, ti.product_id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	top := make([]domain.TopProduct, 0, limit)
	for rows.Next() {
		var t domain.TopProduct
		if err := rows.Scan(&t.ProductID, &t.Name, &t.TotalSold); err != nil {
			return nil, err
		}
		top = append(top, t)
	}
	return top, rows.Err()
}

func (s *Store) GetConfig(ctx context.Context) (domain.StoreConfig, error) {
	var cfg domain.StoreConfig
	err := s.db.QueryRowContext(ctx, `
		SELECT store_name, store_address, default_low_stock_threshold
		FROM store_config
		WHERE id = 1
	`).Scan(&cfg.StoreName, &cfg.StoreAddress, &cfg.DefaultLowStockThreshold)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.StoreConfig{StoreName: "My Store", StoreAddress: "Jakarta, Indonesia", DefaultLowStockThreshold: 10}, nil
		}
		return domain.StoreConfig{}, err
	}
	return cfg, nil
}

func (s *Store) UpdateConfig(ctx context.Context, cfg domain.StoreConfig) (domain.StoreConfig, error) {
	if cfg.StoreName == "" || cfg.DefaultLowStockThreshold < 0 {
		return domain.StoreConfig{}, store.ErrValidation
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO store_config (id, store_name, store_address, default_low_stock_threshold)
		VALUES (1,$1,$2,$3)
		ON CONFLICT (id) DO UPDATE
		SET store_name = EXCLUDED.store_name,
			store_address = EXCLUDED.store_address,
			default_low_stock_threshold = EXCLUDED.default_low_stock_threshold
	`, cfg.StoreName, cfg.StoreAddress, cfg.DefaultLowStockThreshold)
	if err != nil {
		return domain.StoreConfig{}, err
	}
	return cfg, nil
}

func (s *Store) GetUser(ctx context.Context, username string) (*domain.UserAccount, error) {
	var u domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT username, password_hash, role, active, created_at
		FROM users
		WHERE username = $1
	`, username).Scan(&u.Username, &u.PasswordHash, &u.Role, &u.Active, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.PasswordHash == "" {
		return store.ErrValidation
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.PasswordHash, user.Role, user.Active, user.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return store.ErrValidation
	}
	return err
}
