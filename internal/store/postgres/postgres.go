// Package postgres implements the ledger store on PostgreSQL through
// database/sql with the pgx stdlib driver. Every unit of work runs as a
// serializable transaction and locks the rows it is about to mutate with
// SELECT ... FOR UPDATE, so stock and debt checks are evaluated against the
// same snapshot as the mutation that follows them.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"tokopintar/backend/internal/domain"
	"tokopintar/backend/internal/store"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates any missing tables and indexes. Intended for dev and
// fresh deployments; production schema changes go through migrations.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO store_config (id) VALUES (1)
		ON CONFLICT (id) DO NOTHING
	`)
	return err
}

// --- unit of work ---

type unitOfWork struct {
	tx  *sql.Tx
	seq int
}

func (s *Store) Begin(ctx context.Context) (store.UnitOfWork, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	return &unitOfWork{tx: tx}, nil
}

func (u *unitOfWork) Commit() error {
	return u.tx.Commit()
}

func (u *unitOfWork) Rollback() error {
	err := u.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func (u *unitOfWork) Savepoint(ctx context.Context) (string, error) {
	u.seq++
	name := fmt.Sprintf("sp_%d", u.seq)
	if _, err := u.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return "", err
	}
	return name, nil
}

func (u *unitOfWork) RollbackTo(ctx context.Context, name string) error {
	_, err := u.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name)
	return err
}

func (u *unitOfWork) Release(ctx context.Context, name string) error {
	_, err := u.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name)
	return err
}

func (u *unitOfWork) ProductForUpdate(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := u.tx.QueryRowContext(ctx, `
		SELECT id, name, sku, price, stock_quantity, low_stock_threshold, category_id, created_at
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&p.ID, &p.Name, &p.SKU, &p.Price, &p.StockQuantity, &p.LowStockThreshold, &p.CategoryID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

func (u *unitOfWork) SetProductStock(ctx context.Context, id string, quantity int) error {
	res, err := u.tx.ExecContext(ctx, `
		UPDATE products SET stock_quantity = $2 WHERE id = $1
	`, id, quantity)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (u *unitOfWork) AppendStockHistory(ctx context.Context, entry domain.StockHistory) error {
	_, err := u.tx.ExecContext(ctx, `
		INSERT INTO stock_history (id, product_id, change_amount, change_type, note, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, entry.ID, entry.ProductID, entry.ChangeAmount, entry.ChangeType, entry.Note, entry.CreatedAt)
	return err
}

func (u *unitOfWork) CustomerForUpdate(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	var email, phone sql.NullString
	err := u.tx.QueryRowContext(ctx, `
		SELECT id, name, email, phone, points, total_debt, created_at
		FROM customers
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&c.ID, &c.Name, &email, &phone, &c.Points, &c.TotalDebt, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	c.Email = email.String
	c.Phone = phone.String
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (u *unitOfWork) SetCustomerBalance(ctx context.Context, id string, points int, totalDebt decimal.Decimal) error {
	res, err := u.tx.ExecContext(ctx, `
		UPDATE customers SET points = $2, total_debt = $3 WHERE id = $1
	`, id, points, totalDebt)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (u *unitOfWork) InsertDebtRecord(ctx context.Context, record domain.DebtRecord) error {
	_, err := u.tx.ExecContext(ctx, `
		INSERT INTO debt_records (id, customer_id, transaction_id, amount, type, description, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, record.ID, record.CustomerID, nullIfEmpty(record.TransactionID), record.Amount, record.Type, record.Description, record.CreatedAt)
	return err
}

func (u *unitOfWork) DebtRecordsByTransaction(ctx context.Context, transactionID string) ([]domain.DebtRecord, error) {
	rows, err := u.tx.QueryContext(ctx, `
		SELECT id, customer_id, COALESCE(transaction_id, ''), amount, type, COALESCE(description, ''), created_at
		FROM debt_records
		WHERE transaction_id = $1
		ORDER BY id
		FOR UPDATE
	`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.DebtRecord, 0, 2)
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

func (u *unitOfWork) DeleteDebtRecord(ctx context.Context, id string) error {
	res, err := u.tx.ExecContext(ctx, `DELETE FROM debt_records WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (u *unitOfWork) InsertTransaction(ctx context.Context, tx domain.Transaction) error {
	_, err := u.tx.ExecContext(ctx, `
		INSERT INTO transactions (id, total_amount, paid_amount, payment_method, customer_id, points_earned, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, tx.ID, tx.TotalAmount, tx.PaidAmount, tx.PaymentMethod, nullIfEmpty(tx.CustomerID), tx.PointsEarned, tx.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrValidation
		}
		return err
	}

	for _, item := range tx.Items {
		_, err := u.tx.ExecContext(ctx, `
			INSERT INTO transaction_items (transaction_id, product_id, quantity, price_at_sale)
			VALUES ($1,$2,$3,$4)
		`, tx.ID, item.ProductID, item.Quantity, item.PriceAtSale)
		if err != nil {
			return err
		}
	}
	return nil
}

func (u *unitOfWork) TransactionForUpdate(ctx context.Context, id string) (*domain.Transaction, error) {
	var tx domain.Transaction
	var customerID sql.NullString
	err := u.tx.QueryRowContext(ctx, `
		SELECT id, total_amount, paid_amount, payment_method, customer_id, points_earned, created_at
		FROM transactions
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&tx.ID, &tx.TotalAmount, &tx.PaidAmount, &tx.PaymentMethod, &customerID, &tx.PointsEarned, &tx.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	tx.CustomerID = customerID.String
	tx.CreatedAt = tx.CreatedAt.UTC()

	rows, err := u.tx.QueryContext(ctx, `
		SELECT product_id, quantity, price_at_sale
		FROM transaction_items
		WHERE transaction_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.TransactionItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.PriceAtSale); err != nil {
			return nil, err
		}
		tx.Items = append(tx.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (u *unitOfWork) DeleteTransaction(ctx context.Context, id string) error {
	res, err := u.tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (u *unitOfWork) TransactionIDsByFilter(ctx context.Context, filter domain.SalesFilter) ([]string, error) {
	var rows *sql.Rows
	var err error
	switch {
	case filter.ProductID != "":
		rows, err = u.tx.QueryContext(ctx, `
			SELECT t.id
			FROM transactions t
			WHERE EXISTS (
				SELECT 1 FROM transaction_items ti
				WHERE ti.transaction_id = t.id AND ti.product_id = $1
			)
			ORDER BY t.created_at, t.id
		`, filter.ProductID)
	case filter.CategoryID != "":
		rows, err = u.tx.QueryContext(ctx, `
			SELECT t.id
			FROM transactions t
			WHERE EXISTS (
				SELECT 1
				FROM transaction_items ti
				JOIN products p ON p.id = ti.product_id
				WHERE ti.transaction_id = t.id AND p.category_id = $1
			)
			ORDER BY t.created_at, t.id
		`, filter.CategoryID)
	default:
		return nil, store.ErrValidation
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0, 16)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- helpers ---

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}
