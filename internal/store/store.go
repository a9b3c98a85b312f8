package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"tokopintar/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("invalid input")
	ErrEmptyCart         = errors.New("no items in transaction")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrExceedsBalance    = errors.New("payment exceeds total debt")
	ErrProductInUse      = errors.New("product has sales history")
	ErrReversalFailed    = errors.New("transaction reversal failed")
)

// Store is the durable ledger store. Read methods run outside any unit of
// work; every mutation of the four ledgers (stock, stock history, debt,
// debt records) goes through a UnitOfWork obtained from Begin.
type Store interface {
	Begin(ctx context.Context) (UnitOfWork, error)

	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error
	ListDebtRecords(ctx context.Context, customerID string, limit int) ([]domain.DebtRecord, error)

	ListTransactions(ctx context.Context, limit int) ([]domain.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)

	ListStockHistory(ctx context.Context, productID string, limit int) ([]domain.StockHistory, error)
	ListRestocks(ctx context.Context, limit int) ([]domain.StockHistory, error)

	Summary(ctx context.Context) (domain.Summary, error)
	DailySales(ctx context.Context) ([]domain.DailySales, error)
	TopProducts(ctx context.Context, limit int) ([]domain.TopProduct, error)

	GetConfig(ctx context.Context) (domain.StoreConfig, error)
	UpdateConfig(ctx context.Context, cfg domain.StoreConfig) (domain.StoreConfig, error)

	GetUser(ctx context.Context, username string) (*domain.UserAccount, error)
	CreateUser(ctx context.Context, user domain.UserAccount) error
}

// UnitOfWork scopes one atomic ledger operation. All reads through it see
// the same transactional snapshot the writes apply to, and locked rows stay
// locked until Commit or Rollback. Savepoints let batch callers isolate one
// item's failure without abandoning the rest of the batch.
type UnitOfWork interface {
	Commit() error
	Rollback() error

	// Savepoint marks the current state and returns a handle for RollbackTo
	// and Release. Savepoints may nest in stack order.
	Savepoint(ctx context.Context) (string, error)
	RollbackTo(ctx context.Context, name string) error
	Release(ctx context.Context, name string) error

	ProductForUpdate(ctx context.Context, id string) (*domain.Product, error)
	SetProductStock(ctx context.Context, id string, quantity int) error
	AppendStockHistory(ctx context.Context, entry domain.StockHistory) error

	CustomerForUpdate(ctx context.Context, id string) (*domain.Customer, error)
	SetCustomerBalance(ctx context.Context, id string, points int, totalDebt decimal.Decimal) error
	InsertDebtRecord(ctx context.Context, record domain.DebtRecord) error
	DebtRecordsByTransaction(ctx context.Context, transactionID string) ([]domain.DebtRecord, error)
	DeleteDebtRecord(ctx context.Context, id string) error

	InsertTransaction(ctx context.Context, tx domain.Transaction) error
	TransactionForUpdate(ctx context.Context, id string) (*domain.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	TransactionIDsByFilter(ctx context.Context, filter domain.SalesFilter) ([]string, error)
}
