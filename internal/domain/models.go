package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Product struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	SKU               string          `json:"sku"`
	Price             decimal.Decimal `json:"price"`
	StockQuantity     int             `json:"stock_quantity"`
	LowStockThreshold int             `json:"low_stock_threshold"`
	CategoryID        string          `json:"category_id"`
	CategoryName      string          `json:"category_name,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

type ProductCreateRequest struct {
	Name              string          `json:"name" validate:"required"`
	SKU               string          `json:"sku" validate:"required"`
	Price             decimal.Decimal `json:"price"`
	StockQuantity     int             `json:"stock_quantity" validate:"min=0"`
	LowStockThreshold *int            `json:"low_stock_threshold,omitempty"`
	CategoryID        string          `json:"category_id" validate:"required"`
}

type ProductUpdateRequest struct {
	Name              *string          `json:"name,omitempty"`
	Price             *decimal.Decimal `json:"price,omitempty"`
	LowStockThreshold *int             `json:"low_stock_threshold,omitempty"`
	CategoryID        *string          `json:"category_id,omitempty"`
}

type RestockRequest struct {
	Quantity int    `json:"quantity" validate:"gt=0"`
	Note     string `json:"note"`
}

type StockCorrectionRequest struct {
	CountedQuantity int    `json:"counted_quantity" validate:"min=0"`
	Note            string `json:"note"`
}

type Customer struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email,omitempty"`
	Phone     string          `json:"phone,omitempty"`
	Points    int             `json:"points"`
	TotalDebt decimal.Decimal `json:"total_debt"`
	CreatedAt time.Time       `json:"created_at"`
}

type CustomerCreateRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// DebtRecord is one append-only ledger entry on a customer's outstanding
// balance. Amount is signed: positive adds debt, negative pays it down.
// TransactionID is set only for records created by a sale; manual payments
// and adjustments leave it empty.
type DebtRecord struct {
	ID            string          `json:"id"`
	CustomerID    string          `json:"customer_id"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Type          string          `json:"type"`
	Description   string          `json:"description"`
	CreatedAt     time.Time       `json:"date"`
}

// StockHistory is one append-only audit entry on a product's on-hand
// quantity. Every stock change, whatever its cause, produces exactly one
// row whose ChangeAmount equals the delta applied.
type StockHistory struct {
	ID           string    `json:"id"`
	ProductID    string    `json:"product_id"`
	ChangeAmount int       `json:"change_amount"`
	ChangeType   string    `json:"change_type"`
	Note         string    `json:"note"`
	CreatedAt    time.Time `json:"timestamp"`
}

type TransactionItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int             `json:"quantity"`
	PriceAtSale decimal.Decimal `json:"price_at_sale"`
}

type Transaction struct {
	ID            string            `json:"id"`
	TotalAmount   decimal.Decimal   `json:"total_amount"`
	PaidAmount    decimal.Decimal   `json:"paid_amount"`
	PaymentMethod string            `json:"payment_method"`
	CustomerID    string            `json:"customer_id,omitempty"`
	PointsEarned  int               `json:"points_earned"`
	CreatedAt     time.Time         `json:"date"`
	Items         []TransactionItem `json:"items"`
}

type SaleItemInput struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

type SaleCreateRequest struct {
	Items         []SaleItemInput  `json:"items" validate:"dive"`
	CustomerID    string           `json:"customer_id,omitempty"`
	PaymentMethod string           `json:"payment_method"`
	PaidAmount    *decimal.Decimal `json:"paid_amount,omitempty"`
}

type BulkDeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1"`
}

// SalesFilter selects transactions for filter-deletion. Exactly one of
// ProductID or CategoryID must be set; ProductID wins when both are.
type SalesFilter struct {
	ProductID  string `json:"product_id,omitempty"`
	CategoryID string `json:"category_id,omitempty"`
}

type BulkDeleteResult struct {
	Deleted []string          `json:"deleted"`
	Failed  map[string]string `json:"failed"`
}

type FilterDeleteResult struct {
	DeletedCount int               `json:"deleted_count"`
	Deleted      []string          `json:"deleted"`
	Failed       map[string]string `json:"failed"`
}

type DebtPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type DebtAdjustRequest struct {
	NewDebt     decimal.Decimal `json:"new_debt"`
	Description string          `json:"description"`
}

type DebtChangeResponse struct {
	CustomerID string          `json:"customer_id"`
	NewDebt    decimal.Decimal `json:"new_debt"`
}

type Summary struct {
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	TotalSalesCount int             `json:"total_sales_count"`
	TotalProducts   int             `json:"total_products"`
	LowStockCount   int             `json:"low_stock_count"`
}

type DailySales struct {
	Date        string          `json:"date"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type TopProduct struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	TotalSold int    `json:"total_sold"`
}

type StoreConfig struct {
	StoreName                string `json:"store_name"`
	StoreAddress             string `json:"store_address"`
	DefaultLowStockThreshold int    `json:"default_low_stock_threshold"`
}

type StoreConfigUpdateRequest struct {
	StoreName                *string `json:"store_name,omitempty"`
	StoreAddress             *string `json:"store_address,omitempty"`
	DefaultLowStockThreshold *int    `json:"default_low_stock_threshold,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username     string
	PasswordHash string
	Role         string
	Active       bool
	CreatedAt    time.Time
}

const (
	StockChangeInitial      = "initial"
	StockChangeSale         = "sale"
	StockChangeRestock      = "restock"
	StockChangeManualUpdate = "manual_update"
	StockChangeRevertDelete = "revert_delete"
)

const (
	DebtTypeDebt       = "debt"
	DebtTypePayment    = "payment"
	DebtTypeAdjustment = "adjustment"
)

const (
	PaymentCash = "cash"
	PaymentDebt = "debt"
	PaymentCard = "card"
	PaymentQRIS = "qris"
)

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)
