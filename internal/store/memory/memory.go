// Package memory implements the ledger store in process memory. It backs
// unit tests and the dev mode of cmd/server. A unit of work holds the store
// lock for its whole lifetime, which trivially serializes concurrent
// engines, and restores a snapshot on rollback so partial ledger updates
// never become visible.
package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"tokopintar/backend/internal/domain"
	"tokopintar/backend/internal/store"
	"tokopintar/backend/internal/xid"
)

type state struct {
	categories   map[string]domain.Category
	products     map[string]domain.Product
	customers    map[string]domain.Customer
	transactions map[string]domain.Transaction
	debtRecords  map[string]domain.DebtRecord
	stockHistory []domain.StockHistory
	config       domain.StoreConfig
	users        map[string]domain.UserAccount
}

func newState() state {
	return state{
		categories:   make(map[string]domain.Category),
		products:     make(map[string]domain.Product),
		customers:    make(map[string]domain.Customer),
		transactions: make(map[string]domain.Transaction),
		debtRecords:  make(map[string]domain.DebtRecord),
		stockHistory: make([]domain.StockHistory, 0, 128),
		config: domain.StoreConfig{
			StoreName:                "My Store",
			StoreAddress:             "Jakarta, Indonesia",
			DefaultLowStockThreshold: 10,
		},
		users: make(map[string]domain.UserAccount),
	}
}

func (st state) clone() state {
	next := state{
		categories:   make(map[string]domain.Category, len(st.categories)),
		products:     make(map[string]domain.Product, len(st.products)),
		customers:    make(map[string]domain.Customer, len(st.customers)),
		transactions: make(map[string]domain.Transaction, len(st.transactions)),
		debtRecords:  make(map[string]domain.DebtRecord, len(st.debtRecords)),
		stockHistory: make([]domain.StockHistory, len(st.stockHistory)),
		config:       st.config,
		users:        make(map[string]domain.UserAccount, len(st.users)),
	}
	for id, c := range st.categories {
		next.categories[id] = c
	}
	for id, p := range st.products {
		next.products[id] = p
	}
	for id, c := range st.customers {
		next.customers[id] = c
	}
	for id, tx := range st.transactions {
		items := make([]domain.TransactionItem, len(tx.Items))
		copy(items, tx.Items)
		tx.Items = items
		next.transactions[id] = tx
	}
	for id, r := range st.debtRecords {
		next.debtRecords[id] = r
	}
	copy(next.stockHistory, st.stockHistory)
	for name, u := range st.users {
		next.users[name] = u
	}
	return next
}

type Store struct {
	mu    sync.Mutex
	state state
}

func New() *Store {
	return &Store{state: newState()}
}

// NewSeeded builds a store with a small demo catalog and the dev accounts
// used when the backend runs without a DATABASE_URL. Seed credentials come
// from SEED_ADMIN_PASSWORD / SEED_STAFF_PASSWORD, falling back to dev
// defaults with a warning.
func NewSeeded() *Store {
	s := New()

	grocery := domain.Category{ID: xid.New("cat"), Name: "Grocery"}
	beverage := domain.Category{ID: xid.New("cat"), Name: "Beverage"}
	s.state.categories[grocery.ID] = grocery
	s.state.categories[beverage.ID] = beverage

	now := time.Now().UTC()
	seedProducts := []domain.Product{
		{ID: xid.New("prod"), Name: "Mie Goreng Instan", SKU: "SKU-MIE-01", Price: decimal.NewFromFloat(3.5), StockQuantity: 120, LowStockThreshold: 10, CategoryID: grocery.ID, CreatedAt: now},
		{ID: xid.New("prod"), Name: "Gula 1kg", SKU: "SKU-GULA-01", Price: decimal.NewFromFloat(17.4), StockQuantity: 80, LowStockThreshold: 10, CategoryID: grocery.ID, CreatedAt: now},
		{ID: xid.New("prod"), Name: "Kopi Sachet", SKU: "SKU-KOPI-01", Price: decimal.NewFromFloat(2.6), StockQuantity: 200, LowStockThreshold: 20, CategoryID: beverage.ID, CreatedAt: now},
		{ID: xid.New("prod"), Name: "Air Mineral 600ml", SKU: "SKU-AIR-01", Price: decimal.NewFromFloat(3.9), StockQuantity: 150, LowStockThreshold: 24, CategoryID: beverage.ID, CreatedAt: now},
	}
	for _, p := range seedProducts {
		s.state.products[p.ID] = p
		s.state.stockHistory = append(s.state.stockHistory, domain.StockHistory{
			ID:           xid.New("sh"),
			ProductID:    p.ID,
			ChangeAmount: p.StockQuantity,
			ChangeType:   domain.StockChangeInitial,
			Note:         "Seed stock",
			CreatedAt:    now,
		})
	}

	s.state.users = seedUsers()
	return s
}

func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := make(map[string]domain.UserAccount, 2)
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"staff", staffPwd, domain.RoleStaff},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:     u.username,
			PasswordHash: string(hash),
			Role:         u.role,
			Active:       true,
			CreatedAt:    now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// --- unit of work ---

type savepoint struct {
	name     string
	snapshot state
}

type unitOfWork struct {
	store      *Store
	begin      state
	savepoints []savepoint
	seq        int
	done       bool
}

func (s *Store) Begin(_ context.Context) (store.UnitOfWork, error) {
	s.mu.Lock()
	return &unitOfWork{store: s, begin: s.state.clone()}, nil
}

func (u *unitOfWork) Commit() error {
	if u.done {
		return fmt.Errorf("unit of work already finished")
	}
	u.done = true
	u.store.mu.Unlock()
	return nil
}

func (u *unitOfWork) Rollback() error {
	if u.done {
		return nil
	}
	u.done = true
	u.store.state = u.begin
	u.store.mu.Unlock()
	return nil
}

func (u *unitOfWork) Savepoint(_ context.Context) (string, error) {
	u.seq++
	name := fmt.Sprintf("sp_%d", u.seq)
	u.savepoints = append(u.savepoints, savepoint{name: name, snapshot: u.store.state.clone()})
	return name, nil
}

func (u *unitOfWork) RollbackTo(_ context.Context, name string) error {
	for i := len(u.savepoints) - 1; i >= 0; i-- {
		if u.savepoints[i].name == name {
			u.store.state = u.savepoints[i].snapshot
			u.savepoints = u.savepoints[:i]
			return nil
		}
	}
	return fmt.Errorf("unknown savepoint %s", name)
}

func (u *unitOfWork) Release(_ context.Context, name string) error {
	for i := len(u.savepoints) - 1; i >= 0; i-- {
		if u.savepoints[i].name == name {
			u.savepoints = append(u.savepoints[:i], u.savepoints[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("unknown savepoint %s", name)
}

func (u *unitOfWork) ProductForUpdate(_ context.Context, id string) (*domain.Product, error) {
	p, ok := u.store.state.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (u *unitOfWork) SetProductStock(_ context.Context, id string, quantity int) error {
	p, ok := u.store.state.products[id]
	if !ok {
		return store.ErrNotFound
	}
	p.StockQuantity = quantity
	u.store.state.products[id] = p
	return nil
}

func (u *unitOfWork) AppendStockHistory(_ context.Context, entry domain.StockHistory) error {
	if entry.ID == "" {
		entry.ID = xid.New("sh")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	u.store.state.stockHistory = append(u.store.state.stockHistory, entry)
	return nil
}

func (u *unitOfWork) CustomerForUpdate(_ context.Context, id string) (*domain.Customer, error) {
	c, ok := u.store.state.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := c
	return &cp, nil
}

func (u *unitOfWork) SetCustomerBalance(_ context.Context, id string, points int, totalDebt decimal.Decimal) error {
	c, ok := u.store.state.customers[id]
	if !ok {
		return store.ErrNotFound
	}
	c.Points = points
	c.TotalDebt = totalDebt
	u.store.state.customers[id] = c
	return nil
}

func (u *unitOfWork) InsertDebtRecord(_ context.Context, record domain.DebtRecord) error {
	if record.ID == "" {
		record.ID = xid.New("debt")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	u.store.state.debtRecords[record.ID] = record
	return nil
}

func (u *unitOfWork) DebtRecordsByTransaction(_ context.Context, transactionID string) ([]domain.DebtRecord, error) {
	records := make([]domain.DebtRecord, 0, 2)
	for _, r := range u.store.state.debtRecords {
		if r.TransactionID == transactionID {
			records = append(records, r)
		}
	}
	slices.SortFunc(records, func(a, b domain.DebtRecord) int {
		return strings.Compare(a.ID, b.ID)
	})
	return records, nil
}

func (u *unitOfWork) DeleteDebtRecord(_ context.Context, id string) error {
	if _, ok := u.store.state.debtRecords[id]; !ok {
		return store.ErrNotFound
	}
	delete(u.store.state.debtRecords, id)
	return nil
}

func (u *unitOfWork) InsertTransaction(_ context.Context, tx domain.Transaction) error {
	if tx.ID == "" {
		return store.ErrValidation
	}
	if _, exists := u.store.state.transactions[tx.ID]; exists {
		return store.ErrValidation
	}
	items := make([]domain.TransactionItem, len(tx.Items))
	copy(items, tx.Items)
	tx.Items = items
	u.store.state.transactions[tx.ID] = tx
	return nil
}

func (u *unitOfWork) TransactionForUpdate(_ context.Context, id string) (*domain.Transaction, error) {
	tx, ok := u.store.state.transactions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := tx
	cp.Items = make([]domain.TransactionItem, len(tx.Items))
	copy(cp.Items, tx.Items)
	return &cp, nil
}

func (u *unitOfWork) DeleteTransaction(_ context.Context, id string) error {
	if _, ok := u.store.state.transactions[id]; !ok {
		return store.ErrNotFound
	}
	delete(u.store.state.transactions, id)
	return nil
}

func (u *unitOfWork) TransactionIDsByFilter(_ context.Context, filter domain.SalesFilter) ([]string, error) {
	matched := make([]domain.Transaction, 0, 8)
	for _, tx := range u.store.state.transactions {
		if transactionMatches(u.store.state, tx, filter) {
			matched = append(matched, tx)
		}
	}
	slices.SortFunc(matched, func(a, b domain.Transaction) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(a.ID, b.ID)
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	})
	ids := make([]string, 0, len(matched))
	for _, tx := range matched {
		ids = append(ids, tx.ID)
	}
	return ids, nil
}

func transactionMatches(st state, tx domain.Transaction, filter domain.SalesFilter) bool {
	for _, item := range tx.Items {
		if filter.ProductID != "" {
			if item.ProductID == filter.ProductID {
				return true
			}
			continue
		}
		if filter.CategoryID != "" {
			if p, ok := st.products[item.ProductID]; ok && p.CategoryID == filter.CategoryID {
				return true
			}
		}
	}
	return false
}
