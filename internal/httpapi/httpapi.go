// Package httpapi exposes the back office over REST. Handlers decode and
// validate the request, call the service, and translate sentinel errors to
// status codes; no business rules live here.
package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"tokopintar/backend/internal/domain"
	"tokopintar/backend/internal/service"
	"tokopintar/backend/internal/store"
)

type Server struct {
	svc      *service.Service
	auth     *AuthManager
	validate *validator.Validate
}

func NewServer(svc *service.Service, auth *AuthManager) *Server {
	return &Server{
		svc:      svc,
		auth:     auth,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *Server) Router(allowedOrigin string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{allowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/api/auth/login", s.handleLogin)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.auth.Require(domain.RoleStaff))

			r.Get("/categories", s.handleListCategories)
			r.Post("/categories", s.handleCreateCategory)

			r.Get("/products", s.handleListProducts)
			r.Post("/products", s.handleCreateProduct)
			r.Get("/products/{id}", s.handleGetProduct)
			r.Put("/products/{id}", s.handleUpdateProduct)
			r.Post("/products/{id}/restock", s.handleRestock)
			r.Post("/products/{id}/stock-correction", s.handleStockCorrection)
			r.Get("/products/{id}/history", s.handleStockHistory)
			r.Get("/restocks", s.handleListRestocks)

			r.Get("/customers", s.handleListCustomers)
			r.Post("/customers", s.handleCreateCustomer)
			r.Get("/customers/{id}", s.handleGetCustomer)
			r.Get("/customers/{id}/debts", s.handleDebtHistory)
			r.Post("/customers/{id}/debts/pay", s.handlePayDebt)

			r.Get("/sales", s.handleListSales)
			r.Post("/sales", s.handleCreateSale)
			r.Get("/sales/{id}", s.handleGetSale)

			r.Get("/analytics/summary", s.handleSummary)
			r.Get("/analytics/daily-sales", s.handleDailySales)
			r.Get("/analytics/top-products", s.handleTopProducts)

			r.Get("/config", s.handleGetConfig)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Require(domain.RoleAdmin))

			r.Delete("/products/{id}", s.handleDeleteProduct)
			r.Delete("/customers/{id}", s.handleDeleteCustomer)
			r.Post("/customers/{id}/debts/adjust", s.handleAdjustDebt)
			r.Delete("/sales/{id}", s.handleDeleteSale)
			r.Post("/sales/bulk-delete", s.handleBulkDeleteSales)
			r.Post("/sales/delete-by-filter", s.handleDeleteSalesByFilter)
			r.Put("/config", s.handleUpdateConfig)
		})
	})

	return r
}

// --- auth ---

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.auth.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- catalog ---

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.svc.ListCategories(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name" validate:"required"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	category, err := s.svc.CreateCategory(r.Context(), req.Name)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.svc.ListProducts(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := s.svc.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductCreateRequest
	if !s.decode(w, r, &req) {
		return
	}
	product, err := s.svc.CreateProduct(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductUpdateRequest
	if !s.decode(w, r, &req) {
		return
	}
	product, err := s.svc.UpdateProduct(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleRestock(w http.ResponseWriter, r *http.Request) {
	var req domain.RestockRequest
	if !s.decode(w, r, &req) {
		return
	}
	product, err := s.svc.RestockProduct(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (s *Server) handleStockCorrection(w http.ResponseWriter, r *http.Request) {
	var req domain.StockCorrectionRequest
	if !s.decode(w, r, &req) {
		return
	}
	product, err := s.svc.CorrectStock(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (s *Server) handleStockHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.svc.StockHistory(r.Context(), chi.URLParam(r, "id"), limitParam(r, 200))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleListRestocks(w http.ResponseWriter, r *http.Request) {
	restocks, err := s.svc.Restocks(r.Context(), limitParam(r, 200))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, restocks)
}

// --- customers ---

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := s.svc.ListCustomers(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (s *Server) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := s.svc.GetCustomer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.CustomerCreateRequest
	if !s.decode(w, r, &req) {
		return
	}
	customer, err := s.svc.CreateCustomer(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

func (s *Server) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteCustomer(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleDebtHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.svc.DebtHistory(r.Context(), chi.URLParam(r, "id"), limitParam(r, 100))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handlePayDebt(w http.ResponseWriter, r *http.Request) {
	var req domain.DebtPaymentRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.svc.PayDebt(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAdjustDebt(w http.ResponseWriter, r *http.Request) {
	var req domain.DebtAdjustRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.svc.AdjustDebt(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- sales ---

func (s *Server) handleListSales(w http.ResponseWriter, r *http.Request) {
	sales, err := s.svc.ListTransactions(r.Context(), limitParam(r, 200))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sales)
}

func (s *Server) handleGetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := s.svc.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (s *Server) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	var req domain.SaleCreateRequest
	if !s.decode(w, r, &req) {
		return
	}
	sale, err := s.svc.CreateSale(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sale)
}

func (s *Server) handleDeleteSale(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.svc.DeleteSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleBulkDeleteSales(w http.ResponseWriter, r *http.Request) {
	var req domain.BulkDeleteRequest
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.svc.BulkDeleteSales(r.Context(), req.IDs)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeleteSalesByFilter(w http.ResponseWriter, r *http.Request) {
	var req domain.SalesFilter
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.svc.DeleteSalesByFilter(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// --- analytics and settings ---

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.Summary(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleDailySales(w http.ResponseWriter, r *http.Request) {
	days, err := s.svc.DailySales(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

func (s *Server) handleTopProducts(w http.ResponseWriter, r *http.Request) {
	top, err := s.svc.TopProducts(r.Context(), limitParam(r, 5))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, top)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.svc.GetConfig(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req domain.StoreConfigUpdateRequest
	if !s.decode(w, r, &req) {
		return
	}
	cfg, err := s.svc.UpdateConfig(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// --- helpers ---

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return false
	}
	if err := s.validate.Struct(dest); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrValidation),
		errors.Is(err, store.ErrEmptyCart),
		errors.Is(err, store.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrInsufficientStock),
		errors.Is(err, store.ErrExceedsBalance),
		errors.Is(err, store.ErrProductInUse),
		errors.Is(err, store.ErrReversalFailed):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("[httpapi] ERROR: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[httpapi] ERROR: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func limitParam(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return fallback
	}
	return limit
}
