package transport

import (
	"errors"
	"net/http"
	"strconv"

	"salepoint/internal/cart"
	"salepoint/internal/config"
	"salepoint/internal/domain"
	"salepoint/internal/middleware"
	"salepoint/internal/repository"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AddItemRequest puts units of a product into the cashier's cart
type AddItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gte=1"`
}

// CartView is the cart with its money breakdown at the requested rate
type CartView struct {
	Cashier string            `json:"cashier"`
	Lines   []domain.CartLine `json:"lines"`
	Totals  domain.Totals     `json:"totals"`
}

// CartHandler manages the per-cashier cart
type CartHandler struct {
	sessions *SessionStore
	catalog  repository.CatalogStore
	sales    config.SalesConfig
	logger   *zap.Logger
}

// NewCartHandler creates a CartHandler
func NewCartHandler(sessions *SessionStore, catalog repository.CatalogStore, sales config.SalesConfig, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		sessions: sessions,
		catalog:  catalog,
		sales:    sales,
		logger:   logger,
	}
}

// RegisterRoutes registers the cart routes
func (h *CartHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.View)
		r.Delete("/", h.Clear)
		r.Post("/items", h.AddItem)
		r.Delete("/items/{productID}", h.RemoveItem)
	})
}

func (h *CartHandler) session(w http.ResponseWriter, r *http.Request) (*cart.Session, bool) {
	username, ok := middleware.GetUsername(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return nil, false
	}
	return h.sessions.Get(username), true
}

// taxRate reads the optional tax_rate query parameter, defaulting to the
// configured rate
func (h *CartHandler) taxRate(r *http.Request) (float64, error) {
	raw := r.URL.Query().Get("tax_rate")
	if raw == "" {
		return h.sales.DefaultTaxRate, nil
	}
	return strconv.ParseFloat(raw, 64)
}

func (h *CartHandler) respondWithCart(w http.ResponseWriter, r *http.Request, session *cart.Session) {
	rate, err := h.taxRate(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid tax rate")
		return
	}
	totals, err := session.Totals(rate)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "tax rate must be between 0 and 100")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CartView{
		Cashier: session.Cashier(),
		Lines:   session.Lines(),
		Totals:  totals,
	})
}

// View returns the cashier's cart and totals
func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respondWithCart(w, r, session)
}

// AddItem puts a product into the cart, merging with any existing line
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Failed to read product", zap.Int64("id", req.ProductID), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to read product")
		return
	}

	if err := session.AddItem(r.Context(), product, req.Quantity); err != nil {
		switch {
		case errors.Is(err, cart.ErrInvalidQuantity):
			middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, cart.ErrExceedsStock):
			middleware.RespondWithError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error("Failed to add cart item", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to add item")
		}
		return
	}

	h.respondWithCart(w, r, session)
}

// RemoveItem drops a product's line from the cart
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := session.RemoveItem(productID); err != nil {
		if errors.Is(err, cart.ErrLineNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not in cart")
			return
		}
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to remove item")
		return
	}

	h.respondWithCart(w, r, session)
}

// Clear empties the cart without committing a sale
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	session.Clear()
	h.respondWithCart(w, r, session)
}
