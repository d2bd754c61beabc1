package transport

import (
	"errors"
	"net/http"
	"strconv"

	"salepoint/internal/domain"
	"salepoint/internal/middleware"
	"salepoint/internal/repository"
	"salepoint/internal/stock"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ProductView is a catalog product annotated with its stock health
type ProductView struct {
	ID            int64              `json:"id"`
	Name          string             `json:"name"`
	Category      string             `json:"category"`
	Price         float64            `json:"price"`
	StockQuantity int                `json:"stock_quantity"`
	MinStockLevel int                `json:"min_stock_level"`
	StockStatus   domain.StockStatus `json:"stock_status"`
}

// RestockRequest sets a product's absolute stock count
type RestockRequest struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

// InventoryHandler serves the catalog and stock dashboard
type InventoryHandler struct {
	catalog repository.CatalogStore
	ledger  *stock.Ledger
	logger  *zap.Logger
}

// NewInventoryHandler creates an InventoryHandler
func NewInventoryHandler(catalog repository.CatalogStore, ledger *stock.Ledger, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{
		catalog: catalog,
		ledger:  ledger,
		logger:  logger,
	}
}

// RegisterRoutes registers the inventory routes. All of them require a
// signed-in operator; restocking additionally requires manager or admin.
func (h *InventoryHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.ListProducts)
		r.Get("/{id}", h.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole([]string{middleware.RoleAdmin, middleware.RoleManager}, h.logger))
			r.Put("/{id}/stock", h.Restock)
		})
	})
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/api/inventory/overview", h.Overview)
	})
}

// ListProducts returns the catalog with stock classifications
func (h *InventoryHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, h.view(p))
	}
	middleware.RespondWithJSON(w, http.StatusOK, views)
}

// GetProduct returns one product with its classification
func (h *InventoryHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	p, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Failed to get product", zap.Int64("id", id), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, h.view(p))
}

// Restock sets a product's stock to an absolute count
func (h *InventoryHandler) Restock(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req RestockRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.catalog.UpdateStock(r.Context(), id, req.Quantity); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Failed to restock product", zap.Int64("id", id), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update stock")
		return
	}

	p, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to read updated product")
		return
	}

	h.logger.Info("Product restocked",
		zap.Int64("product_id", id),
		zap.Int("quantity", req.Quantity),
	)
	middleware.RespondWithJSON(w, http.StatusOK, h.view(p))
}

// Overview returns the stock dashboard counts
func (h *InventoryHandler) Overview(w http.ResponseWriter, r *http.Request) {
	summary, err := h.ledger.Overview(r.Context())
	if err != nil {
		h.logger.Error("Failed to compute inventory overview", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to compute overview")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, summary)
}

func (h *InventoryHandler) view(p *domain.Product) ProductView {
	return ProductView{
		ID:            p.ID,
		Name:          p.Name,
		Category:      p.Category,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		MinStockLevel: p.MinStockLevel,
		StockStatus:   h.ledger.Classify(p),
	}
}
