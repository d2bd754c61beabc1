package transport

import (
	"context"
	"errors"
	"net/http"
	"time"

	"salepoint/internal/cart"
	"salepoint/internal/config"
	"salepoint/internal/domain"
	"salepoint/internal/middleware"
	"salepoint/internal/payment"
	"salepoint/internal/repository"
	"salepoint/internal/sale"
	"salepoint/internal/stock"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CheckoutBody is the checkout payload. The idempotency key travels in
// the Idempotency-Key header.
type CheckoutBody struct {
	CustomerName   string   `json:"customer_name"`
	PaymentMethod  string   `json:"payment_method" validate:"required,oneof=cash card mpesa airtel_money tkash equitel"`
	PhoneNumber    string   `json:"phone_number"`
	TaxRate        *float64 `json:"tax_rate" validate:"omitempty,gte=0,lte=100"`
	SendReceiptSMS bool     `json:"send_receipt_sms"`
}

// ConfirmBody is the provider webhook payload resolving a pending payment
type ConfirmBody struct {
	Reference string `json:"reference" validate:"required"`
	Success   bool   `json:"success"`
	Reason    string `json:"reason"`
}

// SaleHandler drives checkout, payment confirmation, and the
// transaction log endpoints.
type SaleHandler struct {
	sessions     *SessionStore
	orchestrator *sale.Orchestrator
	processor    *payment.Processor
	transactions repository.TransactionRepository
	sales        config.SalesConfig
	logger       *zap.Logger
}

// NewSaleHandler creates a SaleHandler
func NewSaleHandler(
	sessions *SessionStore,
	orchestrator *sale.Orchestrator,
	processor *payment.Processor,
	transactions repository.TransactionRepository,
	sales config.SalesConfig,
	logger *zap.Logger,
) *SaleHandler {
	return &SaleHandler{
		sessions:     sessions,
		orchestrator: orchestrator,
		processor:    processor,
		transactions: transactions,
		sales:        sales,
		logger:       logger,
	}
}

// RegisterRoutes registers the sale routes. The payment confirmation
// webhook is unauthenticated; providers call it directly.
func (h *SaleHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Post("/api/payments/confirm", h.ConfirmPayment)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/api/checkout", h.Checkout)
		r.Get("/api/transactions", h.ListTransactions)
		r.Get("/api/transactions/{id}", h.GetTransaction)
		r.Get("/api/transactions/{id}/receipt", h.GetReceipt)
	})
}

// Checkout commits the cashier's cart as a sale
func (h *SaleHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	username, ok := middleware.GetUsername(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}
	session := h.sessions.Get(username)

	var body CheckoutBody
	if err := middleware.DecodeAndValidate(r, &body); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, err := h.orchestrator.Checkout(r.Context(), session, sale.CheckoutRequest{
		CustomerName:   body.CustomerName,
		Method:         domain.PaymentMethod(body.PaymentMethod),
		PhoneNumber:    body.PhoneNumber,
		TaxRate:        body.TaxRate,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
		SendReceiptSMS: body.SendReceiptSMS,
	})
	if err != nil {
		h.respondCheckoutError(w, r.Context(), err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, tx)
}

func (h *SaleHandler) respondCheckoutError(w http.ResponseWriter, ctx context.Context, err error) {
	switch {
	case errors.Is(err, sale.ErrEmptyCart),
		errors.Is(err, sale.ErrInvalidPaymentMethod),
		errors.Is(err, sale.ErrMobilePaymentRequired),
		errors.Is(err, cart.ErrInvalidTaxRate),
		errors.Is(err, payment.ErrInvalidPhone),
		errors.Is(err, payment.ErrInvalidAmount):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, stock.ErrInsufficientStock):
		middleware.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, payment.ErrPaymentFailed):
		middleware.RespondWithError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, payment.ErrPaymentTimeout):
		middleware.RespondWithError(w, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, payment.ErrPaymentsDisabled),
		errors.Is(err, payment.ErrProviderDisabled),
		errors.Is(err, payment.ErrUnsupportedMethod):
		middleware.RespondWithError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, sale.ErrCommitInProgress):
		middleware.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(ctx.Err(), context.Canceled):
		// Client went away; nothing useful to write
	default:
		h.logger.Error("Checkout failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "checkout failed")
	}
}

// ConfirmPayment is the provider callback resolving a pending payment
func (h *SaleHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var body ConfirmBody
	if err := middleware.DecodeAndValidate(r, &body); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.processor.Confirm(body.Reference, body.Success, body.Reason); err != nil {
		if errors.Is(err, payment.ErrUnknownReference) {
			middleware.RespondWithError(w, http.StatusNotFound, "no pending payment for reference")
			return
		}
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to confirm payment")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

// ListTransactions returns sales in a date range, newest first. The
// range defaults to the last 24 hours.
func (h *SaleHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	to := time.Now()
	from := to.Add(-24 * time.Hour)

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid from timestamp")
			return
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid to timestamp")
			return
		}
		to = parsed
	}

	txs, err := h.transactions.ListBetween(r.Context(), from, to)
	if err != nil {
		h.logger.Error("Failed to list transactions", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	if txs == nil {
		txs = []*domain.Transaction{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, txs)
}

// GetTransaction returns one committed sale
func (h *SaleHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, ok := h.findTransaction(w, r)
	if !ok {
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, tx)
}

// GetReceipt renders a committed sale as a plain-text receipt
func (h *SaleHandler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	tx, ok := h.findTransaction(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(sale.RenderReceipt(tx, h.sales.Currency)))
}

func (h *SaleHandler) findTransaction(w http.ResponseWriter, r *http.Request) (*domain.Transaction, bool) {
	id := chi.URLParam(r, "id")
	tx, err := h.transactions.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "transaction not found")
			return nil, false
		}
		h.logger.Error("Failed to find transaction", zap.String("id", id), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to find transaction")
		return nil, false
	}
	return tx, true
}
