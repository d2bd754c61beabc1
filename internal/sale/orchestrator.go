package sale

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"salepoint/internal/cart"
	"salepoint/internal/config"
	"salepoint/internal/domain"
	"salepoint/internal/notify"
	"salepoint/internal/payment"
	"salepoint/internal/repository"
	"salepoint/internal/stock"

	"go.uber.org/zap"
)

var (
	ErrEmptyCart             = errors.New("cannot check out an empty cart")
	ErrInvalidPaymentMethod  = errors.New("invalid payment method")
	ErrMobilePaymentRequired = errors.New("phone number required for mobile payments")
)

// CheckoutRequest carries the cashier's checkout inputs
type CheckoutRequest struct {
	CustomerName   string
	Method         domain.PaymentMethod
	PhoneNumber    string
	TaxRate        *float64 // percent; nil means the configured default
	IdempotencyKey string
	SendReceiptSMS bool
}

// Orchestrator drives a checkout through its commit protocol: validate
// the cart against live stock, collect payment for mobile methods, then
// decrement stock, record the transaction, clear the cart, and raise
// follow-up alerts. Stock is never touched before payment confirms, and
// an abort at any step leaves counts exactly as they were.
type Orchestrator struct {
	cfg       config.SalesConfig
	ledger    *stock.Ledger
	processor *payment.Processor
	hub       *notify.Hub
	catalog   repository.CatalogStore
	txLog     repository.TransactionRepository
	idem      *IdempotencyStore // optional; nil disables replay protection
	logger    *zap.Logger
}

// NewOrchestrator wires the checkout path together
func NewOrchestrator(
	cfg config.SalesConfig,
	ledger *stock.Ledger,
	processor *payment.Processor,
	hub *notify.Hub,
	catalog repository.CatalogStore,
	txLog repository.TransactionRepository,
	idem *IdempotencyStore,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		ledger:    ledger,
		processor: processor,
		hub:       hub,
		catalog:   catalog,
		txLog:     txLog,
		idem:      idem,
		logger:    logger,
	}
}

// Checkout commits one sale. On success the cart is cleared and the
// returned transaction is immutable; on any error the cart and stock
// are untouched. A replayed idempotency key returns the originally
// committed transaction without a second stock mutation.
func (o *Orchestrator) Checkout(ctx context.Context, session *cart.Session, req CheckoutRequest) (*domain.Transaction, error) {
	if session.IsEmpty() {
		return nil, ErrEmptyCart
	}
	if !req.Method.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPaymentMethod, req.Method)
	}
	if req.Method.IsMobile() && req.PhoneNumber == "" {
		return nil, ErrMobilePaymentRequired
	}

	rate := o.cfg.DefaultTaxRate
	if req.TaxRate != nil {
		rate = *req.TaxRate
	}
	totals, err := session.Totals(rate)
	if err != nil {
		return nil, err
	}
	lines := session.Lines()

	claimed, prior, err := o.claimKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		return prior, nil
	}

	tx, err := o.commit(ctx, session, req, lines, totals)
	if err != nil {
		if claimed {
			o.releaseKey(ctx, req.IdempotencyKey)
		}
		return nil, err
	}
	if claimed {
		if cerr := o.idem.Complete(ctx, req.IdempotencyKey, tx.ID); cerr != nil {
			o.logger.Warn("Failed to record idempotency key", zap.Error(cerr))
		}
	}
	return tx, nil
}

func (o *Orchestrator) commit(ctx context.Context, session *cart.Session, req CheckoutRequest, lines []domain.CartLine, totals domain.Totals) (*domain.Transaction, error) {
	// Re-validate every line against live counts before taking payment, so
	// a customer is never charged for a sale that cannot complete
	if err := o.validateLines(ctx, lines); err != nil {
		return nil, err
	}

	txID := newTransactionID()

	var providerRef string
	if req.Method.IsMobile() {
		preq, err := o.processor.Initiate(ctx, req.Method, req.PhoneNumber, totals.Total, txID)
		if err != nil {
			return nil, err
		}
		if err := o.processor.Await(ctx, preq); err != nil {
			o.logger.Info("Checkout aborted, payment not confirmed",
				zap.String("transaction_id", txID),
				zap.String("status", string(preq.Status)),
				zap.Error(err),
			)
			return nil, err
		}
		providerRef = preq.ProviderRef
	}

	if err := o.ledger.DecrementAll(ctx, lines); err != nil {
		// Payment confirmed but stock moved underneath us. The sale cannot
		// complete; surface the conflict for the cashier to resolve.
		o.logger.Error("Stock decrement failed after payment confirmation",
			zap.String("transaction_id", txID),
			zap.Error(err),
		)
		return nil, err
	}

	tx := &domain.Transaction{
		ID:            txID,
		CustomerName:  req.CustomerName,
		Lines:         lines,
		Subtotal:      totals.Subtotal,
		TaxRate:       totals.TaxRate,
		TaxAmount:     totals.TaxAmount,
		Total:         totals.Total,
		PaymentMethod: req.Method,
		ProviderRef:   providerRef,
		Cashier:       session.Cashier(),
		CreatedAt:     time.Now(),
	}

	// Stock has moved, so the sale is committed; a log write failure is
	// reported but does not undo the sale
	if err := o.txLog.Save(ctx, tx); err != nil {
		o.logger.Error("Failed to persist transaction record",
			zap.String("transaction_id", tx.ID),
			zap.Error(err),
		)
	}

	session.Clear()

	o.hub.Raise(
		"Sale Completed",
		fmt.Sprintf("Transaction %s: %s %.2f via %s", tx.ID, o.cfg.Currency, tx.Total, tx.PaymentMethod),
		domain.SeveritySuccess,
	)
	if products, err := o.catalog.ListProducts(ctx); err == nil {
		o.hub.CheckStockAlerts(ctx, products)
	} else {
		o.logger.Warn("Skipping stock alert sweep", zap.Error(err))
	}

	if req.SendReceiptSMS && req.PhoneNumber != "" {
		o.sendReceiptSMS(ctx, tx, req.PhoneNumber)
	}

	o.logger.Info("Sale committed",
		zap.String("transaction_id", tx.ID),
		zap.Float64("total", tx.Total),
		zap.String("method", string(tx.PaymentMethod)),
		zap.String("cashier", tx.Cashier),
	)
	return tx, nil
}

// validateLines checks every cart line against the live ledger. Stock is
// read but never mutated here.
func (o *Orchestrator) validateLines(ctx context.Context, lines []domain.CartLine) error {
	need := make(map[int64]int, len(lines))
	names := make(map[int64]string, len(lines))
	for _, line := range lines {
		need[line.ProductID] += line.Quantity
		names[line.ProductID] = line.Name
	}
	for id, quantity := range need {
		available, err := o.ledger.GetStock(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to validate cart: %w", err)
		}
		if quantity > available {
			return fmt.Errorf("%w for %s: requested %d, available %d",
				stock.ErrInsufficientStock, names[id], quantity, available)
		}
	}
	return nil
}

func (o *Orchestrator) claimKey(ctx context.Context, key string) (claimed bool, prior *domain.Transaction, err error) {
	if key == "" || o.idem == nil {
		return false, nil, nil
	}
	priorID, claimed, err := o.idem.Claim(ctx, key)
	if err != nil {
		return false, nil, err
	}
	if claimed {
		return true, nil, nil
	}
	tx, err := o.txLog.FindByID(ctx, priorID)
	if err != nil {
		return false, nil, fmt.Errorf("failed to load replayed transaction %s: %w", priorID, err)
	}
	o.logger.Info("Checkout replayed, returning committed transaction",
		zap.String("idempotency_key", key),
		zap.String("transaction_id", priorID),
	)
	return false, tx, nil
}

func (o *Orchestrator) releaseKey(ctx context.Context, key string) {
	if key == "" || o.idem == nil {
		return
	}
	if err := o.idem.Release(ctx, key); err != nil {
		o.logger.Warn("Failed to release idempotency key", zap.Error(err))
	}
}

func (o *Orchestrator) sendReceiptSMS(ctx context.Context, tx *domain.Transaction, phoneNumber string) {
	msg := fmt.Sprintf("Payment of %s %.2f received. Ref: %s. Thank you!", o.cfg.Currency, tx.Total, tx.ID)
	if err := o.hub.Dispatch(ctx, notify.ChannelSMS, phoneNumber, msg); err != nil {
		o.logger.Warn("Receipt SMS not delivered",
			zap.String("transaction_id", tx.ID),
			zap.Error(err),
		)
	}
}

// newTransactionID builds a time-derived receipt identifier. The random
// suffix keeps two commits in the same second distinct.
func newTransactionID() string {
	return fmt.Sprintf("TXN%s%04d", time.Now().Format("20060102150405"), rand.Intn(10000))
}
