package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"salepoint/internal/domain"

	"go.uber.org/zap"
)

// Classifier decides a product's stock health. The stock ledger is the
// only implementation, so alerting and display can never drift apart.
type Classifier interface {
	Classify(p *domain.Product) domain.StockStatus
}

// Hub keeps the ordered in-memory alert log and fans alerts out to the
// external channels. The log is newest-first; ids are strictly
// increasing even under concurrent raises. Channel failures are recorded
// but never propagate into the sale path.
type Hub struct {
	classifier Classifier
	sms        SMSSender
	email      EmailSender
	logger     *zap.Logger

	mu            sync.Mutex
	notifications []*domain.Notification
	nextID        int64
	unread        int
}

// NewHub creates a Hub. sms and email may be nil when a deployment has
// no external channels at all.
func NewHub(classifier Classifier, sms SMSSender, email EmailSender, logger *zap.Logger) *Hub {
	return &Hub{
		classifier: classifier,
		sms:        sms,
		email:      email,
		logger:     logger,
		nextID:     1,
	}
}

// Raise inserts a notification at the head of the log and returns it
func (h *Hub) Raise(title, message string, severity domain.Severity) domain.Notification {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := &domain.Notification{
		ID:        h.nextID,
		Title:     title,
		Message:   message,
		Severity:  severity,
		CreatedAt: time.Now(),
	}
	h.nextID++
	h.unread++
	h.notifications = append([]*domain.Notification{n}, h.notifications...)

	return *n
}

// List returns up to limit notifications, newest first. limit <= 0
// returns everything.
func (h *Hub) List(limit int) []domain.Notification {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(h.notifications)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.Notification, n)
	for i := 0; i < n; i++ {
		out[i] = *h.notifications[i]
	}
	return out
}

// Unread returns the count of notifications not yet marked read
func (h *Hub) Unread() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.unread
}

// MarkRead flips one notification's read flag. Marking an already-read
// or unknown id is a no-op.
func (h *Hub) MarkRead(id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, n := range h.notifications {
		if n.ID == id {
			if !n.Read {
				n.Read = true
				h.unread--
			}
			return
		}
	}
}

// ClearAll empties the log and resets the unread count
func (h *Hub) ClearAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notifications = nil
	h.unread = 0
}

// CheckStockAlerts classifies every product and raises an alert for each
// low or critical one. A critical product raises only the critical
// alert, never both, and additionally gets a best-effort email dispatch
// when that channel is enabled.
func (h *Hub) CheckStockAlerts(ctx context.Context, products []*domain.Product) {
	for _, p := range products {
		switch h.classifier.Classify(p) {
		case domain.StockCritical:
			h.Raise(
				fmt.Sprintf("CRITICAL: %s", p.Name),
				fmt.Sprintf("%s has only %d units left (min: %d)", p.Name, p.StockQuantity, p.MinStockLevel),
				domain.SeverityDanger,
			)
			h.emailCriticalAlert(ctx, p)
		case domain.StockLow:
			h.Raise(
				fmt.Sprintf("LOW STOCK: %s", p.Name),
				fmt.Sprintf("%s is running low: %d units", p.Name, p.StockQuantity),
				domain.SeverityWarning,
			)
		}
	}
}

func (h *Hub) emailCriticalAlert(ctx context.Context, p *domain.Product) {
	if h.email == nil {
		return
	}
	subject := fmt.Sprintf("Critical Stock Alert: %s", p.Name)
	body := fmt.Sprintf("Product: %s\nCurrent Stock: %d\nMinimum Required: %d\nCategory: %s",
		p.Name, p.StockQuantity, p.MinStockLevel, p.Category)
	if err := h.email.SendEmail(ctx, subject, body, nil); err != nil {
		h.logger.Warn("Critical stock email not delivered",
			zap.String("product", p.Name),
			zap.Error(err),
		)
	}
}

// Channel names accepted by Dispatch
const (
	ChannelSMS   = "sms"
	ChannelEmail = "email"
)

// Dispatch sends a message over one named channel. The error reports
// that channel's outcome alone; callers decide what a partial failure
// means to them.
func (h *Hub) Dispatch(ctx context.Context, channel, target, message string) error {
	switch channel {
	case ChannelSMS:
		if h.sms == nil {
			return fmt.Errorf("%w: sms", ErrChannelDisabled)
		}
		return h.sms.SendSMS(ctx, target, message)
	case ChannelEmail:
		if h.email == nil {
			return fmt.Errorf("%w: email", ErrChannelDisabled)
		}
		var to []string
		if target != "" {
			to = []string{target}
		}
		return h.email.SendEmail(ctx, "Salepoint notification", message, to)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
	}
}

// DispatchAll sends the same message over every channel and reports each
// result independently; one channel failing never stops the others.
func (h *Hub) DispatchAll(ctx context.Context, target, message string) map[string]error {
	results := make(map[string]error, 2)
	results[ChannelSMS] = h.Dispatch(ctx, ChannelSMS, target, message)
	results[ChannelEmail] = h.Dispatch(ctx, ChannelEmail, target, message)
	return results
}
