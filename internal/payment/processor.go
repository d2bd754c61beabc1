package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"salepoint/internal/config"
	"salepoint/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrPaymentsDisabled = errors.New("mobile payments disabled")
	ErrInvalidPhone     = errors.New("phone number must be at least 10 digits")
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrPaymentFailed    = errors.New("payment declined by provider")
	ErrPaymentTimeout   = errors.New("payment timed out awaiting confirmation")
	ErrUnknownReference = errors.New("no pending payment for reference")
)

const minPhoneDigits = 10

type confirmation struct {
	ok     bool
	reason string
}

type pendingRequest struct {
	req  *domain.PaymentRequest
	done chan confirmation
}

// Processor drives payment requests through their state machine:
// Created -> Initiated -> {Confirmed, Failed, TimedOut}. Initiation
// dispatches to the provider gateway; confirmation arrives asynchronously
// through Confirm (the webhook/poll boundary) and resolves a cancellable
// Await. A timed-out attempt is re-initiated with backoff up to the
// configured retry count before it is surfaced as fatal.
type Processor struct {
	cfg      config.PaymentsConfig
	gateways map[domain.PaymentMethod]Gateway
	logger   *zap.Logger

	mu      sync.Mutex
	pending map[string]*pendingRequest
}

// NewProcessor creates a Processor over the configured provider gateways
func NewProcessor(cfg config.PaymentsConfig, gateways map[domain.PaymentMethod]Gateway, logger *zap.Logger) *Processor {
	return &Processor{
		cfg:      cfg,
		gateways: gateways,
		logger:   logger,
		pending:  make(map[string]*pendingRequest),
	}
}

// Initiate validates and dispatches a mobile-payment attempt. On return
// the request is in the Initiated state with the provider's reference
// token attached, and Await may be used to wait for its confirmation.
// No state is registered when validation or dispatch fails.
func (p *Processor) Initiate(ctx context.Context, method domain.PaymentMethod, phoneNumber string, amount float64, reference string) (*domain.PaymentRequest, error) {
	if !p.cfg.Enabled {
		return nil, ErrPaymentsDisabled
	}
	if !method.IsMobile() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}
	if err := validatePhone(phoneNumber); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	gateway, ok := p.gateways[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderDisabled, method)
	}

	now := time.Now()
	req := &domain.PaymentRequest{
		ID:          uuid.New(),
		Method:      method,
		PhoneNumber: phoneNumber,
		Amount:      amount,
		Reference:   reference,
		Status:      domain.PaymentCreated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := p.dispatch(ctx, gateway, req); err != nil {
		return nil, err
	}
	return req, nil
}

// dispatch moves a request into Initiated and registers it for confirmation
func (p *Processor) dispatch(ctx context.Context, gateway Gateway, req *domain.PaymentRequest) error {
	providerRef, err := gateway.Initiate(ctx, req.PhoneNumber, req.Amount, req.Reference)
	if err != nil {
		return err
	}

	req.ProviderRef = providerRef
	req.Status = domain.PaymentInitiated
	req.Attempts++
	req.UpdatedAt = time.Now()

	p.mu.Lock()
	p.pending[req.Reference] = &pendingRequest{req: req, done: make(chan confirmation, 1)}
	p.mu.Unlock()

	p.logger.Info("Payment initiated",
		zap.String("method", string(req.Method)),
		zap.String("reference", req.Reference),
		zap.String("provider_ref", providerRef),
		zap.Int("attempt", req.Attempts),
	)
	return nil
}

// Confirm resolves a pending request. It is the entry point for provider
// webhooks and status polls; ok=false carries the provider's reason.
func (p *Processor) Confirm(reference string, ok bool, reason string) error {
	p.mu.Lock()
	pr, found := p.pending[reference]
	p.mu.Unlock()

	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownReference, reference)
	}

	select {
	case pr.done <- confirmation{ok: ok, reason: reason}:
	default:
		// already resolved; a duplicate webhook is a no-op
	}
	return nil
}

// Await blocks until the request reaches a terminal state, the configured
// confirmation window elapses (with bounded re-initiation), or ctx is
// cancelled. The request's Status and Reason reflect the outcome.
func (p *Processor) Await(ctx context.Context, req *domain.PaymentRequest) error {
	defer p.forget(req.Reference)

	gateway := p.gateways[req.Method]

	for {
		p.mu.Lock()
		pr, found := p.pending[req.Reference]
		p.mu.Unlock()
		if !found {
			return fmt.Errorf("%w: %s", ErrUnknownReference, req.Reference)
		}

		timer := time.NewTimer(p.cfg.ConfirmTimeout)

		select {
		case c := <-pr.done:
			timer.Stop()
			req.UpdatedAt = time.Now()
			if c.ok {
				req.Status = domain.PaymentConfirmed
				return nil
			}
			req.Status = domain.PaymentFailed
			req.Reason = c.reason
			return fmt.Errorf("%w: %s", ErrPaymentFailed, c.reason)

		case <-ctx.Done():
			timer.Stop()
			req.Status = domain.PaymentFailed
			req.Reason = "cancelled by cashier"
			return ctx.Err()

		case <-timer.C:
			req.Status = domain.PaymentTimedOut
			req.UpdatedAt = time.Now()

			if req.Attempts > p.cfg.MaxRetries {
				p.logger.Warn("Payment retries exhausted",
					zap.String("reference", req.Reference),
					zap.Int("attempts", req.Attempts),
				)
				return ErrPaymentTimeout
			}

			p.logger.Info("Payment attempt timed out, retrying",
				zap.String("reference", req.Reference),
				zap.Int("attempt", req.Attempts),
			)

			select {
			case <-time.After(p.cfg.RetryBackoff):
			case <-ctx.Done():
				req.Status = domain.PaymentFailed
				req.Reason = "cancelled by cashier"
				return ctx.Err()
			}

			p.forget(req.Reference)
			if err := p.dispatch(ctx, gateway, req); err != nil {
				return err
			}
		}
	}
}

func (p *Processor) forget(reference string) {
	p.mu.Lock()
	delete(p.pending, reference)
	p.mu.Unlock()
}

// validatePhone accepts phone numbers of at least ten digits, with an
// optional leading plus.
func validatePhone(phone string) error {
	digits := phone
	if len(digits) > 0 && digits[0] == '+' {
		digits = digits[1:]
	}
	if len(digits) < minPhoneDigits {
		return ErrInvalidPhone
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return ErrInvalidPhone
		}
	}
	return nil
}
