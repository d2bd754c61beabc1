package cart

import (
	"context"
	"errors"
	"fmt"

	"salepoint/internal/domain"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrExceedsStock    = errors.New("quantity exceeds available stock")
	ErrInvalidTaxRate  = errors.New("tax rate must be between 0 and 100")
	ErrLineNotFound    = errors.New("product not in cart")
)

// StockReader is the slice of the stock ledger the cart needs: live
// quantity snapshots at add time.
type StockReader interface {
	GetStock(ctx context.Context, productID int64) (int, error)
}

// Session is one cashier's in-progress order. It is owned exclusively by
// that cashier's session, so it needs no locking; commit-time stock
// validation is the orchestrator's job, add-time validation is ours.
type Session struct {
	cashier string
	stock   StockReader
	lines   []domain.CartLine
}

// NewSession creates an empty cart for a cashier
func NewSession(cashier string, stock StockReader) *Session {
	return &Session{cashier: cashier, stock: stock}
}

// Cashier returns the owning cashier's username
func (s *Session) Cashier() string {
	return s.cashier
}

// AddItem puts quantity units of a product into the cart. Adding a
// product already present merges into the existing line, summing
// quantities; the unit price stays the one snapshotted at first add.
// The merged quantity is validated against the live stock count.
func (s *Session) AddItem(ctx context.Context, product *domain.Product, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	available, err := s.stock.GetStock(ctx, product.ID)
	if err != nil {
		return fmt.Errorf("failed to read live stock: %w", err)
	}

	existing := s.find(product.ID)
	requested := quantity
	if existing != nil {
		requested += existing.Quantity
	}
	if requested > available {
		return fmt.Errorf("%w: %s has %d units, cart wants %d",
			ErrExceedsStock, product.Name, available, requested)
	}

	if existing != nil {
		existing.Quantity = requested
		existing.LineTotal = existing.UnitPrice * float64(existing.Quantity)
		return nil
	}

	s.lines = append(s.lines, domain.CartLine{
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.Price,
		Quantity:  quantity,
		LineTotal: product.Price * float64(quantity),
	})
	return nil
}

// RemoveItem drops a product's line entirely, whatever its quantity
func (s *Session) RemoveItem(productID int64) error {
	for i, line := range s.lines {
		if line.ProductID == productID {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			return nil
		}
	}
	return ErrLineNotFound
}

// Totals computes the money breakdown at the given tax rate (percent).
// The rate is per-checkout; callers pass the configured default when the
// cashier has not overridden it.
func (s *Session) Totals(taxRatePercent float64) (domain.Totals, error) {
	if taxRatePercent < 0 || taxRatePercent > 100 {
		return domain.Totals{}, ErrInvalidTaxRate
	}

	var subtotal float64
	for _, line := range s.lines {
		subtotal += line.LineTotal
	}
	tax := subtotal * taxRatePercent / 100

	return domain.Totals{
		Subtotal:  subtotal,
		TaxRate:   taxRatePercent,
		TaxAmount: tax,
		Total:     subtotal + tax,
	}, nil
}

// Lines returns a snapshot copy of the cart contents
func (s *Session) Lines() []domain.CartLine {
	out := make([]domain.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

// IsEmpty reports whether the cart has no lines
func (s *Session) IsEmpty() bool {
	return len(s.lines) == 0
}

// Clear empties the cart after a committed sale or an explicit cancel
func (s *Session) Clear() {
	s.lines = nil
}

func (s *Session) find(productID int64) *domain.CartLine {
	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			return &s.lines[i]
		}
	}
	return nil
}
