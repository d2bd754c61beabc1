package stock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"salepoint/internal/domain"
	"salepoint/internal/repository"

	"go.uber.org/zap"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
)

// Event describes a committed stock change
type Event struct {
	ProductID int64
	Name      string
	Quantity  int // units removed
	Remaining int
}

// Ledger is the authoritative view of inventory counts. All stock
// mutations go through it; decrements are serialized per product id so
// two cashiers can never both pass validation against a stale read.
type Ledger struct {
	store              repository.CatalogStore
	criticalMultiplier float64
	logger             *zap.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex

	subMu sync.RWMutex
	subs  []func(Event)
}

// NewLedger creates a Ledger over the given catalog store. The critical
// multiplier is the fraction of a product's minimum level at or below
// which stock is classified critical.
func NewLedger(store repository.CatalogStore, criticalMultiplier float64, logger *zap.Logger) *Ledger {
	return &Ledger{
		store:              store,
		criticalMultiplier: criticalMultiplier,
		locks:              make(map[int64]*sync.Mutex),
		logger:             logger,
	}
}

// Subscribe registers a callback invoked after every committed decrement
func (l *Ledger) Subscribe(fn func(Event)) {
	l.subMu.Lock()
	defer l.subMu.Unlock()
	l.subs = append(l.subs, fn)
}

func (l *Ledger) publish(e Event) {
	l.subMu.RLock()
	defer l.subMu.RUnlock()
	for _, fn := range l.subs {
		fn(e)
	}
}

// productLock returns the mutex for one product row, creating it lazily.
// Unrelated products stay independent; there is no global stock lock.
func (l *Ledger) productLock(id int64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}

// GetStock returns a read-only snapshot of a product's quantity
func (l *Ledger) GetStock(ctx context.Context, productID int64) (int, error) {
	p, err := l.store.GetProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	return p.StockQuantity, nil
}

// Classify returns the stock health of a product. This is the single
// source of truth for alert thresholds and display indicators: at or
// below min×multiplier is critical, below min is low, otherwise adequate.
func (l *Ledger) Classify(p *domain.Product) domain.StockStatus {
	critical := float64(p.MinStockLevel) * l.criticalMultiplier
	switch {
	case float64(p.StockQuantity) <= critical:
		return domain.StockCritical
	case p.StockQuantity < p.MinStockLevel:
		return domain.StockLow
	default:
		return domain.StockAdequate
	}
}

// Decrement atomically removes quantity units from one product. It fails
// without any effect when the quantity exceeds current stock.
func (l *Ledger) Decrement(ctx context.Context, productID int64, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	lock := l.productLock(productID)
	lock.Lock()
	defer lock.Unlock()

	p, err := l.store.GetProduct(ctx, productID)
	if err != nil {
		return err
	}

	if quantity > p.StockQuantity {
		return fmt.Errorf("%w for %s: requested %d, available %d",
			ErrInsufficientStock, p.Name, quantity, p.StockQuantity)
	}

	remaining := p.StockQuantity - quantity
	if err := l.store.UpdateStock(ctx, productID, remaining); err != nil {
		return fmt.Errorf("failed to persist stock change: %w", err)
	}

	l.logger.Debug("Stock decremented",
		zap.Int64("product_id", productID),
		zap.Int("quantity", quantity),
		zap.Int("remaining", remaining),
	)

	l.publish(Event{ProductID: productID, Name: p.Name, Quantity: quantity, Remaining: remaining})
	return nil
}

// DecrementAll removes stock for every line or for none. Product locks
// are taken in id order so concurrent multi-line commits cannot deadlock.
func (l *Ledger) DecrementAll(ctx context.Context, lines []domain.CartLine) error {
	if len(lines) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(lines))
	qty := make(map[int64]int, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return ErrInvalidQuantity
		}
		if _, dup := qty[line.ProductID]; !dup {
			ids = append(ids, line.ProductID)
		}
		qty[line.ProductID] += line.Quantity
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		lock := l.productLock(id)
		lock.Lock()
		defer lock.Unlock()
	}

	// Validate every line against live stock before mutating anything
	products := make(map[int64]*domain.Product, len(ids))
	for _, id := range ids {
		p, err := l.store.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		if qty[id] > p.StockQuantity {
			return fmt.Errorf("%w for %s: requested %d, available %d",
				ErrInsufficientStock, p.Name, qty[id], p.StockQuantity)
		}
		products[id] = p
	}

	// Persist; on a mid-way store failure restore what was written so the
	// commit stays all-or-nothing
	written := make([]int64, 0, len(ids))
	for _, id := range ids {
		remaining := products[id].StockQuantity - qty[id]
		if err := l.store.UpdateStock(ctx, id, remaining); err != nil {
			for _, prev := range written {
				if restoreErr := l.store.UpdateStock(ctx, prev, products[prev].StockQuantity); restoreErr != nil {
					l.logger.Error("Failed to restore stock after partial write",
						zap.Int64("product_id", prev),
						zap.Error(restoreErr),
					)
				}
			}
			return fmt.Errorf("failed to persist stock change: %w", err)
		}
		written = append(written, id)
	}

	for _, id := range ids {
		l.publish(Event{
			ProductID: id,
			Name:      products[id].Name,
			Quantity:  qty[id],
			Remaining: products[id].StockQuantity - qty[id],
		})
	}
	return nil
}

// Summary aggregates stock health across the catalog
type Summary struct {
	TotalProducts int     `json:"total_products"`
	LowCount      int     `json:"low_count"`
	CriticalCount int     `json:"critical_count"`
	StockValue    float64 `json:"stock_value"`
}

// Overview computes dashboard counts from a live catalog read
func (l *Ledger) Overview(ctx context.Context) (*Summary, error) {
	products, err := l.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	s := &Summary{TotalProducts: len(products)}
	for _, p := range products {
		switch l.Classify(p) {
		case domain.StockCritical:
			s.CriticalCount++
		case domain.StockLow:
			s.LowCount++
		}
		s.StockValue += p.StockValue()
	}
	return s, nil
}
