package transport

import (
	"sync"

	"salepoint/internal/cart"
)

// SessionStore holds each cashier's open cart, keyed by username. One
// terminal login owns one cart at a time.
type SessionStore struct {
	stock cart.StockReader

	mu    sync.Mutex
	carts map[string]*cart.Session
}

// NewSessionStore creates an empty store over the given stock reader
func NewSessionStore(stock cart.StockReader) *SessionStore {
	return &SessionStore{
		stock: stock,
		carts: make(map[string]*cart.Session),
	}
}

// Get returns the cashier's cart, creating it on first use
func (s *SessionStore) Get(cashier string) *cart.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.carts[cashier]
	if !ok {
		session = cart.NewSession(cashier, s.stock)
		s.carts[cashier] = session
	}
	return session
}

// Drop discards the cashier's cart, e.g. on logout
func (s *SessionStore) Drop(cashier string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, cashier)
}
