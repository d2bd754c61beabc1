package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"salepoint/internal/domain"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MemoryCatalog is an in-process CatalogStore. It backs development mode
// (no database configured) and package tests.
type MemoryCatalog struct {
	mu       sync.RWMutex
	products map[int64]*domain.Product
	users    map[string]*domain.User
}

// NewMemoryCatalog creates an empty in-memory catalog
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		products: make(map[int64]*domain.Product),
		users:    make(map[string]*domain.User),
	}
}

// NewSampleCatalog creates a catalog seeded with demo products and the
// demo operator accounts (admin/admin123, manager1/manager123,
// clerk1/clerk123).
func NewSampleCatalog() *MemoryCatalog {
	c := NewMemoryCatalog()

	samples := []*domain.Product{
		{ID: 1, Name: "Rice 5kg", Category: "Groceries", Price: 650, StockQuantity: 120, MinStockLevel: 40},
		{ID: 2, Name: "Cooking Oil 2L", Category: "Groceries", Price: 480, StockQuantity: 35, MinStockLevel: 50},
		{ID: 3, Name: "Sugar 2kg", Category: "Groceries", Price: 260, StockQuantity: 8, MinStockLevel: 30},
		{ID: 4, Name: "Milk 500ml", Category: "Dairy", Price: 60, StockQuantity: 200, MinStockLevel: 60},
		{ID: 5, Name: "Bread", Category: "Bakery", Price: 65, StockQuantity: 45, MinStockLevel: 25},
		{ID: 6, Name: "Laundry Soap", Category: "Household", Price: 150, StockQuantity: 14, MinStockLevel: 50},
		{ID: 7, Name: "Bottled Water 1L", Category: "Beverages", Price: 80, StockQuantity: 300, MinStockLevel: 100},
		{ID: 8, Name: "Tea Leaves 250g", Category: "Beverages", Price: 190, StockQuantity: 70, MinStockLevel: 20},
	}
	for _, p := range samples {
		c.PutProduct(p)
	}

	for _, u := range []struct {
		username, password, fullName, email, role string
	}{
		{"admin", "admin123", "System Administrator", "admin@salepoint.local", "admin"},
		{"manager1", "manager123", "Store Manager", "manager@salepoint.local", "manager"},
		{"clerk1", "clerk123", "Sales Clerk", "clerk@salepoint.local", "clerk"},
	} {
		hash, _ := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		c.PutUser(&domain.User{
			ID:           uuid.New(),
			Username:     u.username,
			PasswordHash: string(hash),
			FullName:     u.fullName,
			Email:        u.email,
			Role:         u.role,
			CreatedAt:    time.Now(),
		})
	}

	return c
}

// PutProduct inserts or replaces a product
func (c *MemoryCatalog) PutProduct(p *domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *p
	c.products[p.ID] = &cp
}

// PutUser inserts or replaces a user keyed by username
func (c *MemoryCatalog) PutUser(u *domain.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *u
	c.users[u.Username] = &cp
}

func (c *MemoryCatalog) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	products := make([]*domain.Product, 0, len(c.products))
	for _, p := range c.products {
		cp := *p
		products = append(products, &cp)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

func (c *MemoryCatalog) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (c *MemoryCatalog) UpdateStock(ctx context.Context, id int64, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.products[id]
	if !ok {
		return ErrProductNotFound
	}
	p.StockQuantity = quantity
	return nil
}

func (c *MemoryCatalog) ListUsers(ctx context.Context) ([]*domain.User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	users := make([]*domain.User, 0, len(c.users))
	for _, u := range c.users {
		cp := *u
		users = append(users, &cp)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (c *MemoryCatalog) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	u, ok := c.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}
