package repository

import (
	"context"
	"testing"
	"time"

	"salepoint/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

func TestMemoryCatalogCopiesOnReadAndWrite(t *testing.T) {
	c := NewMemoryCatalog()
	ctx := context.Background()

	c.PutProduct(&domain.Product{ID: 1, Name: "Bread", Category: "Bakery", Price: 65, StockQuantity: 45, MinStockLevel: 25})

	p, err := c.GetProduct(ctx, 1)
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}

	// Mutating the returned copy must not touch the stored product
	p.StockQuantity = 0
	again, _ := c.GetProduct(ctx, 1)
	if again.StockQuantity != 45 {
		t.Errorf("stored product mutated through a returned copy: %d", again.StockQuantity)
	}
}

func TestMemoryCatalogUpdateStock(t *testing.T) {
	c := NewMemoryCatalog()
	ctx := context.Background()

	c.PutProduct(&domain.Product{ID: 7, Name: "Milk 500ml", StockQuantity: 200})

	if err := c.UpdateStock(ctx, 7, 180); err != nil {
		t.Fatalf("UpdateStock failed: %v", err)
	}
	p, _ := c.GetProduct(ctx, 7)
	if p.StockQuantity != 180 {
		t.Errorf("stock = %d, want 180", p.StockQuantity)
	}

	if err := c.UpdateStock(ctx, 99, 1); err != ErrProductNotFound {
		t.Errorf("unknown product: got %v", err)
	}
}

func TestSampleCatalogSeedsDemoOperators(t *testing.T) {
	c := NewSampleCatalog()
	ctx := context.Background()

	products, err := c.ListProducts(ctx)
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}
	if len(products) != 8 {
		t.Errorf("sample catalog has %d products, want 8", len(products))
	}

	for username, password := range map[string]string{
		"admin":    "admin123",
		"manager1": "manager123",
		"clerk1":   "clerk123",
	} {
		u, err := c.FindUserByUsername(ctx, username)
		if err != nil {
			t.Fatalf("demo user %s missing: %v", username, err)
		}
		if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
			t.Errorf("demo password for %s does not verify", username)
		}
		if u.CreatedAt.After(time.Now()) {
			t.Errorf("user %s created in the future", username)
		}
	}
}
