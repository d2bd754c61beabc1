package repository

import (
	"context"
	"testing"
	"time"

	"salepoint/internal/domain"
)

func saveTxAt(t *testing.T, l *MemoryTransactionLog, id string, at time.Time) {
	t.Helper()
	err := l.Save(context.Background(), &domain.Transaction{
		ID:            id,
		Lines:         []domain.CartLine{{ProductID: 1, Name: "Bread", UnitPrice: 65, Quantity: 1, LineTotal: 65}},
		Subtotal:      65,
		TaxRate:       16,
		TaxAmount:     10.4,
		Total:         75.4,
		PaymentMethod: domain.MethodCash,
		Cashier:       "clerk1",
		CreatedAt:     at,
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
}

func TestMemoryTransactionLogListBetweenOrdersNewestFirst(t *testing.T) {
	l := NewMemoryTransactionLog()
	base := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	// Saved out of order on purpose
	saveTxAt(t, l, "TXN-mid", base.Add(1*time.Hour))
	saveTxAt(t, l, "TXN-new", base.Add(2*time.Hour))
	saveTxAt(t, l, "TXN-old", base)
	saveTxAt(t, l, "TXN-outside", base.Add(24*time.Hour))

	listed, err := l.ListBetween(context.Background(), base, base.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("ListBetween failed: %v", err)
	}

	want := []string{"TXN-new", "TXN-mid", "TXN-old"}
	if len(listed) != len(want) {
		t.Fatalf("got %d transactions, want %d", len(listed), len(want))
	}
	for i, id := range want {
		if listed[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, listed[i].ID, id)
		}
	}
	if listed[0].PaymentMethod != domain.MethodCash {
		t.Errorf("payment method = %s, want %s", listed[0].PaymentMethod, domain.MethodCash)
	}
}
