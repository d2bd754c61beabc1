package domain

import "time"

// CartLine is one product entry in an in-progress cart. UnitPrice is the
// price snapshotted when the product was first added.
type CartLine struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"line_total"`
}

// Totals is the computed money breakdown for a cart at a given tax rate
type Totals struct {
	Subtotal  float64 `json:"subtotal"`
	TaxRate   float64 `json:"tax_rate"`
	TaxAmount float64 `json:"tax_amount"`
	Total     float64 `json:"total"`
}

// Transaction is the immutable record of a committed sale. Lines is a
// snapshot of the cart at commit time; the record is never mutated after
// the orchestrator returns it.
type Transaction struct {
	ID            string     `json:"id" db:"id"`
	CustomerName  string     `json:"customer_name" db:"customer_name"`
	Lines         []CartLine `json:"lines"`
	Subtotal      float64    `json:"subtotal" db:"subtotal"`
	TaxRate       float64    `json:"tax_rate" db:"tax_rate"`
	TaxAmount     float64    `json:"tax_amount" db:"tax_amount"`
	Total         float64    `json:"total" db:"total"`
	PaymentMethod PaymentMethod `json:"payment_method" db:"payment_method"`
	ProviderRef   string     `json:"provider_ref,omitempty" db:"provider_ref"`
	Cashier       string     `json:"cashier" db:"cashier"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}
