package domain

// StockStatus is the threshold-derived health of a product's stock level.
// It is computed in exactly one place (the stock ledger) so alerting and
// display indicators can never disagree.
type StockStatus string

const (
	StockAdequate StockStatus = "adequate"
	StockLow      StockStatus = "low"
	StockCritical StockStatus = "critical"
)

// Product represents a sellable catalog entry
type Product struct {
	ID            int64   `json:"id" db:"id"`
	Name          string  `json:"name" db:"name"`
	Category      string  `json:"category" db:"category"`
	Price         float64 `json:"price" db:"price"`
	StockQuantity int     `json:"stock_quantity" db:"stock_quantity"`
	MinStockLevel int     `json:"min_stock_level" db:"min_stock_level"`
}

// StockValue returns the monetary value of the product's current stock
func (p *Product) StockValue() float64 {
	return p.Price * float64(p.StockQuantity)
}
