package sale

import (
	"fmt"
	"strings"

	"salepoint/internal/domain"
)

// RenderReceipt formats a committed transaction as a plain-text receipt
// for printing or SMS/preview consumers.
func RenderReceipt(tx *domain.Transaction, currency string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Transaction: %s\n", tx.ID)
	fmt.Fprintf(&b, "Date: %s\n", tx.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Cashier: %s\n", tx.Cashier)
	if tx.CustomerName != "" {
		fmt.Fprintf(&b, "Customer: %s\n", tx.CustomerName)
	}
	b.WriteString(strings.Repeat("-", 40) + "\n")

	for _, line := range tx.Lines {
		fmt.Fprintf(&b, "%-20s %3d x %10.2f %10.2f\n", line.Name, line.Quantity, line.UnitPrice, line.LineTotal)
	}

	b.WriteString(strings.Repeat("-", 40) + "\n")
	fmt.Fprintf(&b, "Subtotal: %s %.2f\n", currency, tx.Subtotal)
	fmt.Fprintf(&b, "Tax (%.1f%%): %s %.2f\n", tx.TaxRate, currency, tx.TaxAmount)
	fmt.Fprintf(&b, "TOTAL: %s %.2f\n", currency, tx.Total)
	fmt.Fprintf(&b, "Payment: %s\n", tx.PaymentMethod)
	if tx.ProviderRef != "" {
		fmt.Fprintf(&b, "Provider Ref: %s\n", tx.ProviderRef)
	}
	b.WriteString("Thank you for your business!\n")

	return b.String()
}
