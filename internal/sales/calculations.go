package sales

import (
	"github.com/shopspring/decimal"

	"github.com/sokoerp/sokoerp/internal/shared"
)

// LineTotal is quantity times the frozen unit price, rounded half-even
// to money precision.
func LineTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return shared.RoundMoney(quantity.Mul(unitPrice))
}

// Totals holds the recomputed denormalized sale amounts.
type Totals struct {
	Subtotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	TaxTotal      decimal.Decimal
	GrandTotal    decimal.Decimal
}

// ComputeTotals derives the sale amounts from its items. Subtotal is
// the sum of line totals; grand total is subtotal minus discount plus
// tax, rounded half-even at money precision.
func ComputeTotals(items []SaleItem, discount, tax decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal)
	}
	subtotal = shared.RoundMoney(subtotal)
	discount = shared.RoundMoney(discount)
	tax = shared.RoundMoney(tax)
	return Totals{
		Subtotal:      subtotal,
		DiscountTotal: discount,
		TaxTotal:      tax,
		GrandTotal:    shared.RoundMoney(subtotal.Sub(discount).Add(tax)),
	}
}
