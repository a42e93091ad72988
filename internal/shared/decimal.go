package shared

import "github.com/shopspring/decimal"

// Quantities carry three fractional digits, money two. Aggregation over
// movements and ledger entries must stay in exact decimal arithmetic;
// float64 sums are not acceptable for stock or money totals.
const (
	QuantityScale = 3
	MoneyScale    = 2
)

// RoundQuantity normalises a quantity to three decimals, round-half-even.
func RoundQuantity(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(QuantityScale)
}

// RoundMoney normalises a monetary amount to two decimals, round-half-even.
// Half-even is the house rounding policy wherever a total is materialised.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(MoneyScale)
}
