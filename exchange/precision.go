package exchange

import "github.com/shopspring/decimal"

// RoundToStep floors value to an integer multiple of step. A nil or zero
// step leaves the value untouched, for venues that publish no precision.
func RoundToStep(value decimal.Decimal, step *decimal.Decimal) decimal.Decimal {
	if step == nil || step.IsZero() {
		return value
	}
	return value.Div(*step).Floor().Mul(*step)
}

// FormatAmount renders an order amount rounded down to the market's step.
func FormatAmount(value decimal.Decimal, step *decimal.Decimal) string {
	return RoundToStep(value, step).String()
}
