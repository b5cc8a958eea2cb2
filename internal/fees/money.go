package fees

import (
	"github.com/shopspring/decimal"
)

// CentsToDecimal converts an integer cent amount into decimal currency units.
func CentsToDecimal(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100))
}

// DecimalToCents converts decimal currency units into integer cents,
// rounding half-up at the sub-cent boundary.
func DecimalToCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
