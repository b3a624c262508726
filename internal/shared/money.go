package shared

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// ToCents converts an amount into integer minor units. Amounts carrying more
// than two fractional digits, or too large for int64 cents, are rejected
// instead of rounded.
func ToCents(amount decimal.Decimal) (int64, error) {
	if !amount.Equal(amount.Round(2)) {
		return 0, Validationf("amount %s has more than two decimal places", amount.String())
	}
	cents := amount.Shift(2)
	if !cents.BigInt().IsInt64() {
		return 0, Validationf("amount %s is out of range", amount.String())
	}
	return cents.IntPart(), nil
}

// LineCents returns unitCents*qty, failing when the product overflows.
func LineCents(unitCents int64, qty int) (int64, error) {
	q := int64(qty)
	if q != 0 && unitCents != 0 {
		if (q == -1 && unitCents == math.MinInt64) || (unitCents == -1 && q == math.MinInt64) {
			return 0, Validationf("line amount is out of range")
		}
		if product := unitCents * q; product/q != unitCents {
			return 0, Validationf("line amount is out of range")
		}
	}
	return unitCents * q, nil
}

// AddCents returns a+b, failing when the sum overflows.
func AddCents(a, b int64) (int64, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, Validationf("total amount is out of range")
	}
	return a + b, nil
}

// FromCents converts integer minor units into a decimal amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Now returns the current time in epoch seconds.
func Now() int64 {
	return time.Now().Unix()
}
