package pipeline

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrZeroValue is returned when margin percent would require dividing by a
// zero tender value.
var ErrZeroValue = errors.New("tender value must be non-zero")

var hundred = decimal.NewFromInt(100)

// DeriveFinancials computes margin and margin percent from tender value and
// cost. margin = value - cost, margin percent = margin / value * 100. A zero
// value is rejected rather than divided.
func DeriveFinancials(value, cost decimal.Decimal) (margin, marginPct decimal.Decimal, err error) {
	if value.IsZero() {
		return decimal.Zero, decimal.Zero, ErrZeroValue
	}
	margin = value.Sub(cost)
	marginPct = margin.Div(value).Mul(hundred)
	return margin, marginPct, nil
}
