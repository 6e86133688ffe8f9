// Package money converts between the store's NUMERIC values and decimals.
package money

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Tolerance is the largest difference accepted between two totals.
var Tolerance = decimal.New(1, -2)

func FromNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func ToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

// Cents rounds d half away from zero to two decimals, the precision the
// store keeps.
func Cents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Float rounds d to cents for JSON output.
func Float(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

// Within reports whether |a-b| <= Tolerance.
func Within(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}
