package money

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

func TestNumericRoundTrip(t *testing.T) {
	d := decimal.RequireFromString("62.5")
	got := FromNumeric(ToNumeric(d))
	if !got.Equal(d) {
		t.Errorf("got %s, want %s", got, d)
	}
}

func TestFromNumeric_Invalid(t *testing.T) {
	if !FromNumeric(pgtype.Numeric{}).IsZero() {
		t.Error("NULL numeric should be zero")
	}
}

func TestWithin(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"62.00", "62.00", true},
		{"62.01", "62.00", true},
		{"61.99", "62.00", true},
		{"62.02", "62.00", false},
		{"60.00", "62.00", false},
	}
	for _, c := range cases {
		got := Within(decimal.RequireFromString(c.a), decimal.RequireFromString(c.b))
		if got != c.want {
			t.Errorf("Within(%s, %s): got %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestFloat(t *testing.T) {
	if got := Float(decimal.RequireFromString("33.335")); got != 33.34 {
		t.Errorf("got %v, want 33.34", got)
	}
}

func TestCents(t *testing.T) {
	cases := map[string]string{"31.005": "31.01", "0.004": "0", "-8.125": "-8.13", "12": "12"}
	for in, want := range cases {
		if got := Cents(decimal.RequireFromString(in)); !got.Equal(decimal.RequireFromString(want)) {
			t.Errorf("Cents(%s): got %s, want %s", in, got, want)
		}
	}
}
