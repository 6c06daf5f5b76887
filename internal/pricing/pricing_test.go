package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDiscount(t *testing.T) {
	tests := []struct {
		name     string
		duration int
		want     string
	}{
		{name: "below lowest tier", duration: 1, want: "0"},
		{name: "just below 90", duration: 89, want: "0"},
		{name: "exactly 90", duration: 90, want: "0.05"},
		{name: "between tiers", duration: 179, want: "0.05"},
		{name: "exactly 180", duration: 180, want: "0.1"},
		{name: "exactly 365", duration: 365, want: "0.15"},
		{name: "above top tier", duration: 1095, want: "0.15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DefaultTable.Discount(tt.duration)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "discount(%d) = %s, want %s", tt.duration, got, tt.want)
		})
	}
}

func TestPrice(t *testing.T) {
	base := decimal.RequireFromString("10.00")

	tests := []struct {
		name     string
		duration int
		want     string
	}{
		{name: "no discount", duration: 30, want: "300.00"},
		{name: "five percent", duration: 100, want: "950.00"},
		{name: "ten percent", duration: 200, want: "1800.00"},
		{name: "fifteen percent", duration: 400, want: "3400.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DefaultTable.Price(base, tt.duration)
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestPriceRoundsToCents(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		duration int
		exact    string
		want     string
	}{
		{name: "sub-cent remainder", base: "0.51", duration: 365, exact: "158.2275", want: "158.23"},
		{name: "half cent rounds up", base: "0.01", duration: 90, exact: "0.855", want: "0.86"},
		{name: "already whole cents", base: "0.50", duration: 30, exact: "15", want: "15.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := decimal.RequireFromString(tt.base)
			d := DefaultTable.Discount(tt.duration)
			exact := base.Mul(decimal.NewFromInt(int64(tt.duration))).Mul(decimal.NewFromInt(1).Sub(d))
			assert.True(t, exact.Equal(decimal.RequireFromString(tt.exact)), "exact = %s", exact)

			got := DefaultTable.Price(base, tt.duration)
			assert.Equal(t, tt.want, got.StringFixed(2))
			assert.LessOrEqual(t, -got.Exponent(), int32(2), "price %s has more than two decimals", got)
		})
	}
}

func TestPriceIsStableAcrossCalls(t *testing.T) {
	base := decimal.RequireFromString("0.33")
	first := DefaultTable.Price(base, 1000)

	for i := 0; i < 100; i++ {
		assert.True(t, first.Equal(DefaultTable.Price(base, 1000)))
	}
	assert.Equal(t, "280.50", first.StringFixed(2))
}

func TestNewTableSortsTiers(t *testing.T) {
	table := NewTable(
		Tier{MinDuration: 12, Rate: decimal.RequireFromString("0.15")},
		Tier{MinDuration: 3, Rate: decimal.RequireFromString("0.05")},
		Tier{MinDuration: 6, Rate: decimal.RequireFromString("0.10")},
	)

	assert.Equal(t, "0", table.Discount(2).String())
	assert.Equal(t, "0.05", table.Discount(4).String())
	assert.Equal(t, "0.1", table.Discount(7).String())
	assert.Equal(t, "0.15", table.Discount(24).String())
}

func TestEmptyTable(t *testing.T) {
	var table Table
	assert.True(t, table.Discount(500).IsZero())
	assert.Equal(t, "50.00", table.Price(decimal.RequireFromString("0.10"), 500).StringFixed(2))
}
