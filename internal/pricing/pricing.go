// Package pricing рассчитывает стоимость хостинга с учётом скидок за срок.
package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Tier задаёт скидку Rate, действующую начиная со срока MinDuration.
type Tier struct {
	MinDuration int
	Rate        decimal.Decimal
}

// Table упорядоченная по возрастанию MinDuration таблица скидок.
type Table []Tier

// DefaultTable скидки по суткам: от 90 дней 5%, от 180 дней 10%, от 365 дней 15%.
var DefaultTable = NewTable(
	Tier{MinDuration: 90, Rate: decimal.RequireFromString("0.05")},
	Tier{MinDuration: 180, Rate: decimal.RequireFromString("0.10")},
	Tier{MinDuration: 365, Rate: decimal.RequireFromString("0.15")},
)

// NewTable создаёт таблицу скидок, упорядочивая ступени по сроку.
func NewTable(tiers ...Tier) Table {
	t := make(Table, len(tiers))
	copy(t, tiers)
	sort.SliceStable(t, func(i, j int) bool {
		return t[i].MinDuration < t[j].MinDuration
	})
	return t
}

// Discount возвращает ставку скидки для срока duration.
func (t Table) Discount(duration int) decimal.Decimal {
	rate := decimal.Zero
	for _, tier := range t {
		if duration < tier.MinDuration {
			break
		}
		rate = tier.Rate
	}
	return rate
}

// Price возвращает стоимость base × duration × (1 − скидка), округлённую до копеек.
func (t Table) Price(base decimal.Decimal, duration int) decimal.Decimal {
	gross := base.Mul(decimal.NewFromInt(int64(duration)))
	return gross.Mul(decimal.NewFromInt(1).Sub(t.Discount(duration))).Round(2)
}
