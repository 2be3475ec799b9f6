package stats

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// accumulator sums amounts exactly so totals are not skewed by float drift.
type accumulator struct {
	total decimal.Decimal
}

func (a *accumulator) add(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	a.total = a.total.Add(decimal.NewFromFloat(v))
}

func (a accumulator) value() float64 {
	return a.total.Round(2).InexactFloat64()
}

// Round rounds v to the given number of decimal places, half away from zero.
// Non-finite values round to zero.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// FormatAmount renders v as a whole number with thousands separators,
// e.g. 12345.6 -> "12,346".
func FormatAmount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	s := decimal.NewFromFloat(v).Round(0).StringFixed(0)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	if neg && s != "0" {
		b.WriteByte('-')
	}
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// percentChange is (current - previous) / previous * 100, or 0 when the
// previous total is not positive.
func percentChange(current, previous float64) float64 {
	if previous <= 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
