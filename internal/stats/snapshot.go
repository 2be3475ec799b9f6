package stats

import (
	"sort"
	"time"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

const snapshotTopCategories = 5

// CategoryTotal is the summed debit amount of one category.
type CategoryTotal struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Snapshot aggregates debit and credit totals over a trailing window.
type Snapshot struct {
	WindowDays       int             `json:"window_days"`
	TransactionCount int             `json:"transaction_count"`
	TotalDebit       float64         `json:"total_debit"`
	TotalCredit      float64         `json:"total_credit"`
	NetCashflow      float64         `json:"net_cashflow"`
	TopCategories    []CategoryTotal `json:"top_categories"`
}

// EmptySnapshot is the snapshot of a user without transactions.
func EmptySnapshot(windowDays int) *Snapshot {
	return &Snapshot{WindowDays: windowDays, TopCategories: []CategoryTotal{}}
}

// ComputeSnapshot totals transactions whose timestamp lies in
// [now - windowDays, now]. It never fails; no data yields zero totals.
func ComputeSnapshot(txs []domain.Transaction, now time.Time, windowDays int) *Snapshot {
	cutoff := now.AddDate(0, 0, -windowDays)
	snap := EmptySnapshot(windowDays)

	var debit, credit accumulator
	categories := newCategoryTotals()
	for _, tx := range txs {
		if tx.OccurredAt.Before(cutoff) || tx.OccurredAt.After(now) {
			continue
		}
		snap.TransactionCount++
		if tx.Type == domain.Credit {
			credit.add(tx.Amount)
			continue
		}
		debit.add(tx.Amount)
		categories.add(tx.CategoryOrOther(), tx.Amount)
	}

	snap.TotalDebit = debit.value()
	snap.TotalCredit = credit.value()
	snap.NetCashflow = Round(credit.total.Sub(debit.total).InexactFloat64(), 2)
	snap.TopCategories = categories.top(snapshotTopCategories)
	return snap
}

// categoryTotals accumulates per-category amounts.
type categoryTotals struct {
	sums map[string]*accumulator
}

func newCategoryTotals() *categoryTotals {
	return &categoryTotals{sums: make(map[string]*accumulator)}
}

func (c *categoryTotals) add(name string, amount float64) {
	acc, ok := c.sums[name]
	if !ok {
		acc = &accumulator{}
		c.sums[name] = acc
	}
	acc.add(amount)
}

// top returns the n largest categories by amount, ties broken by name.
func (c *categoryTotals) top(n int) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(c.sums))
	for name, acc := range c.sums {
		out = append(out, CategoryTotal{Name: name, Amount: acc.value()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount == out[j].Amount {
			return out[i].Name < out[j].Name
		}
		return out[i].Amount > out[j].Amount
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
