package stats

import (
	"fmt"
	"sort"
	"time"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

const (
	dateLayout          = "2006-01-02"
	summaryMinRows      = 5
	summaryMaxRows      = 20
	summaryTopCategoryN = 5
)

// TransactionLine is one transaction formatted for display.
type TransactionLine struct {
	ID              string  `json:"id"`
	Date            string  `json:"date"`
	Description     string  `json:"description"`
	Category        string  `json:"category"`
	TransactionType string  `json:"transaction_type"`
	Amount          float64 `json:"amount"`
}

// TransactionSummary describes the transactions of an explicit interval.
type TransactionSummary struct {
	StartDate        string            `json:"start_date"`
	EndDateExclusive string            `json:"end_date_exclusive"`
	TransactionCount int               `json:"transaction_count"`
	TotalDebit       float64           `json:"total_debit"`
	TotalCredit      float64           `json:"total_credit"`
	NetCashflow      float64           `json:"net_cashflow"`
	TopCategories    []CategoryTotal   `json:"top_categories"`
	Transactions     []TransactionLine `json:"transactions"`
}

// RowLimit clamps a requested row count to max(5, min(limit, 20)).
func RowLimit(limit int) int {
	if limit > summaryMaxRows {
		limit = summaryMaxRows
	}
	if limit < summaryMinRows {
		limit = summaryMinRows
	}
	return limit
}

// SummarizeTransactions reports on transactions in [start, end) and lists
// the most recent ones first, up to RowLimit(limit) rows.
func SummarizeTransactions(txs []domain.Transaction, start, end time.Time, limit int) (*TransactionSummary, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("SummarizeTransactions: %w", ErrInvalidRange)
	}

	var inRange []domain.Transaction
	var debit, credit accumulator
	categories := newCategoryTotals()
	for _, tx := range txs {
		if tx.OccurredAt.Before(start) || !tx.OccurredAt.Before(end) {
			continue
		}
		inRange = append(inRange, tx)
		if tx.Type == domain.Credit {
			credit.add(tx.Amount)
			continue
		}
		debit.add(tx.Amount)
		categories.add(tx.CategoryOrOther(), tx.Amount)
	}

	sort.SliceStable(inRange, func(i, j int) bool {
		if inRange[i].OccurredAt.Equal(inRange[j].OccurredAt) {
			return inRange[i].ID > inRange[j].ID
		}
		return inRange[i].OccurredAt.After(inRange[j].OccurredAt)
	})

	rows := RowLimit(limit)
	lines := make([]TransactionLine, 0, rows)
	for i, tx := range inRange {
		if i == rows {
			break
		}
		lines = append(lines, TransactionLine{
			ID:              tx.ID,
			Date:            tx.OccurredAt.Format(dateLayout),
			Description:     truncate(tx.Description, descriptionMaxLen),
			Category:        tx.CategoryOrOther(),
			TransactionType: string(tx.Type),
			Amount:          Round(tx.Amount, 2),
		})
	}

	return &TransactionSummary{
		StartDate:        start.Format(dateLayout),
		EndDateExclusive: end.Format(dateLayout),
		TransactionCount: len(inRange),
		TotalDebit:       debit.value(),
		TotalCredit:      credit.value(),
		NetCashflow:      Round(credit.total.Sub(debit.total).InexactFloat64(), 2),
		TopCategories:    categories.top(summaryTopCategoryN),
		Transactions:     lines,
	}, nil
}
