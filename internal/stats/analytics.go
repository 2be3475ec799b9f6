package stats

import (
	"math"
	"sort"
	"time"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

const (
	analyticsTopCategories = 6
	anomalyMinSamples      = 8
	anomalyMaxResults      = 5
	velocityWindowDays     = 7
	descriptionMaxLen      = 120
)

// LargestTransaction describes the biggest debit of a period.
type LargestTransaction struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Date        string  `json:"date"`
}

// PeriodStats summarizes the debits of one period.
type PeriodStats struct {
	Count       int                 `json:"count"`
	TotalSpend  float64             `json:"total_spend"`
	AvgSpend    float64             `json:"avg_spend"`
	MedianSpend float64             `json:"median_spend"`
	Largest     *LargestTransaction `json:"largest"`
}

// CategoryShare is a category's share of recent spend.
type CategoryShare struct {
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	SharePct float64 `json:"share_pct"`
}

// MonthlySpend is the debit total of one calendar month (YYYY-MM).
type MonthlySpend struct {
	Month string  `json:"month"`
	Spend float64 `json:"spend"`
}

// Velocity compares the last seven days of spend with the seven before.
type Velocity struct {
	Current7dSpend  float64 `json:"current_7d_spend"`
	Previous7dSpend float64 `json:"previous_7d_spend"`
	ChangePct       float64 `json:"change_pct"`
}

// Anomaly is a debit at or above mean + 2 population standard deviations.
type Anomaly struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Date        string  `json:"date"`
}

// AnalyticsReport carries trend, category, velocity and anomaly statistics.
type AnalyticsReport struct {
	WindowDays      int             `json:"window_days"`
	RecentPeriod    PeriodStats     `json:"recent_period"`
	PreviousPeriod  PeriodStats     `json:"previous_period"`
	PeriodChangePct float64         `json:"period_change_pct"`
	TopCategories   []CategoryShare `json:"top_categories"`
	MonthlyTrend    []MonthlySpend  `json:"monthly_trend"`
	SpendVelocity7d Velocity        `json:"spend_velocity_7d"`
	Anomalies       []Anomaly       `json:"anomalies"`
}

// EmptyAnalytics is the report of a user without transactions.
func EmptyAnalytics(windowDays int) *AnalyticsReport {
	return &AnalyticsReport{
		WindowDays:    windowDays,
		TopCategories: []CategoryShare{},
		MonthlyTrend:  []MonthlySpend{},
		Anomalies:     []Anomaly{},
	}
}

// ComputeAnalytics splits debits into the recent window [now-windowDays, now]
// and the equal-length window immediately before it. txs must be sorted
// oldest first.
func ComputeAnalytics(txs []domain.Transaction, now time.Time, windowDays int) *AnalyticsReport {
	startRecent := now.AddDate(0, 0, -windowDays)
	startPrev := startRecent.AddDate(0, 0, -windowDays)
	sevenStart := now.AddDate(0, 0, -velocityWindowDays)
	prevSevenStart := sevenStart.AddDate(0, 0, -velocityWindowDays)

	var recent, previous []domain.Transaction
	var spend7, spendPrev7 accumulator
	for _, tx := range txs {
		if tx.Type == domain.Credit {
			continue
		}
		at := tx.OccurredAt
		switch {
		case !at.Before(startRecent) && !at.After(now):
			recent = append(recent, tx)
			if !at.Before(sevenStart) {
				spend7.add(tx.Amount)
			}
		case !at.Before(startPrev) && at.Before(startRecent):
			previous = append(previous, tx)
		}
		if !at.Before(prevSevenStart) && at.Before(sevenStart) {
			spendPrev7.add(tx.Amount)
		}
	}

	report := EmptyAnalytics(windowDays)
	report.RecentPeriod = summarizePeriod(recent)
	report.PreviousPeriod = summarizePeriod(previous)
	report.PeriodChangePct = Round(percentChange(report.RecentPeriod.TotalSpend, report.PreviousPeriod.TotalSpend), 1)
	report.TopCategories = categoryShares(recent, report.RecentPeriod.TotalSpend)
	report.MonthlyTrend = monthlyTrend(recent)

	current, prev := spend7.value(), spendPrev7.value()
	report.SpendVelocity7d = Velocity{
		Current7dSpend:  current,
		Previous7dSpend: prev,
		ChangePct:       Round(percentChange(current, prev), 1),
	}
	report.Anomalies = detectAnomalies(recent)
	return report
}

func summarizePeriod(items []domain.Transaction) PeriodStats {
	if len(items) == 0 {
		return PeriodStats{}
	}
	amounts := make([]float64, len(items))
	var total accumulator
	largest := 0
	for i, tx := range items {
		amounts[i] = tx.Amount
		total.add(tx.Amount)
		if tx.Amount > items[largest].Amount {
			largest = i
		}
	}
	top := items[largest]
	return PeriodStats{
		Count:       len(items),
		TotalSpend:  total.value(),
		AvgSpend:    Round(mean(amounts), 2),
		MedianSpend: Round(median(amounts), 2),
		Largest: &LargestTransaction{
			Amount:      Round(top.Amount, 2),
			Description: truncate(top.Description, descriptionMaxLen),
			Category:    top.CategoryOrOther(),
			Date:        top.OccurredAt.Format(dateLayout),
		},
	}
}

func categoryShares(recent []domain.Transaction, recentTotal float64) []CategoryShare {
	totals := newCategoryTotals()
	for _, tx := range recent {
		totals.add(tx.CategoryOrOther(), tx.Amount)
	}
	top := totals.top(analyticsTopCategories)
	shares := make([]CategoryShare, 0, len(top))
	for _, c := range top {
		share := 0.0
		if recentTotal > 0 {
			share = c.Amount / recentTotal * 100
		}
		shares = append(shares, CategoryShare{Name: c.Name, Amount: c.Amount, SharePct: Round(share, 1)})
	}
	return shares
}

func monthlyTrend(recent []domain.Transaction) []MonthlySpend {
	months := make(map[string]*accumulator)
	for _, tx := range recent {
		key := tx.OccurredAt.Format("2006-01")
		acc, ok := months[key]
		if !ok {
			acc = &accumulator{}
			months[key] = acc
		}
		acc.add(tx.Amount)
	}
	keys := make([]string, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	trend := make([]MonthlySpend, 0, len(keys))
	for _, k := range keys {
		trend = append(trend, MonthlySpend{Month: k, Spend: months[k].value()})
	}
	return trend
}

// detectAnomalies flags debits at or above mean + 2*pstdev. It needs at
// least anomalyMinSamples points; fewer samples yield an empty list.
func detectAnomalies(recent []domain.Transaction) []Anomaly {
	anomalies := []Anomaly{}
	if len(recent) < anomalyMinSamples {
		return anomalies
	}
	amounts := make([]float64, len(recent))
	for i, tx := range recent {
		amounts[i] = tx.Amount
	}
	threshold := mean(amounts) + 2*populationStdDev(amounts)

	var outliers []domain.Transaction
	for _, tx := range recent {
		if tx.Amount >= threshold {
			outliers = append(outliers, tx)
		}
	}
	sort.SliceStable(outliers, func(i, j int) bool {
		return outliers[i].Amount > outliers[j].Amount
	})
	for i, tx := range outliers {
		if i == anomalyMaxResults {
			break
		}
		anomalies = append(anomalies, Anomaly{
			Amount:      Round(tx.Amount, 2),
			Description: truncate(tx.Description, descriptionMaxLen),
			Category:    tx.CategoryOrOther(),
			Date:        tx.OccurredAt.Format(dateLayout),
		})
	}
	return anomalies
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func populationStdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}
