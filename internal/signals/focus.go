package signals

import (
	"regexp"
	"strings"
	"time"

	"github.com/dvloznov/finance-assistant/internal/stats"
)

// Focus tags, in reporting order.
const (
	FocusCashflow           = "cashflow"
	FocusSpendingTrend      = "spending_trend"
	FocusCategoryBreakdown  = "category_breakdown"
	FocusAnomalies          = "anomalies"
	FocusVelocity7d         = "velocity_7d"
	FocusSavingsActions     = "savings_actions"
	FocusGoalProgress       = "goal_progress"
	FocusEducation          = "education"
	FocusTransactionSummary = "transaction_summary"
)

var focusRules = []struct {
	tag     string
	pattern *regexp.Regexp
}{
	{FocusCashflow, regexp.MustCompile(`\b(cash ?flow|net|inflow|outflow|income vs|earn(ed)? vs)\b`)},
	{FocusSpendingTrend, regexp.MustCompile(`\b(trend|trends|compared?|increas(e|ed|ing)|decreas(e|ed|ing)|over time|month over month)\b`)},
	{FocusCategoryBreakdown, regexp.MustCompile(`\b(categor(y|ies)|breakdown|where did i spend|where does my money)\b`)},
	{FocusAnomalies, regexp.MustCompile(`\b(unusual|anomal(y|ies|ous)|spikes?|outliers?|suspicious)\b`)},
	{FocusVelocity7d, regexp.MustCompile(`\b(velocity|pace|this week|last 7 days|weekly)\b`)},
	{FocusSavingsActions, regexp.MustCompile(`\b(save|saving|savings|cut|reduce)\b`)},
	{FocusGoalProgress, regexp.MustCompile(`\b(goals?|target|progress)\b`)},
	{FocusEducation, regexp.MustCompile(`\b(explain|what is|learn|teach)\b`)},
	{FocusTransactionSummary, regexp.MustCompile(`\b(transactions?|spent|spend|how much|history|statement|purchases?)\b`)},
}

// QueryFocus is what a message asks about and for which period.
type QueryFocus struct {
	Focus                   []string        `json:"focus"`
	TimeRange               stats.TimeRange `json:"time_range"`
	ExplicitCashflowRequest bool            `json:"explicit_cashflow_request"`
}

// Has reports whether tag is among the focus tags.
func (q QueryFocus) Has(tag string) bool {
	for _, f := range q.Focus {
		if f == tag {
			return true
		}
	}
	return false
}

// ExtractQueryFocus tags message with focus areas and parses its time range.
// Without any match the focus is savings_actions.
func ExtractQueryFocus(message string, now time.Time) QueryFocus {
	text := strings.ToLower(message)
	var focus []string
	for _, rule := range focusRules {
		if rule.pattern.MatchString(text) {
			focus = append(focus, rule.tag)
		}
	}
	if len(focus) == 0 {
		focus = []string{FocusSavingsActions}
	}

	q := QueryFocus{
		Focus:     focus,
		TimeRange: stats.ExtractTimeRange(message, now),
	}
	q.ExplicitCashflowRequest = q.Has(FocusCashflow)
	return q
}
