package assistant

import "github.com/dvloznov/finance-assistant/internal/stats"

// IngestionReport acknowledges an upload or sync request.
type IngestionReport struct {
	Triggered bool   `json:"triggered"`
	Mode      string `json:"mode"`
	Status    string `json:"status"`
}

// CategorizationReport lists the top categories and likely recurring spend.
type CategorizationReport struct {
	TopCategories     []stats.CategoryTotal `json:"top_categories"`
	PossibleRecurring []stats.CategoryTotal `json:"possible_recurring"`
	MerchantDetection string                `json:"merchant_detection"`
}

// ExpenseReport compares spending against the previous period.
type ExpenseReport struct {
	PeriodChangePct float64         `json:"period_change_pct"`
	TrendDirection  string          `json:"trend_direction"`
	Anomalies       []stats.Anomaly `json:"anomalies"`
	SpendVelocity7d stats.Velocity  `json:"spend_velocity_7d"`
}

// BudgetReport checks current spend against an 80/20 split of income.
type BudgetReport struct {
	Model                  string  `json:"model"`
	IncomeEstimate         float64 `json:"income_estimate"`
	EssentialSpendLimit    float64 `json:"essential_spend_limit"`
	SavingsTarget          float64 `json:"savings_target"`
	CurrentSpend           float64 `json:"current_spend"`
	OverspendingDetected   bool    `json:"overspending_detected"`
	AdaptiveAdjustmentHint string  `json:"adaptive_adjustment_hint"`
}

// ForecastReport projects month-end cash flow from the current run rate.
type ForecastReport struct {
	DaysLeftInMonth  int     `json:"days_left_in_month"`
	ProjectedInflow  float64 `json:"projected_inflow"`
	ProjectedOutflow float64 `json:"projected_outflow"`
	ProjectedNet     float64 `json:"projected_net"`
	Confidence       string  `json:"confidence"`
}

// BehaviourReport scores impulse spending and discipline.
type BehaviourReport struct {
	ImpulseSpendingScore float64 `json:"impulse_spending_score"`
	DisciplineScore      float64 `json:"discipline_score"`
	PatternSummary       string  `json:"pattern_summary"`
}

// SentimentReport flags emotional or stress-driven spending.
type SentimentReport struct {
	EmotionalSpendingFlag bool    `json:"emotional_spending_flag"`
	StressSpendingFlag    bool    `json:"stress_spending_flag"`
	ConfidenceScore       float64 `json:"confidence_score"`
	MoodLabel             string  `json:"mood_label"`
}

// Investment readiness tiers.
const (
	ReadinessNotReady           = "not_ready"
	ReadinessEmergencyFundFirst = "emergency_fund_first"
	ReadinessReadyToExplore     = "ready_to_explore"
)

// InvestmentReport gives a readiness tier, never a product recommendation.
type InvestmentReport struct {
	InvestableSurplus      float64 `json:"investable_surplus"`
	RiskScore              string  `json:"risk_score"`
	Readiness              string  `json:"readiness"`
	ReadinessReason        string  `json:"readiness_reason"`
	IllustrativeAllocation string  `json:"illustrative_allocation"`
	EngagementHook         string  `json:"engagement_hook"`
	AdviceDisclaimer       string  `json:"advice_disclaimer"`
}

// LearningReport holds tips and a suggested learning path.
type LearningReport struct {
	Tips         []string `json:"tips"`
	LearningPath []string `json:"learning_path"`
}

// Health bands.
const (
	HealthGood           = "good"
	HealthWatch          = "watch"
	HealthNeedsAttention = "needs_attention"
)

// HealthReport combines savings, stability and risk into one score.
type HealthReport struct {
	SavingsScore       float64 `json:"savings_score"`
	StabilityScore     float64 `json:"stability_score"`
	RiskScore          float64 `json:"risk_score"`
	OverallHealthScore float64 `json:"overall_health_score"`
	HealthBand         string  `json:"health_band"`
}
