package assistant

import (
	"time"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/signals"
	"github.com/dvloznov/finance-assistant/internal/stats"
)

// CashFlow is income and expense over the recent window.
type CashFlow struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Net     float64 `json:"net"`
}

// Habits summarizes spend velocity and discipline.
type Habits struct {
	VelocityChangePct float64 `json:"velocity_change_pct"`
	DisciplineScore   float64 `json:"discipline_score"`
}

// Sentiment markers counted over the user's dialogue turns.
const (
	MarkerStressed  = "stressed"
	MarkerNeutral   = "neutral"
	MarkerConfident = "confident"
)

// SentimentHistory is the dominant marker across past user turns.
type SentimentHistory struct {
	Dominant     string         `json:"dominant"`
	Distribution map[string]int `json:"distribution"`
}

// Risk profiles.
const (
	RiskConservative = "conservative"
	RiskBalanced     = "balanced"
	RiskModerate     = "moderate"
)

// Lifecycle stages.
const (
	LifecycleStarter   = "starter"
	LifecycleGrowth    = "growth"
	LifecycleStability = "stability"
)

// UserState is the consolidated view every stage reads.
type UserState struct {
	CashFlow         CashFlow             `json:"cash_flow"`
	SavingsRatePct   float64              `json:"savings_rate_pct"`
	Goals            []domain.Goal        `json:"goals"`
	RiskProfile      string               `json:"risk_profile"`
	Habits           Habits               `json:"habits"`
	SentimentHistory SentimentHistory     `json:"sentiment_history"`
	Anomalies        []stats.Anomaly      `json:"anomalies"`
	LifecycleStage   string               `json:"lifecycle_stage"`
	MonthlyTrend     []stats.MonthlySpend `json:"monthly_trend"`
}

// State is the per-turn pipeline record. Each stage owns one report field
// and only ever sets that field.
type State struct {
	UserID    string
	SessionID string
	Message   string
	Language  string
	Now       time.Time

	Intent          signals.Intent
	Tone            string
	Focus           signals.QueryFocus
	Dissatisfied    bool
	ShowNetCashflow bool

	Snapshot      *stats.Snapshot
	Analytics     *stats.AnalyticsReport
	Profile       domain.UserProfile
	Dialogue      []domain.DialogueTurn
	StylePrefs    *domain.StylePreferences
	ResponseStyle string
	Citations     []domain.Citation
	User          UserState

	Plan                   []StageName
	NeedsClarification     bool
	MissingFields          []string
	ClarificationQuestions []string
	NeedsHumanReview       bool
	ReviewReason           string
	ReviewNote             string

	Ingestion      *IngestionReport
	Categorization *CategorizationReport
	Transactions   *stats.TransactionSummary
	Expense        *ExpenseReport
	Budget         *BudgetReport
	Forecast       *ForecastReport
	Behaviour      *BehaviourReport
	Sentiment      *SentimentReport
	Investment     *InvestmentReport
	Learning       *LearningReport
	Health         *HealthReport
	Synthesized    string

	Response string
	Trace    *Trace
}

// NewState starts the state of one turn.
func NewState(userID, sessionID, message, language string, now time.Time) *State {
	return &State{
		UserID:    userID,
		SessionID: sessionID,
		Message:   message,
		Language:  language,
		Now:       now,
		Snapshot:  stats.EmptySnapshot(0),
		Analytics: stats.EmptyAnalytics(0),
		Trace:     &Trace{},
	}
}

func (s *State) moodLabel() string {
	if s.Sentiment == nil {
		return "calm"
	}
	return s.Sentiment.MoodLabel
}
