package assistant

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dvloznov/finance-assistant/internal/signals"
	"github.com/dvloznov/finance-assistant/internal/stats"
)

const transactionQueryLimit = 20

func ingestionStage() Stage {
	return Stage{
		Name: StageIngestion,
		Run: func(ctx context.Context, env *StageEnv, s *State) (string, error) {
			report := &IngestionReport{Mode: "none", Status: "not_requested"}
			if containsAny(strings.ToLower(s.Message), "csv", "statement", "upload", "ocr", "sync bank") {
				report = &IngestionReport{Triggered: true, Mode: "user_requested", Status: "pending_input"}
			}
			s.Ingestion = report
			return string(StageIngestion), nil
		},
		Fallback: func(env *StageEnv, s *State) {
			s.Ingestion = &IngestionReport{Mode: "none", Status: "not_requested"}
		},
	}
}

var recurringCategories = map[string]bool{"subscriptions": true, "bills": true, "utilities": true}

func categorizationStage() Stage {
	return Stage{
		Name: StageCategorization,
		Run: func(ctx context.Context, env *StageEnv, s *State) (string, error) {
			top := s.Snapshot.TopCategories
			if len(top) > 5 {
				top = top[:5]
			}
			recurring := []stats.CategoryTotal{}
			for _, c := range top {
				if recurringCategories[strings.ToLower(c.Name)] && len(recurring) < 3 {
					recurring = append(recurring, c)
				}
			}
			s.Categorization = &CategorizationReport{
				TopCategories:     append([]stats.CategoryTotal{}, top...),
				PossibleRecurring: recurring,
				MerchantDetection: "heuristic",
			}
			return string(StageCategorization), nil
		},
		Fallback: func(env *StageEnv, s *State) {
			s.Categorization = &CategorizationReport{
				TopCategories:     []stats.CategoryTotal{},
				PossibleRecurring: []stats.CategoryTotal{},
				MerchantDetection: "heuristic",
			}
		},
	}
}

// needsTransactions decides whether the turn asks about concrete transactions.
func needsTransactions(s *State) bool {
	if s.Focus.Has(signals.FocusTransactionSummary) || s.Focus.TimeRange.Explicit {
		return true
	}
	if s.Intent == signals.IntentExpenseQuestion {
		return containsAny(strings.ToLower(s.Message), "transaction", "history", "debit", "credit", "spent")
	}
	return false
}

func transactionQueryStage() Stage {
	return Stage{
		Name: StageTransactionQuery,
		Run: func(ctx context.Context, env *StageEnv, s *State) (string, error) {
			s.Transactions = nil
			if !needsTransactions(s) {
				return fmt.Sprintf("%s:0", StageTransactionQuery), nil
			}
			tr := s.Focus.TimeRange
			if tr.Start.IsZero() || tr.End.IsZero() {
				tr = stats.DefaultTimeRange(s.Now)
			}
			summary, err := env.Stats.TransactionSummary(ctx, s.UserID, tr.Start, tr.End, transactionQueryLimit)
			if err != nil {
				return "", fmt.Errorf("transaction summary: %w", err)
			}
			s.Transactions = summary
			return fmt.Sprintf("%s:%d", StageTransactionQuery, summary.TransactionCount), nil
		},
		Fallback: func(env *StageEnv, s *State) {
			s.Transactions = nil
		},
	}
}

func expenseStage() Stage {
	return Stage{
		Name: StageExpense,
		Run: func(ctx context.Context, env *StageEnv, s *State) (string, error) {
			a := s.Analytics
			direction := "flat"
			switch {
			case a.PeriodChangePct > 0:
				direction = "up"
			case a.PeriodChangePct < 0:
				direction = "down"
			}
			anomalies := a.Anomalies
			if len(anomalies) > 5 {
				anomalies = anomalies[:5]
			}
			s.Expense = &ExpenseReport{
				PeriodChangePct: stats.Round(a.PeriodChangePct, 1),
				TrendDirection:  direction,
				Anomalies:       append([]stats.Anomaly{}, anomalies...),
				SpendVelocity7d: a.SpendVelocity7d,
			}
			return string(StageExpense), nil
		},
		Fallback: func(env *StageEnv, s *State) {
			s.Expense = &ExpenseReport{TrendDirection: "flat", Anomalies: []stats.Anomaly{}}
		},
	}
}

func budgetStage() Stage {
	return Stage{
		Name: StageBudget,
		Run: func(ctx context.Context, env *StageEnv, s *State) (string, error) {
			s.Budget = budgetReport(s.User.CashFlow.Income, s.User.CashFlow.Expense)
			return string(StageBudget), nil
		},
		Fallback: func(env *StageEnv, s *State) {
			s.Budget = budgetReport(0, 0)
		},
	}
}

// budgetReport applies the 80/20 rule. Without income nothing counts as
// overspending.
func budgetReport(income, expense float64) *BudgetReport {
	limit := income * 0.8
	overspending := income > 0 && expense > limit
	hint := "on_track"
	if overspending {
		hint = "tighten variable categories by 10%"
	}
	return &BudgetReport{
		Model:                  "80/20",
		IncomeEstimate:         stats.Round(income, 2),
		EssentialSpendLimit:    stats.Round(limit, 2),
		SavingsTarget:          stats.Round(income*0.2, 2),
		CurrentSpend:           stats.Round(expense, 2),
		OverspendingDetected:   overspending,
		AdaptiveAdjustmentHint: hint,
	}
}

func forecastingStage() Stage {
	return Stage{
		Name: StageForecasting,
		Run: func(ctx context.Context, env *StageEnv, s *State) (string, error) {
			snap := s.Snapshot
			days := snap.WindowDays
			if days < 1 {
				days = stats.DefaultRangeDays
			}
			left := daysLeftInMonth(s.Now)
			inflow := snap.TotalCredit / float64(days) * float64(left)
			outflow := snap.TotalDebit / float64(days) * float64(left)
			s.Forecast = &ForecastReport{
				DaysLeftInMonth:  left,
				ProjectedInflow:  stats.Round(inflow, 2),
				ProjectedOutflow: stats.Round(outflow, 2),
				ProjectedNet:     stats.Round(inflow-outflow, 2),
				Confidence:       "medium",
			}
			return string(StageForecasting), nil
		},
		Fallback: func(env *StageEnv, s *State) {
			s.Forecast = &ForecastReport{DaysLeftInMonth: daysLeftInMonth(s.Now), Confidence: "low"}
		},
	}
}

// daysLeftInMonth counts the days after today in the current month, at least 1.
func daysLeftInMonth(now time.Time) int {
	lastDay := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location()).Day()
	left := lastDay - now.Day()
	if left < 1 {
		return 1
	}
	return left
}

func behaviourStage() Stage {
	return Stage{
		Name: StageBehaviour,
		Run: func(ctx context.Context, env *StageEnv, s *State) (string, error) {
			anomalies := len(s.Analytics.Anomalies)
			velocity := s.Analytics.SpendVelocity7d.ChangePct
			if s.Expense != nil {
				anomalies = len(s.Expense.Anomalies)
				velocity = s.Expense.SpendVelocity7d.ChangePct
			}
			impulse := clip(float64(anomalies)*18+math.Max(0, velocity), 0, 100)
			pattern := "stable"
			if impulse >= 55 {
				pattern = "spike-driven"
			}
			s.Behaviour = &BehaviourReport{
				ImpulseSpendingScore: stats.Round(impulse, 1),
				DisciplineScore:      stats.Round(100-impulse, 1),
				PatternSummary:       pattern,
			}
			return string(StageBehaviour), nil
		},
		Fallback: func(env *StageEnv, s *State) {
			s.Behaviour = &BehaviourReport{DisciplineScore: 50, ImpulseSpendingScore: 50, PatternSummary: "unknown"}
		},
	}
}

func sentimentStage() Stage {
	return Stage{
		Name: StageSentiment,
		Run: func(ctx context.Context, env *StageEnv, s *State) (string, error) {
			emotional := containsAny(strings.ToLower(s.Message), "stress", "panic", "sad", "frustrated", "overwhelmed", "impulse")
			stressed := emotional || s.Tone == signals.ToneStressed || s.Tone == signals.ToneUrgent

			mood := "calm"
			switch {
			case stressed:
				mood = "support_needed"
			case s.Tone == signals.ToneCurious:
				mood = "curious"
			case s.Tone == signals.ToneCasual:
				mood = "casual"
			}
			confidence := 0.35
			if stressed {
				confidence = 0.75
			}
			s.Sentiment = &SentimentReport{
				EmotionalSpendingFlag: emotional,
				StressSpendingFlag:    stressed,
				ConfidenceScore:       confidence,
				MoodLabel:             mood,
			}
			return string(StageSentiment), nil
		},
		Fallback: func(env *StageEnv, s *State) {
			s.Sentiment = &SentimentReport{ConfidenceScore: 0.35, MoodLabel: "calm"}
		},
	}
}

func investmentStage() Stage {
	return Stage{
		Name: StageInvestment,
		Run: func(ctx context.Context, env *StageEnv, s *State) (string, error) {
			s.Investment = investmentReport(s)
			return string(StageInvestment), nil
		},
		Fallback: func(env *StageEnv, s *State) {
			s.Investment = &InvestmentReport{
				RiskScore:        s.User.RiskProfile,
				Readiness:        ReadinessNotReady,
				ReadinessReason:  "insufficient_data",
				AdviceDisclaimer: adviceDisclaimer,
			}
		},
	}
}

const adviceDisclaimer = "informational_only_not_financial_advice"

// investmentReport never recommends products; it only tiers readiness and
// shows an illustrative split.
func investmentReport(s *State) *InvestmentReport {
	net := s.User.CashFlow.Net
	readiness, reason := ReadinessNotReady, "negative_or_zero_surplus"
	switch {
	case net <= 0:
	case net < 5000:
		readiness, reason = ReadinessEmergencyFundFirst, "surplus_exists_but_buffer_thin"
	default:
		readiness, reason = ReadinessReadyToExplore, "positive_surplus_and_stability"
	}

	alloc := "60/30/10 (core/diversified/learning bucket)"
	if s.User.RiskProfile == RiskConservative {
		alloc = "70/20/10 (safer/diversified/learning bucket)"
	}

	hook := "Would you like a conservative, balanced, or growth-oriented sample roadmap?"
	if s.moodLabel() == "support_needed" {
		hook = "Want me to keep this very low-risk and explain it in simple steps?"
	}
	if s.Intent != signals.IntentInvestmentQuestion {
		hook = "If you want, I can also show how this fits your current goal timeline."
	}

	return &InvestmentReport{
		InvestableSurplus:      stats.Round(math.Max(0, net*0.5), 2),
		RiskScore:              s.User.RiskProfile,
		Readiness:              readiness,
		ReadinessReason:        reason,
		IllustrativeAllocation: alloc,
		EngagementHook:         hook,
		AdviceDisclaimer:       adviceDisclaimer,
	}
}

var learningTips = map[signals.Intent][]string{
	signals.IntentExpenseQuestion:    {"Use weekly category caps to control variance."},
	signals.IntentBudgetQuestion:     {"Try 80/20: auto-save 20% before discretionary spend."},
	signals.IntentInvestmentQuestion: {"Build emergency cash before increasing risk exposure."},
	signals.IntentEducationRequest:   {"Focus on cashflow, savings rate, and risk first."},
	signals.IntentBehaviourAnalysis:  {"Use a 24-hour pause rule for impulse purchases."},
	signals.IntentEmotionalSpending:  {"Create a low-cost stress alternative list before spending."},
	signals.IntentForecasting:        {"Review forecast weekly and compare with actuals."},
	signals.IntentGeneral:            {"Track top 3 categories monthly to improve control."},
}

var learningPath = []string{"Foundations", "Budgeting", "Risk", "Automation"}

func learningStage() Stage {
	build := func(intent signals.Intent) *LearningReport {
		tips, ok := learningTips[intent]
		if !ok {
			tips = learningTips[signals.IntentGeneral]
		}
		return &LearningReport{
			Tips:         append([]string{}, tips...),
			LearningPath: append([]string{}, learningPath...),
		}
	}
	return Stage{
		Name: StageLearning,
		Run: func(ctx context.Context, env *StageEnv, s *State) (string, error) {
			s.Learning = build(s.Intent)
			return string(StageLearning), nil
		},
		Fallback: func(env *StageEnv, s *State) {
			s.Learning = build(signals.IntentGeneral)
		},
	}
}

func financialHealthStage() Stage {
	return Stage{
		Name: StageFinancialHealth,
		Run: func(ctx context.Context, env *StageEnv, s *State) (string, error) {
			s.Health = healthReport(s)
			return string(StageFinancialHealth), nil
		},
		Fallback: func(env *StageEnv, s *State) {
			s.Health = &HealthReport{HealthBand: HealthWatch}
		},
	}
}

// healthReport averages savings, stability and risk sub-scores into one
// 0-100 score. Reports of stages that did not run count as neutral.
func healthReport(s *State) *HealthReport {
	discipline := 50.0
	if s.Behaviour != nil {
		discipline = s.Behaviour.DisciplineScore
	}
	overspending := s.Budget != nil && s.Budget.OverspendingDetected
	emotional := s.Sentiment != nil && s.Sentiment.EmotionalSpendingFlag
	readiness := ReadinessNotReady
	if s.Investment != nil {
		readiness = s.Investment.Readiness
	}

	savings := clip(s.User.SavingsRatePct*2, 0, 100)
	penalty := 0.0
	if overspending {
		penalty = 20
	}
	stability := clip(discipline-penalty, 0, 100)
	risk := 40.0
	if readiness == ReadinessReadyToExplore {
		risk = 65
	}
	if emotional {
		risk -= 15
	}

	overall := (savings + stability + risk) / 3
	band := HealthNeedsAttention
	switch {
	case overall >= 70:
		band = HealthGood
	case overall >= 45:
		band = HealthWatch
	}

	return &HealthReport{
		SavingsScore:       stats.Round(savings, 1),
		StabilityScore:     stats.Round(stability, 1),
		RiskScore:          stats.Round(risk, 1),
		OverallHealthScore: stats.Round(overall, 1),
		HealthBand:         band,
	}
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func containsAny(text string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
