package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/signals"
	"github.com/dvloznov/finance-assistant/internal/stats"
)

func TestPlan(t *testing.T) {
	goals := []domain.Goal{{Goal: "Emergency fund"}}
	anomalies := []stats.Anomaly{{Amount: 1}, {Amount: 2}, {Amount: 3}}

	tests := []struct {
		name        string
		intent      signals.Intent
		message     string
		goals       []domain.Goal
		income      float64
		anomalies   []stats.Anomaly
		wantMissing []string
		wantReview  string
		wantStages  int
	}{
		{
			name:        "budget without goal or income",
			intent:      signals.IntentBudgetQuestion,
			message:     "help me budget",
			wantMissing: []string{FieldGoal, FieldIncome},
			wantStages:  12,
		},
		{
			name:       "forecast with everything known",
			intent:     signals.IntentForecasting,
			goals:      goals,
			income:     1000,
			wantStages: 12,
		},
		{
			name:        "investment without horizon",
			intent:      signals.IntentInvestmentQuestion,
			message:     "should i buy stocks",
			goals:       goals,
			wantMissing: []string{FieldInvestmentHorizon},
			wantReview:  ReviewInvestmentApproval,
			wantStages:  12,
		},
		{
			name:       "investment with long term horizon",
			intent:     signals.IntentInvestmentQuestion,
			message:    "long-term investing plan",
			goals:      goals,
			wantReview: ReviewInvestmentApproval,
			wantStages: 12,
		},
		{
			name:       "investment reason wins over anomalies",
			intent:     signals.IntentInvestmentQuestion,
			message:    "my horizon is 10 years",
			goals:      goals,
			anomalies:  anomalies,
			wantReview: ReviewInvestmentApproval,
			wantStages: 12,
		},
		{
			name:       "anomalies flag review",
			intent:     signals.IntentExpenseQuestion,
			anomalies:  anomalies,
			wantReview: ReviewLargeAnomalies,
			wantStages: 12,
		},
		{
			name:       "education plan is short",
			intent:     signals.IntentEducationRequest,
			wantStages: 3,
		},
		{
			name:       "emotional spending plan",
			intent:     signals.IntentEmotionalSpending,
			wantStages: 8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState("u1", "s1", tt.message, DefaultLanguage, testNow)
			s.Intent = tt.intent
			s.User.Goals = tt.goals
			s.User.CashFlow.Income = tt.income
			s.User.Anomalies = tt.anomalies

			plan(s)

			if len(s.MissingFields) != len(tt.wantMissing) {
				t.Fatalf("MissingFields = %v, want %v", s.MissingFields, tt.wantMissing)
			}
			for i := range tt.wantMissing {
				if s.MissingFields[i] != tt.wantMissing[i] {
					t.Errorf("MissingFields[%d] = %q, want %q", i, s.MissingFields[i], tt.wantMissing[i])
				}
			}
			if s.NeedsClarification != (len(tt.wantMissing) > 0) {
				t.Errorf("NeedsClarification = %v", s.NeedsClarification)
			}
			if s.ReviewReason != tt.wantReview || s.NeedsHumanReview != (tt.wantReview != "") {
				t.Errorf("review = %v/%q, want %q", s.NeedsHumanReview, s.ReviewReason, tt.wantReview)
			}
			if len(s.Plan) != tt.wantStages {
				t.Errorf("len(Plan) = %d, want %d", len(s.Plan), tt.wantStages)
			}
			if s.Plan[len(s.Plan)-1] != StageSynthesizer {
				t.Errorf("plan must end with the synthesizer: %v", s.Plan)
			}
		})
	}
}

func TestRegistry_Validate(t *testing.T) {
	r := DefaultRegistry()
	if len(r) != 12 {
		t.Errorf("len(DefaultRegistry()) = %d, want 12", len(r))
	}
	if err := r.Validate(PlanFor(signals.IntentGeneral)); err != nil {
		t.Errorf("base plan rejected: %v", err)
	}
	if _, err := r.ParseStageNames([]string{"budget", "horoscope"}); !errors.Is(err, ErrUnknownStage) {
		t.Errorf("error = %v, want ErrUnknownStage", err)
	}
}

func TestStageReports(t *testing.T) {
	env := &StageEnv{CurrencySymbol: "₹", Log: zerolog.Nop()}

	t.Run("budget flags overspending over 80 percent", func(t *testing.T) {
		s := NewState("u1", "", "m", DefaultLanguage, testNow)
		s.User.CashFlow = CashFlow{Income: 1000, Expense: 900}
		budgetStage().run(context.Background(), env, s)
		if !s.Budget.OverspendingDetected || s.Budget.EssentialSpendLimit != 800 || s.Budget.SavingsTarget != 200 {
			t.Errorf("Budget = %+v", s.Budget)
		}
	})

	t.Run("budget without income never overspends", func(t *testing.T) {
		s := NewState("u1", "", "m", DefaultLanguage, testNow)
		s.User.CashFlow = CashFlow{Expense: 900}
		budgetStage().run(context.Background(), env, s)
		if s.Budget.OverspendingDetected || s.Budget.AdaptiveAdjustmentHint != "on_track" {
			t.Errorf("Budget = %+v", s.Budget)
		}
	})

	t.Run("behaviour impulse is clipped", func(t *testing.T) {
		s := NewState("u1", "", "m", DefaultLanguage, testNow)
		s.Expense = &ExpenseReport{
			Anomalies:       make([]stats.Anomaly, 5),
			SpendVelocity7d: stats.Velocity{ChangePct: 40},
		}
		behaviourStage().run(context.Background(), env, s)
		if s.Behaviour.ImpulseSpendingScore != 100 || s.Behaviour.DisciplineScore != 0 || s.Behaviour.PatternSummary != "spike-driven" {
			t.Errorf("Behaviour = %+v", s.Behaviour)
		}
	})

	t.Run("investment tiers", func(t *testing.T) {
		for _, tc := range []struct {
			net  float64
			want string
		}{
			{-10, ReadinessNotReady},
			{0, ReadinessNotReady},
			{4999, ReadinessEmergencyFundFirst},
			{5000, ReadinessReadyToExplore},
		} {
			s := NewState("u1", "", "m", DefaultLanguage, testNow)
			s.User.CashFlow.Net = tc.net
			investmentStage().run(context.Background(), env, s)
			if s.Investment.Readiness != tc.want {
				t.Errorf("net %v: Readiness = %q, want %q", tc.net, s.Investment.Readiness, tc.want)
			}
			if s.Investment.AdviceDisclaimer != "informational_only_not_financial_advice" {
				t.Errorf("missing disclaimer: %+v", s.Investment)
			}
		}
	})

	t.Run("conservative allocation", func(t *testing.T) {
		s := NewState("u1", "", "m", DefaultLanguage, testNow)
		s.User.RiskProfile = RiskConservative
		investmentStage().run(context.Background(), env, s)
		if s.Investment.IllustrativeAllocation != "70/20/10 (safer/diversified/learning bucket)" {
			t.Errorf("allocation = %q", s.Investment.IllustrativeAllocation)
		}
	})

	t.Run("health bands", func(t *testing.T) {
		s := NewState("u1", "", "m", DefaultLanguage, testNow)
		s.User.SavingsRatePct = 40
		s.Behaviour = &BehaviourReport{DisciplineScore: 90}
		s.Investment = &InvestmentReport{Readiness: ReadinessReadyToExplore}
		financialHealthStage().run(context.Background(), env, s)
		// (80 + 90 + 65) / 3
		if s.Health.OverallHealthScore != 78.3 || s.Health.HealthBand != HealthGood {
			t.Errorf("Health = %+v", s.Health)
		}

		s.Sentiment = &SentimentReport{EmotionalSpendingFlag: true}
		s.Budget = &BudgetReport{OverspendingDetected: true}
		s.User.SavingsRatePct = 0
		financialHealthStage().run(context.Background(), env, s)
		// (0 + 70 + 50) / 3
		if s.Health.OverallHealthScore != 40 || s.Health.HealthBand != HealthNeedsAttention {
			t.Errorf("Health = %+v", s.Health)
		}
	})

	t.Run("sentiment mood", func(t *testing.T) {
		s := NewState("u1", "", "I feel overwhelmed", DefaultLanguage, testNow)
		s.Tone = signals.ToneNeutral
		sentimentStage().run(context.Background(), env, s)
		if !s.Sentiment.EmotionalSpendingFlag || s.Sentiment.MoodLabel != "support_needed" || s.Sentiment.ConfidenceScore != 0.75 {
			t.Errorf("Sentiment = %+v", s.Sentiment)
		}
	})

	t.Run("recurring categories", func(t *testing.T) {
		s := NewState("u1", "", "m", DefaultLanguage, testNow)
		s.Snapshot.TopCategories = []stats.CategoryTotal{{Name: "Rent", Amount: 900}, {Name: "Subscriptions", Amount: 40}}
		categorizationStage().run(context.Background(), env, s)
		if len(s.Categorization.PossibleRecurring) != 1 || s.Categorization.PossibleRecurring[0].Name != "Subscriptions" {
			t.Errorf("Categorization = %+v", s.Categorization)
		}
	})
}

func TestDaysLeftInMonth(t *testing.T) {
	tests := []struct {
		date time.Time
		want int
	}{
		{time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC), 15},
		{time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC), 1},
		{time.Date(2025, time.February, 27, 0, 0, 0, 0, time.UTC), 1},
		{time.Date(2024, time.February, 27, 0, 0, 0, 0, time.UTC), 2},
		{time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), 30},
	}
	for _, tt := range tests {
		t.Run(tt.date.Format("2006-01-02"), func(t *testing.T) {
			if got := daysLeftInMonth(tt.date); got != tt.want {
				t.Errorf("daysLeftInMonth() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPostProcess(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		showNet bool
		want    string
	}{
		{
			name: "drops net lines when not asked",
			text: "Spend is up.\nNet cashflow: 100\nprojected_net was 5\n\n\n\nDone.",
			want: "Spend is up.\n\nDone.",
		},
		{
			name:    "keeps net lines when asked",
			text:    "Net cashflow: Rs 100",
			showNet: true,
			want:    "Net cashflow: ₹100",
		},
		{
			name: "currency tokens",
			text: "Pay inr 50 or rs.20 today",
			want: "Pay ₹ 50 or ₹20 today",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PostProcess(tt.text, tt.showNet, "₹"); got != tt.want {
				t.Errorf("PostProcess() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFallbackSummary_TransactionTable(t *testing.T) {
	s := NewState("u1", "", "list my transactions", DefaultLanguage, testNow)
	s.ShowNetCashflow = true
	s.Transactions = &stats.TransactionSummary{
		StartDate:        "2025-06-01",
		EndDateExclusive: "2025-06-08",
		TransactionCount: 2,
		TotalDebit:       1250,
		TotalCredit:      3000,
		NetCashflow:      1750,
		Transactions: []stats.TransactionLine{
			{Date: "2025-06-07", Description: "Groceries | weekly shop at the big supermarket", Category: "Food", TransactionType: "debit", Amount: 1250},
			{Date: "2025-06-02", Description: "Salary", Category: "Income", TransactionType: "credit", Amount: 3000},
		},
	}

	want := "You are on the right track.\n" +
		"- Transactions found: 2 in 2025-06-01 to 2025-06-08.\n" +
		"- Debit: ₹1,250, Credit: ₹3,000.\n" +
		"- Net cashflow: ₹1,750.\n" +
		"Here are recent transactions:\n" +
		"| Date | Description | Category | Type | Amount |\n" +
		"|---|---|---|---|---:|\n" +
		"| 2025-06-07 | Groceries   weekly shop at the | Food | debit | ₹1,250 |\n" +
		"| 2025-06-02 | Salary | Income | credit | ₹3,000 |\n" +
		"- Want me to break this down by category and suggest one optimization?"

	got := FallbackSummary(s, "₹")
	if got != want {
		t.Errorf("FallbackSummary() =\n%s\nwant\n%s", got, want)
	}
	if again := FallbackSummary(s, "₹"); again != got {
		t.Error("FallbackSummary is not deterministic")
	}
}

func TestSentimentHistoryAndRisk(t *testing.T) {
	dialogue := []domain.DialogueTurn{
		{Role: domain.RoleUser, Content: "I'm so stressed about bills"},
		{Role: domain.RoleAssistant, Content: "I understand, stress is normal"},
		{Role: domain.RoleUser, Content: "still worried"},
		{Role: domain.RoleUser, Content: "feeling better now"},
	}
	h := sentimentHistory(dialogue)
	if h.Dominant != MarkerStressed || h.Distribution[MarkerStressed] != 2 || h.Distribution[MarkerConfident] != 1 {
		t.Errorf("sentimentHistory = %+v", h)
	}
	if got := sentimentHistory(nil).Dominant; got != MarkerNeutral {
		t.Errorf("empty dominant = %q, want neutral", got)
	}

	tests := []struct {
		name      string
		anomalies int
		hasGoals  bool
		stressed  int
		want      string
	}{
		{"many anomalies", 3, true, 0, RiskConservative},
		{"stressed dialogue", 0, true, 2, RiskConservative},
		{"goals and calm", 1, true, 1, RiskBalanced},
		{"no goals", 0, false, 0, RiskModerate},
		{"goals with two anomalies", 2, true, 0, RiskModerate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := riskProfile(tt.anomalies, tt.hasGoals, tt.stressed); got != tt.want {
				t.Errorf("riskProfile() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCitations(t *testing.T) {
	long := make([]rune, 300)
	for i := range long {
		long[i] = 'x'
	}
	hits := []stats.SemanticHit{
		{Source: "knowledge", Text: "line one\nline two", Score: 0.123456},
		{Source: "", Text: string(long), Score: 0.5},
		{Source: "memory", Text: "c", Score: 0.1},
		{Source: "memory", Text: "d", Score: 0.1},
		{Source: "memory", Text: "e", Score: 0.1},
	}
	got := citations(hits, 4)
	if len(got) != 4 {
		t.Fatalf("len(citations) = %d, want 4", len(got))
	}
	if got[0].Snippet != "line one line two" || got[0].Score != 0.1235 {
		t.Errorf("citation[0] = %+v", got[0])
	}
	if got[1].Source != "context" || len([]rune(got[1].Snippet)) != 180 {
		t.Errorf("citation[1] source/len = %q/%d", got[1].Source, len([]rune(got[1].Snippet)))
	}
}
