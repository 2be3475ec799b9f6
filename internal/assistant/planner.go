package assistant

import (
	"regexp"
	"strings"

	"github.com/dvloznov/finance-assistant/internal/signals"
)

// Missing input fields.
const (
	FieldGoal              = "goal"
	FieldIncome            = "income"
	FieldInvestmentHorizon = "investment_horizon"
)

// Human review reasons.
const (
	ReviewLargeAnomalies     = "large_anomalies"
	ReviewInvestmentApproval = "investment_readiness_confirmation"
)

var basePlan = []StageName{
	StageIngestion,
	StageCategorization,
	StageTransactionQuery,
	StageExpense,
	StageBudget,
	StageForecasting,
	StageBehaviour,
	StageSentiment,
	StageInvestment,
	StageLearning,
	StageFinancialHealth,
	StageSynthesizer,
}

var intentPlans = map[signals.Intent][]StageName{
	signals.IntentEducationRequest: {StageLearning, StageFinancialHealth, StageSynthesizer},
	signals.IntentEmotionalSpending: {
		StageTransactionQuery, StageExpense, StageBehaviour, StageSentiment,
		StageBudget, StageLearning, StageFinancialHealth, StageSynthesizer,
	},
}

var clarificationQuestions = map[string]string{
	FieldGoal:              "What financial goal should I optimize for right now?",
	FieldIncome:            "Could you share your approximate monthly income so I can make a realistic plan?",
	FieldInvestmentHorizon: "What is your investment horizon (for example 1, 3, or 5+ years)?",
}

var horizonPattern = regexp.MustCompile(`\bhorizon\b|\b\d+\+?\s*(?:years?|yrs?)\b|\b(?:short|medium|long)[- ]term\b`)

// PlanFor returns the stage sequence for intent.
func PlanFor(intent signals.Intent) []StageName {
	plan, ok := intentPlans[intent]
	if !ok {
		plan = basePlan
	}
	return append([]StageName{}, plan...)
}

// plan sets the stage list, missing inputs and the review flag on s.
func plan(s *State) {
	s.Plan = PlanFor(s.Intent)

	hasGoals := len(s.User.Goals) > 0
	income := s.User.CashFlow.Income
	var missing []string
	switch s.Intent {
	case signals.IntentBudgetQuestion, signals.IntentInvestmentQuestion, signals.IntentForecasting:
		if !hasGoals {
			missing = append(missing, FieldGoal)
		}
	}
	switch s.Intent {
	case signals.IntentBudgetQuestion, signals.IntentForecasting:
		if income <= 0 {
			missing = append(missing, FieldIncome)
		}
	}
	if s.Intent == signals.IntentInvestmentQuestion && !horizonPattern.MatchString(strings.ToLower(s.Message)) {
		missing = append(missing, FieldInvestmentHorizon)
	}

	s.MissingFields = missing
	s.NeedsClarification = len(missing) > 0

	s.NeedsHumanReview = false
	s.ReviewReason = ""
	if len(s.User.Anomalies) >= 3 {
		s.NeedsHumanReview = true
		s.ReviewReason = ReviewLargeAnomalies
	}
	if s.Intent == signals.IntentInvestmentQuestion {
		s.NeedsHumanReview = true
		s.ReviewReason = ReviewInvestmentApproval
	}
}

func clarify(s *State) {
	questions := make([]string, 0, len(s.MissingFields))
	for _, f := range s.MissingFields {
		if q, ok := clarificationQuestions[f]; ok {
			questions = append(questions, q)
		}
	}
	s.ClarificationQuestions = questions
}
