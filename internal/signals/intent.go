// Package signals extracts intent, tone, focus and style hints from a chat
// message. Every extractor is total: ambiguous input resolves to a default
// instead of an error.
package signals

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/llm"
)

// Intent is the closed set of message classifications.
type Intent string

const (
	IntentExpenseQuestion    Intent = "expense_question"
	IntentBudgetQuestion     Intent = "budget_question"
	IntentInvestmentQuestion Intent = "investment_question"
	IntentEducationRequest   Intent = "education_request"
	IntentBehaviourAnalysis  Intent = "behaviour_analysis"
	IntentEmotionalSpending  Intent = "emotional_spending"
	IntentForecasting        Intent = "forecasting"
	IntentGeneral            Intent = "general"
)

// Intents lists every valid intent.
var Intents = []Intent{
	IntentExpenseQuestion,
	IntentBudgetQuestion,
	IntentInvestmentQuestion,
	IntentEducationRequest,
	IntentBehaviourAnalysis,
	IntentEmotionalSpending,
	IntentForecasting,
	IntentGeneral,
}

// ParseIntent normalizes s and reports whether it names a known intent.
func ParseIntent(s string) (Intent, bool) {
	candidate := Intent(strings.ToLower(strings.TrimSpace(s)))
	for _, in := range Intents {
		if in == candidate {
			return in, true
		}
	}
	return IntentGeneral, false
}

// Ordered keyword rules; the first rule with a matching keyword wins.
var intentRules = []struct {
	intent   Intent
	keywords []string
}{
	{IntentExpenseQuestion, []string{"spend", "expense", "where did i spend", "transaction"}},
	{IntentBudgetQuestion, []string{"budget", "limit", "overspend", "80/20"}},
	{IntentInvestmentQuestion, []string{"invest", "allocation", "portfolio", "risk profile"}},
	{IntentEducationRequest, []string{"learn", "teach", "what is", "explain"}},
	{IntentBehaviourAnalysis, []string{"habit", "discipline", "behavior", "behaviour"}},
	{IntentEmotionalSpending, []string{"stress", "emotional", "impulse", "panic"}},
	{IntentForecasting, []string{"forecast", "next month", "end of month", "projection"}},
}

// KeywordIntent classifies message with the ordered keyword rules, falling
// back to IntentGeneral.
func KeywordIntent(message string) Intent {
	lowered := strings.ToLower(message)
	for _, rule := range intentRules {
		for _, k := range rule.keywords {
			if strings.Contains(lowered, k) {
				return rule.intent
			}
		}
	}
	return IntentGeneral
}

const intentSystemPrompt = "Classify into one intent only and return strict JSON {\"intent\":\"...\"}. " +
	"Allowed: expense_question, budget_question, investment_question, education_request, " +
	"behaviour_analysis, emotional_spending, forecasting, general."

// Classifier asks the language model for an intent and falls back to the
// keyword rules when the call fails or the reply is unusable.
type Classifier struct {
	completer llm.Completer
	log       zerolog.Logger
}

// NewClassifier creates a Classifier. A nil completer means keyword rules only.
func NewClassifier(completer llm.Completer, log zerolog.Logger) *Classifier {
	if completer == nil {
		completer = llm.Unavailable{}
	}
	return &Classifier{completer: completer, log: log}
}

// Classify always returns a valid intent. The second result reports whether
// the model produced it.
func (c *Classifier) Classify(ctx context.Context, message string) (Intent, bool) {
	message = strings.TrimSpace(message)

	raw, err := c.completer.CompleteText(ctx, intentSystemPrompt, message, 0)
	if err != nil {
		c.log.Debug().Err(err).Msg("intent model call failed, using keyword rules")
		return KeywordIntent(message), false
	}

	var payload struct {
		Intent string `json:"intent"`
	}
	if err := llm.DecodeJSONObject(raw, &payload); err != nil {
		c.log.Warn().Err(err).Str("raw", truncate(raw, 200)).Msg("intent reply is not a JSON object")
		return KeywordIntent(message), false
	}

	intent, ok := ParseIntent(payload.Intent)
	if !ok {
		c.log.Warn().Str("intent", payload.Intent).Msg("model returned unknown intent")
		return KeywordIntent(message), false
	}
	return intent, true
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
