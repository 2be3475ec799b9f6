package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/dvloznov/finance-assistant/internal/llm"
	"github.com/dvloznov/finance-assistant/internal/signals"
	"github.com/dvloznov/finance-assistant/internal/stats"
)

const synthesizerSystemPrompt = "You are a highly engaging financial assistant synthesizer. " +
	"Write like a smart, warm coach. Never sound robotic or repetitive. " +
	"Adapt tone using user_tone and mood_label: " +
	"supportive when stressed, crisp when urgent, curious when user is curious. " +
	"Follow response_style: concise means at most 5 short lines, detailed means explain each number, " +
	"example_driven means include one worked example, balanced means a short answer plus key numbers. " +
	"If dissatisfied is true, change structure and wording from earlier answers. " +
	"Do not mention net cashflow unless show_net_cashflow is true. " +
	"For transaction questions, use transaction_report values exactly and never invent counts/totals. " +
	"If transaction_report has entries, include a small markdown table (up to 5 rows). " +
	"If intent is investment_question, be especially engaging: " +
	"explain readiness clearly, show 2-3 practical options, and ask one follow-up question. " +
	"For all intents, return: " +
	"1) direct answer, 2) strongest insight, 3) practical next action. " +
	"End with one short follow-up question when it helps continue the conversation. " +
	"Do not provide regulated investment advice. Use currency symbol %s for amounts. " +
	"Answer in %s."

func synthesizerStage() Stage {
	return Stage{
		Name: StageSynthesizer,
		Run: func(ctx context.Context, env *StageEnv, s *State) (string, error) {
			completer := env.Completer
			if completer == nil {
				completer = llm.Unavailable{}
			}
			system := fmt.Sprintf(synthesizerSystemPrompt, env.CurrencySymbol, s.Language)
			text, err := completer.CompleteText(ctx, system, synthesizerUserPrompt(s), env.Temperature)
			if err != nil {
				return "", fmt.Errorf("synthesizer completion: %w", err)
			}
			text = strings.TrimSpace(text)
			if text == "" {
				return "", fmt.Errorf("synthesizer completion: %w: empty text", llm.ErrUnavailable)
			}
			s.Synthesized = PostProcess(text, s.ShowNetCashflow, env.CurrencySymbol)
			return string(StageSynthesizer), nil
		},
		Fallback: func(env *StageEnv, s *State) {
			s.Synthesized = PostProcess(FallbackSummary(s, env.CurrencySymbol), s.ShowNetCashflow, env.CurrencySymbol)
		},
	}
}

func synthesizerUserPrompt(s *State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User message: %s\n", s.Message)
	fmt.Fprintf(&b, "Intent: %s\n", s.Intent)
	fmt.Fprintf(&b, "Language: %s\n", s.Language)
	fmt.Fprintf(&b, "User tone: %s\n", s.Tone)
	fmt.Fprintf(&b, "Mood: %s\n", s.moodLabel())
	fmt.Fprintf(&b, "Response style: %s\n", s.ResponseStyle)
	fmt.Fprintf(&b, "Dissatisfied: %t\n", s.Dissatisfied)
	fmt.Fprintf(&b, "explicit_cashflow_request: %t\n", s.Focus.ExplicitCashflowRequest)
	fmt.Fprintf(&b, "show_net_cashflow: %t\n", s.ShowNetCashflow)
	fmt.Fprintf(&b, "User state: %s\n", toJSON(s.User))
	fmt.Fprintf(&b, "Expense report: %s\n", toJSON(s.Expense))
	fmt.Fprintf(&b, "Budget report: %s\n", toJSON(s.Budget))
	fmt.Fprintf(&b, "Forecast: %s\n", toJSON(s.Forecast))
	fmt.Fprintf(&b, "Behaviour: %s\n", toJSON(s.Behaviour))
	fmt.Fprintf(&b, "Sentiment: %s\n", toJSON(s.Sentiment))
	fmt.Fprintf(&b, "Investment: %s\n", toJSON(s.Investment))
	fmt.Fprintf(&b, "Learning: %s\n", toJSON(s.Learning))
	fmt.Fprintf(&b, "Financial health: %s\n", toJSON(s.Health))
	fmt.Fprintf(&b, "Transaction report: %s", toJSON(s.Transactions))
	return b.String()
}

// toJSON renders a report for the prompt; a report that did not run is {}.
func toJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return "{}"
	}
	return string(data)
}

var (
	netCashflowLine  = regexp.MustCompile(`(?im)^.*\bnet cash ?flow\b.*$`)
	projectedNetLine = regexp.MustCompile(`(?im)^.*\bprojected_net\b.*$`)
	blankRuns        = regexp.MustCompile(`\n{3,}`)
	inrToken         = regexp.MustCompile(`(?i)\bINR\b`)
	rsToken          = regexp.MustCompile(`(?i)\bRs\.?\s*`)
)

// PostProcess removes net cash flow lines unless they were asked for and
// normalizes currency tokens to symbol.
func PostProcess(text string, showNetCashflow bool, symbol string) string {
	if !showNetCashflow {
		text = netCashflowLine.ReplaceAllString(text, "")
		text = projectedNetLine.ReplaceAllString(text, "")
		text = blankRuns.ReplaceAllString(text, "\n\n")
		text = strings.TrimSpace(text)
	}
	if symbol != "" {
		text = inrToken.ReplaceAllLiteralString(text, symbol)
		text = rsToken.ReplaceAllLiteralString(text, symbol)
	}
	return text
}

// FallbackSummary builds the answer from the stage reports alone. It is used
// whenever the language model cannot answer and is byte-for-byte
// reproducible for the same state.
func FallbackSummary(s *State, symbol string) string {
	intro := "You are on the right track."
	switch s.moodLabel() {
	case "support_needed":
		intro = "You are doing better than you think. We can keep this simple and safe."
	case "curious":
		intro = "Great question. Here is the clearest path."
	}

	if s.Intent == signals.IntentInvestmentQuestion {
		inv := s.Investment
		if inv == nil {
			inv = &InvestmentReport{Readiness: "unknown", ReadinessReason: "context"}
		}
		alloc := inv.IllustrativeAllocation
		if alloc == "" {
			alloc = "balanced staged allocation"
		}
		hook := inv.EngagementHook
		if hook == "" {
			hook = "Want me to build a step-by-step beginner plan?"
		}
		return strings.Join([]string{
			intro,
			fmt.Sprintf("- Readiness: %s (%s).", inv.Readiness, inv.ReadinessReason),
			fmt.Sprintf("- Suggested approach: %s.", alloc),
			"- Next action: decide your horizon and monthly amount, then start with a low-risk base.",
			"- " + hook,
		}, "\n")
	}

	if tx := s.Transactions; tx != nil && tx.TransactionCount > 0 {
		lines := []string{
			intro,
			fmt.Sprintf("- Transactions found: %d in %s to %s.", tx.TransactionCount, tx.StartDate, tx.EndDateExclusive),
			fmt.Sprintf("- Debit: %s%s, Credit: %s%s.", symbol, stats.FormatAmount(tx.TotalDebit), symbol, stats.FormatAmount(tx.TotalCredit)),
		}
		if s.ShowNetCashflow {
			lines = append(lines, fmt.Sprintf("- Net cashflow: %s%s.", symbol, stats.FormatAmount(tx.NetCashflow)))
		}
		lines = append(lines,
			"Here are recent transactions:",
			transactionTable(tx.Transactions, symbol),
			"- Want me to break this down by category and suggest one optimization?",
		)
		return strings.Join(lines, "\n")
	}

	health := s.Health
	if health == nil {
		health = &HealthReport{HealthBand: HealthWatch}
	}
	overspending := s.Budget != nil && s.Budget.OverspendingDetected
	var inflow, outflow float64
	if s.Forecast != nil {
		inflow, outflow = s.Forecast.ProjectedInflow, s.Forecast.ProjectedOutflow
	}
	return strings.Join([]string{
		intro,
		fmt.Sprintf("- Overall health score: %s (%s).", formatScore(health.OverallHealthScore), health.HealthBand),
		fmt.Sprintf("- Budget model: 80/20, overspending=%t.", overspending),
		fmt.Sprintf("- Forecast: inflow %s%s vs outflow %s%s.", symbol, stats.FormatAmount(inflow), symbol, stats.FormatAmount(outflow)),
		"- Next action: review top 2 spending categories and set one cap for this week.",
		"- Want a focused 7-day action plan?",
	}, "\n")
}

func transactionTable(rows []stats.TransactionLine, symbol string) string {
	if len(rows) == 0 {
		return "_No transactions in this range._"
	}
	if len(rows) > 5 {
		rows = rows[:5]
	}
	lines := []string{
		"| Date | Description | Category | Type | Amount |",
		"|---|---|---|---|---:|",
	}
	for _, r := range rows {
		desc := []rune(strings.TrimSpace(strings.ReplaceAll(r.Description, "|", " ")))
		if len(desc) > 30 {
			desc = desc[:30]
		}
		category := strings.TrimSpace(strings.ReplaceAll(r.Category, "|", " "))
		lines = append(lines, fmt.Sprintf("| %s | %s | %s | %s | %s%s |",
			r.Date, string(desc), category, r.TransactionType, symbol, stats.FormatAmount(r.Amount)))
	}
	return strings.Join(lines, "\n")
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.1f", v)
}
