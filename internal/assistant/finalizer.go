package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

const (
	memorySource  = "assistant_orchestrator"
	memoryMaxLen  = 500
	approvePrompt = "Reply 'approve' to continue or tell me what to change."
)

var memoryTags = []string{"orchestrator", "health", "sentiment", "risk"}

func reviewNote(reason string) string {
	if reason == ReviewInvestmentApproval {
		return "Review needed before applying changes."
	}
	return "Review suggested due to unusually large anomalies."
}

// review attaches the advisory note. It never blocks the response.
func review(s *State) {
	if !s.NeedsHumanReview {
		return
	}
	s.ReviewNote = reviewNote(s.ReviewReason)
	s.Trace.Append("human_review:" + s.ReviewReason)
}

// MemoryText is the fact written after every analysed turn.
func MemoryText(s *State) string {
	score, band := 0.0, HealthWatch
	if s.Health != nil {
		score, band = s.Health.OverallHealthScore, s.Health.HealthBand
	}
	emotional := s.Sentiment != nil && s.Sentiment.EmotionalSpendingFlag
	readiness := "unknown"
	if s.Investment != nil {
		readiness = s.Investment.Readiness
	}
	text := fmt.Sprintf("Health=%s (%s). SentimentFlag=%t. RiskReadiness=%s.", formatScore(score), band, emotional, readiness)
	if r := []rune(text); len(r) > memoryMaxLen {
		text = string(r[:memoryMaxLen])
	}
	return text
}

func writeMemory(ctx context.Context, log zerolog.Logger, w MemoryWriter, s *State) {
	if w == nil || strings.TrimSpace(s.UserID) == "" {
		return
	}
	if err := w.AppendMemory(ctx, s.UserID, MemoryText(s), append([]string{}, memoryTags...), memorySource); err != nil {
		log.Warn().Err(err).Msg("memory write failed")
		return
	}
	s.Trace.Append("memory_update")
}

func finalize(s *State) {
	if s.NeedsClarification {
		lines := []string{"Before I proceed, I need a couple of details:"}
		for _, q := range s.ClarificationQuestions {
			lines = append(lines, "- "+q)
		}
		s.Response = strings.Join(lines, "\n")
	} else {
		response := strings.TrimSpace(s.Synthesized)
		if note := strings.TrimSpace(s.ReviewNote); note != "" {
			response = fmt.Sprintf("%s\n\n%s\n%s", response, note, approvePrompt)
		}
		s.Response = response
	}
	s.Trace.Append("final_response")
}
