package assistant

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/signals"
	"github.com/dvloznov/finance-assistant/internal/stats"
)

const (
	maxGoals       = 3
	maxAnomalies   = 5
	maxSnippetLen  = 180
	citationPlaces = 4
)

// aggregator merges statistics, profile, dialogue and style preferences into
// the user state. A failing collaborator degrades to its zero value.
type aggregator struct {
	stats    StatsEngine
	profiles ProfileReader
	styles   StyleReader
	dialogue DialogueReader
	cfg      Config
}

func (a *aggregator) aggregate(ctx context.Context, log zerolog.Logger, s *State) {
	snap, err := a.stats.FinancialSnapshot(ctx, s.UserID, a.cfg.SnapshotWindowDays)
	if err != nil {
		log.Warn().Err(err).Msg("financial snapshot unavailable")
		snap = stats.EmptySnapshot(a.cfg.SnapshotWindowDays)
	}
	analytics, err := a.stats.AnalyticsReport(ctx, s.UserID, a.cfg.AnalyticsWindowDays)
	if err != nil {
		log.Warn().Err(err).Msg("analytics report unavailable")
		analytics = stats.EmptyAnalytics(a.cfg.AnalyticsWindowDays)
	}

	profile := domain.UserProfile{UserID: s.UserID}
	if a.profiles != nil {
		p, err := a.profiles.ReadUserProfile(ctx, s.UserID)
		if err != nil {
			log.Warn().Err(err).Msg("user profile unavailable")
		} else if p != nil {
			profile = *p
		}
	}

	var dialogue []domain.DialogueTurn
	if a.dialogue != nil {
		dialogue, err = a.dialogue.ReadRecentDialogue(ctx, s.UserID, s.SessionID, a.cfg.DialogueLimit)
		if err != nil {
			log.Warn().Err(err).Msg("recent dialogue unavailable")
			dialogue = nil
		}
	}

	var prefs *domain.StylePreferences
	if a.styles != nil {
		prefs, err = a.styles.ReadStylePreferences(ctx, s.UserID)
		if err != nil {
			log.Warn().Err(err).Msg("style preferences unavailable")
			prefs = nil
		}
	}

	hits, err := a.stats.SemanticContext(ctx, s.UserID, s.Message, a.cfg.SemanticLimit)
	if err != nil {
		log.Warn().Err(err).Msg("semantic context unavailable")
		hits = nil
	}

	style := signals.PreferredResponseStyle(s.Message, dialogue)
	if style == domain.StyleBalanced && prefs != nil && domain.IsKnownStyle(prefs.StylePreference) {
		style = prefs.StylePreference
	}

	s.Snapshot = snap
	s.Analytics = analytics
	s.Profile = profile
	s.Dialogue = dialogue
	s.StylePrefs = prefs
	s.ResponseStyle = style
	s.Citations = citations(hits, a.cfg.CitationLimit)
	s.User = buildUserState(snap, analytics, profile, dialogue)
}

func buildUserState(snap *stats.Snapshot, analytics *stats.AnalyticsReport, profile domain.UserProfile, dialogue []domain.DialogueTurn) UserState {
	income, expense := snap.TotalCredit, snap.TotalDebit
	savingsRate := 0.0
	if income > 0 {
		savingsRate = (income - expense) / income * 100
	}

	lifecycle := LifecycleStarter
	if income > 0 && savingsRate > 20 {
		lifecycle = LifecycleGrowth
	}
	if income > 0 && savingsRate > 35 {
		lifecycle = LifecycleStability
	}

	goals := profile.Goals
	if len(goals) > maxGoals {
		goals = goals[:maxGoals]
	}
	anomalies := analytics.Anomalies
	if len(anomalies) > maxAnomalies {
		anomalies = anomalies[:maxAnomalies]
	}

	sentiment := sentimentHistory(dialogue)
	velocity := analytics.SpendVelocity7d.ChangePct

	return UserState{
		CashFlow: CashFlow{
			Income:  stats.Round(income, 2),
			Expense: stats.Round(expense, 2),
			Net:     stats.Round(income-expense, 2),
		},
		SavingsRatePct: stats.Round(savingsRate, 1),
		Goals:          append([]domain.Goal{}, goals...),
		RiskProfile:    riskProfile(len(analytics.Anomalies), len(profile.Goals) > 0, sentiment.Distribution[MarkerStressed]),
		Habits: Habits{
			VelocityChangePct: stats.Round(velocity, 1),
			DisciplineScore:   stats.Round(clip(65-velocity/3, 0, 100), 1),
		},
		SentimentHistory: sentiment,
		Anomalies:        append([]stats.Anomaly{}, anomalies...),
		LifecycleStage:   lifecycle,
		MonthlyTrend:     append([]stats.MonthlySpend{}, analytics.MonthlyTrend...),
	}
}

// sentimentHistory counts one marker per user turn. The dominant marker is
// the most frequent one; ties go to stressed, then neutral. Without user
// turns it is neutral.
func sentimentHistory(dialogue []domain.DialogueTurn) SentimentHistory {
	dist := map[string]int{MarkerStressed: 0, MarkerNeutral: 0, MarkerConfident: 0}
	userTurns := 0
	for _, turn := range dialogue {
		if turn.Role != domain.RoleUser {
			continue
		}
		userTurns++
		text := strings.ToLower(turn.Content)
		switch {
		case containsAny(text, "stress", "worried", "anxious", "panic", "overwhelmed"):
			dist[MarkerStressed]++
		case containsAny(text, "good", "better", "confident", "on track"):
			dist[MarkerConfident]++
		default:
			dist[MarkerNeutral]++
		}
	}

	dominant := MarkerNeutral
	if userTurns > 0 {
		dominant = MarkerStressed
		for _, m := range []string{MarkerNeutral, MarkerConfident} {
			if dist[m] > dist[dominant] {
				dominant = m
			}
		}
	}
	return SentimentHistory{Dominant: dominant, Distribution: dist}
}

func riskProfile(anomalyCount int, hasGoals bool, stressedTurns int) string {
	switch {
	case anomalyCount >= 3 || stressedTurns >= 2:
		return RiskConservative
	case hasGoals && anomalyCount <= 1:
		return RiskBalanced
	default:
		return RiskModerate
	}
}

func citations(hits []stats.SemanticHit, limit int) []domain.Citation {
	if limit <= 0 {
		limit = 4
	}
	out := []domain.Citation{}
	for i, h := range hits {
		if i == limit {
			break
		}
		snippet := strings.TrimSpace(strings.ReplaceAll(h.Text, "\n", " "))
		if r := []rune(snippet); len(r) > maxSnippetLen {
			snippet = string(r[:maxSnippetLen])
		}
		source := h.Source
		if source == "" {
			source = "context"
		}
		out = append(out, domain.Citation{
			Source:  source,
			Snippet: snippet,
			Score:   stats.Round(h.Score, citationPlaces),
		})
	}
	return out
}
