package domain

import "time"

// Goal is a savings or habit goal tracked for a user.
type Goal struct {
	Goal          string  `json:"goal"`
	Category      string  `json:"category"`
	TargetAmount  float64 `json:"target_amount"`
	CurrentAmount float64 `json:"current_amount"`
	Progress      float64 `json:"progress"`
	Status        string  `json:"status"`
}

// EffectiveProgress returns the stored progress, or derives it from the
// current and target amounts when none was recorded.
func (g Goal) EffectiveProgress() float64 {
	if g.TargetAmount > 0 && g.Progress <= 0 {
		p := g.CurrentAmount / g.TargetAmount * 100
		if p > 100 {
			return 100
		}
		return p
	}
	return g.Progress
}

// UserProfile is the read-only profile view consumed by the assistant.
type UserProfile struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Goals  []Goal `json:"goals"`
}

// Response styles a user can prefer.
const (
	StyleConcise       = "concise"
	StyleDetailed      = "detailed"
	StyleExampleDriven = "example_driven"
	StyleBalanced      = "balanced"
)

// StyleOrder is the fixed tie-break order for style scores.
var StyleOrder = []string{StyleConcise, StyleDetailed, StyleExampleDriven, StyleBalanced}

// IsKnownStyle reports whether s is one of the supported response styles.
func IsKnownStyle(s string) bool {
	for _, v := range StyleOrder {
		if v == s {
			return true
		}
	}
	return false
}

// StyleScores is the running tally of feedback per response style.
type StyleScores map[string]int

// Best returns the style with the highest score. Ties resolve in StyleOrder.
func (s StyleScores) Best() string {
	best := StyleOrder[0]
	for _, style := range StyleOrder[1:] {
		if s[style] > s[best] {
			best = style
		}
	}
	return best
}

// StylePreferences is the mutable per-user response style state.
type StylePreferences struct {
	UserID          string      `json:"user_id"`
	StylePreference string      `json:"style_preference"`
	TonePreference  string      `json:"tone_preference"`
	Scores          StyleScores `json:"style_scores"`
	UpdatedAt       time.Time   `json:"updated_at"`
}
