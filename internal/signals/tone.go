package signals

import (
	"regexp"
	"strings"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// Tones, in detection priority order.
const (
	ToneUrgent   = "urgent"
	ToneStressed = "stressed"
	ToneCasual   = "casual"
	ToneCurious  = "curious"
	ToneNeutral  = "neutral"
)

var toneRules = []struct {
	tone    string
	pattern *regexp.Regexp
}{
	{ToneUrgent, regexp.MustCompile(`\b(urgent(ly)?|asap|immediately|right now|emergency|hurry|quickly)\b`)},
	{ToneStressed, regexp.MustCompile(`\b(stress(ed|ful)?|worried|worry|anxious|panic(king)?|overwhelmed|scared|afraid|struggling|broke)\b`)},
	{ToneCasual, regexp.MustCompile(`\b(hey|hi|hello|yo|lol|cool|thanks|thx|btw)\b`)},
	{ToneCurious, regexp.MustCompile(`\b(why|how|what|curious|wonder(ing)?|explain)\b|\?`)},
}

// DetectTone returns the first tone whose rule matches, or ToneNeutral.
func DetectTone(message string) string {
	text := strings.ToLower(message)
	for _, rule := range toneRules {
		if rule.pattern.MatchString(text) {
			return rule.tone
		}
	}
	return ToneNeutral
}

var dissatisfactionPhrases = []string{
	"repetitive",
	"repeating yourself",
	"not helpful",
	"unhelpful",
	"useless",
	"same answer",
	"you already said",
	"doesn't help",
	"does not help",
	"not what i asked",
	"too generic",
	"makes no sense",
}

// DetectDissatisfaction reports whether the user is unhappy with earlier answers.
func DetectDissatisfaction(message string) bool {
	text := strings.ToLower(message)
	for _, p := range dissatisfactionPhrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

var styleRules = []struct {
	style   string
	pattern *regexp.Regexp
}{
	{domain.StyleConcise, regexp.MustCompile(`\b(short|brief(ly)?|concise|tl;?dr|in short|one line|quick summary|keep it simple)\b`)},
	{domain.StyleDetailed, regexp.MustCompile(`\b(detailed|in detail|elaborate|deep dive|step by step|thorough|explain more|more detail)\b`)},
	{domain.StyleExampleDriven, regexp.MustCompile(`\b(example|examples|for instance|show me how|sample|illustrate)\b`)},
}

func styleFromText(text string) string {
	text = strings.ToLower(text)
	for _, rule := range styleRules {
		if rule.pattern.MatchString(text) {
			return rule.style
		}
	}
	return ""
}

// PreferredResponseStyle infers the answer style the user is asking for. The
// message wins; otherwise the most recent user turn that states a style is
// used. Without any hint the style is balanced.
func PreferredResponseStyle(message string, dialogue []domain.DialogueTurn) string {
	if s := styleFromText(message); s != "" {
		return s
	}
	for i := len(dialogue) - 1; i >= 0; i-- {
		if dialogue[i].Role != domain.RoleUser {
			continue
		}
		if s := styleFromText(dialogue[i].Content); s != "" {
			return s
		}
	}
	return domain.StyleBalanced
}
