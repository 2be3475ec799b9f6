// Package events publishes and consumes assistant turn events over Kafka.
package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// TypeTurnCompleted names the event emitted after every chat turn.
const TypeTurnCompleted = "turn.completed"

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "assistant.turns"

// TurnCompleted describes one finished chat turn.
type TurnCompleted struct {
	Type             string    `json:"type"`
	EventID          string    `json:"event_id"`
	UserID           string    `json:"user_id"`
	SessionID        string    `json:"session_id"`
	Intent           string    `json:"intent"`
	Trace            []string  `json:"trace"`
	CitationCount    int       `json:"citation_count"`
	NeedsHumanReview bool      `json:"needs_human_review"`
	Clarification    bool      `json:"clarification"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// Encode returns the message key (the user id, so one user's turns stay
// ordered on a partition) and the JSON value.
func (e TurnCompleted) Encode() (key, value []byte, err error) {
	if e.Type == "" {
		e.Type = TypeTurnCompleted
	}
	value, err = json.Marshal(e)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding %s event: %w", e.Type, err)
	}
	return []byte(e.UserID), value, nil
}

// DecodeTurnCompleted parses a message value.
func DecodeTurnCompleted(value []byte) (TurnCompleted, error) {
	var e TurnCompleted
	if err := json.Unmarshal(value, &e); err != nil {
		return TurnCompleted{}, fmt.Errorf("decoding turn event: %w", err)
	}
	if e.Type != TypeTurnCompleted {
		return TurnCompleted{}, fmt.Errorf("decoding turn event: unexpected type %q", e.Type)
	}
	return e, nil
}
