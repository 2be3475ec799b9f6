package domain

import "time"

// Session statuses.
const (
	SessionActive = "active"
	SessionClosed = "closed"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Session is one conversation between a user and the assistant.
type Session struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Language       string    `json:"language"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	MessageCount   int       `json:"message_count"`
}

// MessageMetadata carries per-message context persisted with the transcript.
type MessageMetadata struct {
	IdempotencyKey   string     `json:"idempotency_key,omitempty"`
	Source           string     `json:"source,omitempty"`
	AgentTrace       []string   `json:"agent_trace,omitempty"`
	Citations        []Citation `json:"citations,omitempty"`
	ResponseStyle    string     `json:"response_style,omitempty"`
	DetectedUserTone string     `json:"detected_user_tone,omitempty"`
	QueryFocus       []string   `json:"query_focus,omitempty"`
}

// Message is one persisted transcript line.
type Message struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	SessionID string          `json:"session_id"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Metadata  MessageMetadata `json:"metadata"`
	CreatedAt time.Time       `json:"created_at"`
}

// DialogueTurn is the minimal role/content view of a message.
type DialogueTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Feedback is a user's rating of an assistant message.
type Feedback struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	SessionID      string    `json:"session_id"`
	MessageID      string    `json:"message_id"`
	Value          string    `json:"value"`
	AppliedStyle   string    `json:"applied_style"`
	PreferredStyle string    `json:"preferred_style,omitempty"`
	PreferredTone  string    `json:"preferred_tone,omitempty"`
	FeedbackText   string    `json:"feedback_text"`
	CreatedAt      time.Time `json:"created_at"`
}
