// Package session owns the conversation lifecycle around the reasoning
// pipeline: session reuse, transcript persistence, feedback-driven style
// learning and the append-only memory and knowledge writes.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/assistant"
	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/events"
	"github.com/dvloznov/finance-assistant/internal/knowledge"
	"github.com/dvloznov/finance-assistant/internal/logger"
)

var (
	// ErrNotFound is returned when a referenced message does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidFeedback is returned for a feedback value other than up or down.
	ErrInvalidFeedback = errors.New("feedback value must be up or down")
	// ErrEmptyText is returned when a memory or knowledge write has no text.
	ErrEmptyText = errors.New("text is empty")
)

// Feedback values.
const (
	FeedbackUp   = "up"
	FeedbackDown = "down"
)

const (
	// DefaultReuseWindow is how long an idle session stays eligible for reuse.
	DefaultReuseWindow = 20 * time.Minute
	// DefaultHistoryLimit caps History when no limit is given.
	DefaultHistoryLimit = 80
	// DefaultSource tags messages that arrive without a source.
	DefaultSource = "text"

	maxFeedbackText = 500
	maxFeedbackNote = 220
	feedbackSource  = "user_feedback"
)

// Store is the persistence the service needs.
type Store interface {
	CreateSession(ctx context.Context, userID, language string) (*domain.Session, error)
	GetSession(ctx context.Context, userID, sessionID string) (*domain.Session, error)
	LatestActiveSession(ctx context.Context, userID string, since time.Time) (*domain.Session, error)
	TouchSession(ctx context.Context, sessionID string, at time.Time, delta int) error

	AppendMessage(ctx context.Context, msg *domain.Message) (*domain.Message, error)
	GetMessage(ctx context.Context, userID, messageID string) (*domain.Message, error)
	LatestAssistantMessage(ctx context.Context, userID, sessionID string) (*domain.Message, error)
	ListMessages(ctx context.Context, userID, sessionID string, limit int) ([]domain.Message, error)

	InsertMemory(ctx context.Context, m domain.MemoryEntry) (*domain.MemoryEntry, error)
	AppendKnowledge(ctx context.Context, doc domain.KnowledgeDoc) (*domain.KnowledgeDoc, error)

	ReadStylePreferences(ctx context.Context, userID string) (*domain.StylePreferences, error)
	SaveStylePreferences(ctx context.Context, p domain.StylePreferences) error
	InsertFeedback(ctx context.Context, f domain.Feedback) (*domain.Feedback, error)
}

// TurnRunner answers one chat message.
type TurnRunner interface {
	RunTurn(ctx context.Context, req assistant.TurnRequest) (*assistant.TurnResult, error)
}

// Config holds the service's tunables.
type Config struct {
	ReuseWindow  time.Duration
	HistoryLimit int
}

// Service is safe for concurrent use. Chats on the same (user, session) run
// one at a time.
type Service struct {
	store  Store
	turns  TurnRunner
	events events.Publisher
	locks  *keyedMutex
	cfg    Config
	now    func() time.Time
	log    zerolog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPublisher sets the turn event publisher. The default publishes nothing.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

// NewService wires a Service. Zero config fields take defaults.
func NewService(store Store, turns TurnRunner, cfg Config, log zerolog.Logger, opts ...Option) *Service {
	if cfg.ReuseWindow <= 0 {
		cfg.ReuseWindow = DefaultReuseWindow
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	s := &Service{
		store:  store,
		turns:  turns,
		events: events.Noop{},
		locks:  newKeyedMutex(),
		cfg:    cfg,
		now:    time.Now,
		log:    logger.ForComponent(log, "session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartResult is the outcome of StartSession.
type StartResult struct {
	Session *domain.Session `json:"session"`
	Reused  bool            `json:"reused"`
}

// StartSession reuses the given session, or else the user's latest one, when
// it is active and was used within the reuse window. Otherwise it opens a new
// session.
func (s *Service) StartSession(ctx context.Context, userID, language, existingSessionID string) (*StartResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, assistant.ErrMissingUser
	}
	now := s.now()

	if id := strings.TrimSpace(existingSessionID); id != "" {
		sess, err := s.store.GetSession(ctx, userID, id)
		if err != nil {
			return nil, fmt.Errorf("StartSession: loading session: %w", err)
		}
		if sess != nil && sess.Status == domain.SessionActive && now.Sub(sess.LastActivityAt) <= s.cfg.ReuseWindow {
			return &StartResult{Session: sess, Reused: true}, nil
		}
	}

	latest, err := s.store.LatestActiveSession(ctx, userID, now.Add(-s.cfg.ReuseWindow))
	if err != nil {
		return nil, fmt.Errorf("StartSession: loading latest session: %w", err)
	}
	if latest != nil {
		return &StartResult{Session: latest, Reused: true}, nil
	}

	language = strings.TrimSpace(language)
	if language == "" {
		language = assistant.DefaultLanguage
	}
	sess, err := s.store.CreateSession(ctx, userID, language)
	if err != nil {
		return nil, fmt.Errorf("StartSession: creating session: %w", err)
	}
	s.log.Info().Str("user_id", userID).Str("session_id", sess.ID).Msg("session started")
	return &StartResult{Session: sess, Reused: false}, nil
}

// ChatRequest is one user message.
type ChatRequest struct {
	UserID    string
	SessionID string
	Message   string
	Language  string
	Source    string
	Stages    []string
}

// ChatResult is what the user sees for one turn.
type ChatResult struct {
	SessionID        string            `json:"session_id"`
	MessageID        string            `json:"message_id"`
	Response         string            `json:"response"`
	Trace            []string          `json:"agent_trace"`
	Citations        []domain.Citation `json:"citations"`
	NeedsHumanReview bool              `json:"needs_human_review"`
	Clarification    bool              `json:"needs_clarification"`
}

// Chat persists the user message, runs the turn, persists the answer and
// touches the session.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, assistant.ErrMissingUser
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, assistant.ErrEmptyMessage
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = DefaultSource
	}

	// Resolution is serialized on the requested key so two first messages
	// do not open two sessions.
	unlock := s.locks.Lock(lockKey(userID, req.SessionID))
	started, err := s.StartSession(ctx, userID, req.Language, req.SessionID)
	unlock()
	if err != nil {
		return nil, fmt.Errorf("Chat: %w", err)
	}
	sess := started.Session

	unlock = s.locks.Lock(lockKey(userID, sess.ID))
	defer unlock()

	log := logger.ForTurn(s.log, userID, sess.ID)
	language := sess.Language
	if language == "" {
		language = assistant.DefaultLanguage
	}

	_, err = s.store.AppendMessage(ctx, &domain.Message{
		UserID:    userID,
		SessionID: sess.ID,
		Role:      domain.RoleUser,
		Content:   message,
		Metadata: domain.MessageMetadata{
			IdempotencyKey: uuid.NewString(),
			Source:         source,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("Chat: saving user message: %w", err)
	}

	out, err := s.turns.RunTurn(ctx, assistant.TurnRequest{
		UserID:    userID,
		SessionID: sess.ID,
		Message:   message,
		Language:  language,
		Stages:    req.Stages,
	})
	if err != nil {
		return nil, fmt.Errorf("Chat: running turn: %w", err)
	}

	reply, err := s.store.AppendMessage(ctx, &domain.Message{
		UserID:    userID,
		SessionID: sess.ID,
		Role:      domain.RoleAssistant,
		Content:   strings.TrimSpace(out.Response),
		Metadata: domain.MessageMetadata{
			Source:           source,
			AgentTrace:       out.Trace,
			Citations:        out.Citations,
			ResponseStyle:    out.ResponseStyle,
			DetectedUserTone: out.Tone,
			QueryFocus:       out.Focus,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("Chat: saving assistant message: %w", err)
	}

	if err := s.store.TouchSession(ctx, sess.ID, s.now(), 2); err != nil {
		return nil, fmt.Errorf("Chat: touching session: %w", err)
	}

	s.publish(ctx, log, userID, sess.ID, out)

	return &ChatResult{
		SessionID:        sess.ID,
		MessageID:        reply.ID,
		Response:         reply.Content,
		Trace:            out.Trace,
		Citations:        out.Citations,
		NeedsHumanReview: out.NeedsHumanReview,
		Clarification:    out.Clarification,
	}, nil
}

func (s *Service) publish(ctx context.Context, log zerolog.Logger, userID, sessionID string, out *assistant.TurnResult) {
	err := s.events.PublishTurnCompleted(ctx, events.TurnCompleted{
		Type:             events.TypeTurnCompleted,
		EventID:          uuid.NewString(),
		UserID:           userID,
		SessionID:        sessionID,
		Intent:           string(out.Intent),
		Trace:            out.Trace,
		CitationCount:    len(out.Citations),
		NeedsHumanReview: out.NeedsHumanReview,
		Clarification:    out.Clarification,
		OccurredAt:       s.now().UTC(),
	})
	if err != nil {
		log.Warn().Err(err).Msg("publishing turn event failed")
	}
}

func lockKey(userID, sessionID string) string {
	return userID + "\x00" + strings.TrimSpace(sessionID)
}

// FeedbackRequest rates an assistant message.
type FeedbackRequest struct {
	UserID         string
	Value          string
	SessionID      string
	MessageID      string
	Text           string
	PreferredStyle string
	PreferredTone  string
}

// FeedbackResult reports the updated preferences.
type FeedbackResult struct {
	Status          string             `json:"status"`
	UserID          string             `json:"user_id"`
	FeedbackID      string             `json:"feedback_id"`
	StylePreference string             `json:"updated_style_preference"`
	StyleScores     domain.StyleScores `json:"style_scores"`
	TonePreference  string             `json:"updated_tone_preference"`
}

// SubmitFeedback records a rating and moves the user's style scores.
func (s *Service) SubmitFeedback(ctx context.Context, req FeedbackRequest) (*FeedbackResult, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, assistant.ErrMissingUser
	}
	value := strings.ToLower(strings.TrimSpace(req.Value))
	if value != FeedbackUp && value != FeedbackDown {
		return nil, ErrInvalidFeedback
	}
	preferredStyle := strings.TrimSpace(req.PreferredStyle)
	preferredTone := strings.TrimSpace(req.PreferredTone)

	target, err := s.feedbackTarget(ctx, userID, req.SessionID, req.MessageID)
	if err != nil {
		return nil, fmt.Errorf("SubmitFeedback: %w", err)
	}

	applied := domain.StyleBalanced
	if target != nil && domain.IsKnownStyle(target.Metadata.ResponseStyle) {
		applied = target.Metadata.ResponseStyle
	}

	prefs, err := s.store.ReadStylePreferences(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("SubmitFeedback: reading preferences: %w", err)
	}
	scores := domain.StyleScores{}
	storedTone := ""
	for _, style := range domain.StyleOrder {
		scores[style] = 0
	}
	if prefs != nil {
		for _, style := range domain.StyleOrder {
			scores[style] = prefs.Scores[style]
		}
		storedTone = strings.TrimSpace(prefs.TonePreference)
	}

	ApplyFeedback(scores, value, applied, preferredStyle)
	chosen := scores.Best()
	tone := preferredTone
	if tone == "" {
		tone = storedTone
	}

	sessionID := strings.TrimSpace(req.SessionID)
	messageID := strings.TrimSpace(req.MessageID)
	if target != nil {
		if sessionID == "" {
			sessionID = target.SessionID
		}
		if messageID == "" {
			messageID = target.ID
		}
	}

	fb, err := s.store.InsertFeedback(ctx, domain.Feedback{
		UserID:         userID,
		SessionID:      sessionID,
		MessageID:      messageID,
		Value:          value,
		AppliedStyle:   applied,
		PreferredStyle: preferredStyle,
		PreferredTone:  preferredTone,
		FeedbackText:   truncate(strings.TrimSpace(req.Text), maxFeedbackText),
		CreatedAt:      s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("SubmitFeedback: saving feedback: %w", err)
	}

	err = s.store.SaveStylePreferences(ctx, domain.StylePreferences{
		UserID:          userID,
		StylePreference: chosen,
		TonePreference:  tone,
		Scores:          scores,
		UpdatedAt:       s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("SubmitFeedback: saving preferences: %w", err)
	}

	memory := FeedbackMemory(value, applied, preferredStyle, req.Text)
	if _, err := s.UpsertMemory(ctx, userID, memory, []string{"feedback", "style", value}, feedbackSource); err != nil {
		return nil, fmt.Errorf("SubmitFeedback: %w", err)
	}

	s.log.Info().
		Str("user_id", userID).
		Str("value", value).
		Str("applied_style", applied).
		Str("style_preference", chosen).
		Msg("feedback recorded")

	return &FeedbackResult{
		Status:          "recorded",
		UserID:          userID,
		FeedbackID:      fb.ID,
		StylePreference: chosen,
		StyleScores:     scores,
		TonePreference:  tone,
	}, nil
}

// feedbackTarget finds the rated assistant message: by id when given, else
// the newest in the session. A missing id is an error, a session without
// assistant messages is not.
func (s *Service) feedbackTarget(ctx context.Context, userID, sessionID, messageID string) (*domain.Message, error) {
	if id := strings.TrimSpace(messageID); id != "" {
		msg, err := s.store.GetMessage(ctx, userID, id)
		if err != nil {
			return nil, fmt.Errorf("loading message: %w", err)
		}
		if msg == nil || msg.Role != domain.RoleAssistant {
			return nil, fmt.Errorf("message %s: %w", id, ErrNotFound)
		}
		return msg, nil
	}
	if id := strings.TrimSpace(sessionID); id != "" {
		msg, err := s.store.LatestAssistantMessage(ctx, userID, id)
		if err != nil {
			return nil, fmt.Errorf("loading latest reply: %w", err)
		}
		return msg, nil
	}
	return nil, nil
}

// ApplyFeedback moves scores for one rating. An up vote gives the preferred
// style 2 points when it is valid, else the applied style 1 point. A down
// vote takes 2 from the applied style and gives a valid preferred style 1.
func ApplyFeedback(scores domain.StyleScores, value, applied, preferred string) {
	validPreferred := domain.IsKnownStyle(preferred)
	switch value {
	case FeedbackUp:
		if validPreferred {
			scores[preferred] += 2
		} else {
			scores[applied]++
		}
	case FeedbackDown:
		scores[applied] -= 2
		if validPreferred {
			scores[preferred]++
		}
	}
}

// FeedbackMemory renders the memory line stored for a rating.
func FeedbackMemory(value, applied, preferred, note string) string {
	if preferred == "" {
		preferred = "none"
	}
	note = strings.TrimSpace(note)
	if note == "" {
		note = "none"
	}
	return fmt.Sprintf("Feedback=%s. Applied style=%s. Preferred style=%s. Note=%s",
		value, applied, preferred, truncate(note, maxFeedbackNote))
}

// History returns the newest messages of the user, or of one session, oldest
// first.
func (s *Service) History(ctx context.Context, userID, sessionID string, limit int) ([]domain.Message, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, assistant.ErrMissingUser
	}
	if limit <= 0 {
		limit = s.cfg.HistoryLimit
	}
	msgs, err := s.store.ListMessages(ctx, userID, strings.TrimSpace(sessionID), limit)
	if err != nil {
		return nil, fmt.Errorf("History: %w", err)
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return msgs, nil
}

// UpsertMemory appends a memory entry for the user.
func (s *Service) UpsertMemory(ctx context.Context, userID, text string, tags []string, source string) (*domain.MemoryEntry, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, assistant.ErrMissingUser
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	m, err := s.store.InsertMemory(ctx, domain.MemoryEntry{
		UserID: userID,
		Text:   text,
		Tags:   knowledge.NormalizeTags(tags),
		Source: strings.TrimSpace(source),
	})
	if err != nil {
		return nil, fmt.Errorf("UpsertMemory: %w", err)
	}
	return m, nil
}

// UpsertKnowledge appends a shared knowledge document.
func (s *Service) UpsertKnowledge(ctx context.Context, title, text, source string, tags []string) (*domain.KnowledgeDoc, error) {
	doc := knowledge.Normalize(domain.KnowledgeDoc{
		Title:  title,
		Text:   text,
		Source: strings.TrimSpace(source),
		Tags:   tags,
	})
	if doc.Text == "" {
		return nil, ErrEmptyText
	}
	stored, err := s.store.AppendKnowledge(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("UpsertKnowledge: %w", err)
	}
	return stored, nil
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}
