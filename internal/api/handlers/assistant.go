package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/api/middleware"
	"github.com/dvloznov/finance-assistant/internal/assistant"
	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/session"
)

const (
	maxHistoryLimit        = 300
	defaultMemorySource    = "user_memory"
	defaultKnowledgeSource = "knowledge_base"
)

// AssistantService is the conversation API served by AssistantHandler.
type AssistantService interface {
	StartSession(ctx context.Context, userID, language, existingSessionID string) (*session.StartResult, error)
	Chat(ctx context.Context, req session.ChatRequest) (*session.ChatResult, error)
	SubmitFeedback(ctx context.Context, req session.FeedbackRequest) (*session.FeedbackResult, error)
	History(ctx context.Context, userID, sessionID string, limit int) ([]domain.Message, error)
	UpsertMemory(ctx context.Context, userID, text string, tags []string, source string) (*domain.MemoryEntry, error)
	UpsertKnowledge(ctx context.Context, title, text, source string, tags []string) (*domain.KnowledgeDoc, error)
}

// StageParser validates stage override names before a turn is persisted.
type StageParser interface {
	ParseStageNames(raw []string) ([]assistant.StageName, error)
}

// AssistantHandler handles the /api/assistant endpoints.
type AssistantHandler struct {
	svc    AssistantService
	stages StageParser
	log    zerolog.Logger
}

// NewAssistantHandler creates a new assistant handler. stages may be nil, in
// which case overrides are validated by the pipeline itself.
func NewAssistantHandler(svc AssistantService, stages StageParser, log zerolog.Logger) *AssistantHandler {
	return &AssistantHandler{svc: svc, stages: stages, log: log}
}

// StartSession handles POST /api/assistant/session/start
func (h *AssistantHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID            string `json:"user_id"`
		Language          string `json:"language"`
		ExistingSessionID string `json:"existing_session_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.svc.StartSession(r.Context(), req.UserID, req.Language, req.ExistingSessionID)
	if err != nil {
		writeServiceError(w, r, err, "Failed to start session")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": res.Session.ID,
		"reused":     res.Reused,
		"language":   res.Session.Language,
	})
}

// Chat handles POST /api/assistant/chat
func (h *AssistantHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID    string   `json:"user_id"`
		Message   string   `json:"message"`
		SessionID string   `json:"session_id"`
		Language  string   `json:"language"`
		Source    string   `json:"source"`
		Stages    []string `json:"stages"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Message cannot be empty")
		return
	}
	if req.Stages != nil && h.stages != nil {
		if _, err := h.stages.ParseStageNames(req.Stages); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	res, err := h.svc.Chat(r.Context(), session.ChatRequest{
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Message:   req.Message,
		Language:  req.Language,
		Source:    req.Source,
		Stages:    req.Stages,
	})
	if err != nil {
		writeServiceError(w, r, err, "Failed to answer message")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

// Feedback handles POST /api/assistant/feedback
func (h *AssistantHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID         string `json:"user_id"`
		Value          string `json:"value"`
		SessionID      string `json:"session_id"`
		MessageID      string `json:"message_id"`
		FeedbackText   string `json:"feedback_text"`
		PreferredStyle string `json:"preferred_style"`
		PreferredTone  string `json:"preferred_tone"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.svc.SubmitFeedback(r.Context(), session.FeedbackRequest{
		UserID:         req.UserID,
		Value:          req.Value,
		SessionID:      req.SessionID,
		MessageID:      req.MessageID,
		Text:           req.FeedbackText,
		PreferredStyle: req.PreferredStyle,
		PreferredTone:  req.PreferredTone,
	})
	if err != nil {
		writeServiceError(w, r, err, "Failed to record feedback")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

// History handles GET /api/assistant/history
func (h *AssistantHandler) History(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := 0
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			middleware.WriteError(w, http.StatusBadRequest, "limit must be between 1 and 300")
			return
		}
		limit = n
	}

	msgs, err := h.svc.History(r.Context(), query.Get("user_id"), query.Get("session_id"), limit)
	if err != nil {
		writeServiceError(w, r, err, "Failed to load history")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"messages": msgs,
		"count":    len(msgs),
	})
}

// UpsertMemory handles POST /api/assistant/memory/upsert
func (h *AssistantHandler) UpsertMemory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string   `json:"user_id"`
		Text   string   `json:"text"`
		Tags   []string `json:"tags"`
		Source string   `json:"source"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Source) == "" {
		req.Source = defaultMemorySource
	}

	m, err := h.svc.UpsertMemory(r.Context(), req.UserID, req.Text, req.Tags, req.Source)
	if err != nil {
		writeServiceError(w, r, err, "Failed to store memory")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, m)
}

// UpsertKnowledge handles POST /api/assistant/knowledge/upsert
func (h *AssistantHandler) UpsertKnowledge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title  string   `json:"title"`
		Text   string   `json:"text"`
		Source string   `json:"source"`
		Tags   []string `json:"tags"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Title is required")
		return
	}
	if strings.TrimSpace(req.Source) == "" {
		req.Source = defaultKnowledgeSource
	}

	doc, err := h.svc.UpsertKnowledge(r.Context(), req.Title, req.Text, req.Source, req.Tags)
	if err != nil {
		writeServiceError(w, r, err, "Failed to store knowledge")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, doc)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
