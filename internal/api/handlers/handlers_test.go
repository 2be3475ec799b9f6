package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/assistant"
	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/jobs"
	"github.com/dvloznov/finance-assistant/internal/jobs/inmemory"
	"github.com/dvloznov/finance-assistant/internal/session"
	"github.com/dvloznov/finance-assistant/internal/stats"
)

type mockAssistantService struct {
	StartSessionFunc    func(ctx context.Context, userID, language, existing string) (*session.StartResult, error)
	ChatFunc            func(ctx context.Context, req session.ChatRequest) (*session.ChatResult, error)
	SubmitFeedbackFunc  func(ctx context.Context, req session.FeedbackRequest) (*session.FeedbackResult, error)
	HistoryFunc         func(ctx context.Context, userID, sessionID string, limit int) ([]domain.Message, error)
	UpsertMemoryFunc    func(ctx context.Context, userID, text string, tags []string, source string) (*domain.MemoryEntry, error)
	UpsertKnowledgeFunc func(ctx context.Context, title, text, source string, tags []string) (*domain.KnowledgeDoc, error)
}

func (m *mockAssistantService) StartSession(ctx context.Context, userID, language, existing string) (*session.StartResult, error) {
	return m.StartSessionFunc(ctx, userID, language, existing)
}

func (m *mockAssistantService) Chat(ctx context.Context, req session.ChatRequest) (*session.ChatResult, error) {
	return m.ChatFunc(ctx, req)
}

func (m *mockAssistantService) SubmitFeedback(ctx context.Context, req session.FeedbackRequest) (*session.FeedbackResult, error) {
	return m.SubmitFeedbackFunc(ctx, req)
}

func (m *mockAssistantService) History(ctx context.Context, userID, sessionID string, limit int) ([]domain.Message, error) {
	return m.HistoryFunc(ctx, userID, sessionID, limit)
}

func (m *mockAssistantService) UpsertMemory(ctx context.Context, userID, text string, tags []string, source string) (*domain.MemoryEntry, error) {
	return m.UpsertMemoryFunc(ctx, userID, text, tags, source)
}

func (m *mockAssistantService) UpsertKnowledge(ctx context.Context, title, text, source string, tags []string) (*domain.KnowledgeDoc, error) {
	return m.UpsertKnowledgeFunc(ctx, title, text, source, tags)
}

type mockSummarizer struct {
	now                    time.Time
	TransactionSummaryFunc func(ctx context.Context, userID string, start, end time.Time, limit int) (*stats.TransactionSummary, error)
}

func (m *mockSummarizer) Now() time.Time { return m.now }

func (m *mockSummarizer) TransactionSummary(ctx context.Context, userID string, start, end time.Time, limit int) (*stats.TransactionSummary, error) {
	return m.TransactionSummaryFunc(ctx, userID, start, end, limit)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{assistant.ErrEmptyMessage, http.StatusBadRequest},
		{fmt.Errorf("Chat: %w", assistant.ErrMissingUser), http.StatusBadRequest},
		{fmt.Errorf("RunTurn: %w", assistant.ErrUnknownStage), http.StatusBadRequest},
		{session.ErrInvalidFeedback, http.StatusBadRequest},
		{session.ErrEmptyText, http.StatusBadRequest},
		{fmt.Errorf("TransactionSummary: %w", stats.ErrInvalidRange), http.StatusBadRequest},
		{fmt.Errorf("SubmitFeedback: %w", session.ErrNotFound), http.StatusNotFound},
		{jobs.ErrJobNotFound, http.StatusNotFound},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := StatusFor(tt.err); got != tt.want {
				t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestAssistantHandler_Chat(t *testing.T) {
	var got session.ChatRequest
	svc := &mockAssistantService{
		ChatFunc: func(ctx context.Context, req session.ChatRequest) (*session.ChatResult, error) {
			got = req
			return &session.ChatResult{SessionID: "s1", Response: "hello", Trace: []string{"synthesizer"}, Citations: []domain.Citation{}}, nil
		},
	}
	h := NewAssistantHandler(svc, assistant.DefaultRegistry(), zerolog.Nop())

	body := `{"user_id":"u1","message":"hi","session_id":"s1","language":"Hindi","stages":["budget","synthesizer"]}`
	rec := httptest.NewRecorder()
	h.Chat(rec, httptest.NewRequest(http.MethodPost, "/api/assistant/chat", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got.UserID != "u1" || got.SessionID != "s1" || got.Language != "Hindi" || len(got.Stages) != 2 {
		t.Errorf("Chat() request = %+v", got)
	}
	out := decode(t, rec)
	if out["session_id"] != "s1" || out["response"] != "hello" {
		t.Errorf("response = %v", out)
	}
}

func TestAssistantHandler_ChatErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		chatErr    error
		wantStatus int
		wantCalled bool
	}{
		{"bad json", `{`, nil, http.StatusBadRequest, false},
		{"empty message", `{"user_id":"u1","message":"  "}`, nil, http.StatusBadRequest, false},
		{"unknown stage", `{"user_id":"u1","message":"hi","stages":["astrology"]}`, nil, http.StatusBadRequest, false},
		{"missing user", `{"message":"hi"}`, assistant.ErrMissingUser, http.StatusBadRequest, true},
		{"store failure", `{"user_id":"u1","message":"hi"}`, errors.New("database is locked"), http.StatusInternalServerError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &mockAssistantService{
				ChatFunc: func(ctx context.Context, req session.ChatRequest) (*session.ChatResult, error) {
					called = true
					return nil, tt.chatErr
				},
			}
			h := NewAssistantHandler(svc, assistant.DefaultRegistry(), zerolog.Nop())
			rec := httptest.NewRecorder()
			h.Chat(rec, httptest.NewRequest(http.MethodPost, "/api/assistant/chat", strings.NewReader(tt.body)))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if called != tt.wantCalled {
				t.Errorf("service called = %v, want %v", called, tt.wantCalled)
			}
			if rec.Code == http.StatusInternalServerError && strings.Contains(rec.Body.String(), "locked") {
				t.Error("internal error details leaked to the client")
			}
		})
	}
}

func TestAssistantHandler_StartSessionAndFeedback(t *testing.T) {
	svc := &mockAssistantService{
		StartSessionFunc: func(ctx context.Context, userID, language, existing string) (*session.StartResult, error) {
			return &session.StartResult{Session: &domain.Session{ID: "s9", Language: "English"}, Reused: existing != ""}, nil
		},
		SubmitFeedbackFunc: func(ctx context.Context, req session.FeedbackRequest) (*session.FeedbackResult, error) {
			if req.MessageID == "missing" {
				return nil, session.ErrNotFound
			}
			return &session.FeedbackResult{Status: "recorded", StylePreference: req.PreferredStyle}, nil
		},
	}
	h := NewAssistantHandler(svc, nil, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.StartSession(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"user_id":"u1","existing_session_id":"s9"}`)))
	out := decode(t, rec)
	if rec.Code != http.StatusOK || out["session_id"] != "s9" || out["reused"] != true || out["language"] != "English" {
		t.Errorf("StartSession() = %d %v", rec.Code, out)
	}

	rec = httptest.NewRecorder()
	h.Feedback(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"user_id":"u1","value":"up","preferred_style":"concise"}`)))
	out = decode(t, rec)
	if rec.Code != http.StatusOK || out["updated_style_preference"] != "concise" {
		t.Errorf("Feedback() = %d %v", rec.Code, out)
	}

	rec = httptest.NewRecorder()
	h.Feedback(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"user_id":"u1","value":"up","message_id":"missing"}`)))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Feedback() for missing message status = %d, want 404", rec.Code)
	}
}

func TestAssistantHandler_History(t *testing.T) {
	var gotLimit int
	svc := &mockAssistantService{
		HistoryFunc: func(ctx context.Context, userID, sessionID string, limit int) ([]domain.Message, error) {
			gotLimit = limit
			return []domain.Message{{ID: "m1", Role: domain.RoleUser, Content: "hi"}}, nil
		},
	}
	h := NewAssistantHandler(svc, nil, zerolog.Nop())

	tests := []struct {
		query      string
		wantStatus int
		wantLimit  int
	}{
		{"user_id=u1", http.StatusOK, 0},
		{"user_id=u1&limit=10", http.StatusOK, 10},
		{"user_id=u1&limit=0", http.StatusBadRequest, -1},
		{"user_id=u1&limit=301", http.StatusBadRequest, -1},
		{"user_id=u1&limit=abc", http.StatusBadRequest, -1},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			gotLimit = -1
			rec := httptest.NewRecorder()
			h.History(rec, httptest.NewRequest(http.MethodGet, "/api/assistant/history?"+tt.query, nil))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if gotLimit != tt.wantLimit {
				t.Errorf("limit passed = %d, want %d", gotLimit, tt.wantLimit)
			}
		})
	}
}

func TestAssistantHandler_Upserts(t *testing.T) {
	var memorySource, knowledgeSource string
	svc := &mockAssistantService{
		UpsertMemoryFunc: func(ctx context.Context, userID, text string, tags []string, source string) (*domain.MemoryEntry, error) {
			memorySource = source
			if strings.TrimSpace(text) == "" {
				return nil, session.ErrEmptyText
			}
			return &domain.MemoryEntry{ID: "mem1", UserID: userID, Text: text, Source: source}, nil
		},
		UpsertKnowledgeFunc: func(ctx context.Context, title, text, source string, tags []string) (*domain.KnowledgeDoc, error) {
			knowledgeSource = source
			return &domain.KnowledgeDoc{ID: "k1", Title: title, Text: text, Source: source}, nil
		},
	}
	h := NewAssistantHandler(svc, nil, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.UpsertMemory(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"user_id":"u1","text":"likes tea"}`)))
	if rec.Code != http.StatusOK || memorySource != "user_memory" {
		t.Errorf("UpsertMemory() = %d source %q", rec.Code, memorySource)
	}

	rec = httptest.NewRecorder()
	h.UpsertMemory(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"user_id":"u1","text":" "}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("UpsertMemory() blank status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.UpsertKnowledge(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"Budgeting","text":"50/30/20"}`)))
	if rec.Code != http.StatusOK || knowledgeSource != "knowledge_base" {
		t.Errorf("UpsertKnowledge() = %d source %q", rec.Code, knowledgeSource)
	}

	rec = httptest.NewRecorder()
	h.UpsertKnowledge(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"","text":"x"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("UpsertKnowledge() without title status = %d, want 400", rec.Code)
	}
}

func TestTransactionsHandler_Summary(t *testing.T) {
	now := time.Date(2025, time.June, 15, 10, 0, 0, 0, time.UTC)
	var gotStart, gotEnd time.Time
	sum := &mockSummarizer{
		now: now,
		TransactionSummaryFunc: func(ctx context.Context, userID string, start, end time.Time, limit int) (*stats.TransactionSummary, error) {
			gotStart, gotEnd = start, end
			if !start.Before(end) {
				return nil, fmt.Errorf("TransactionSummary: %w", stats.ErrInvalidRange)
			}
			return &stats.TransactionSummary{TransactionCount: 3}, nil
		},
	}
	h := NewTransactionsHandler(sum, zerolog.Nop())

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantStart  time.Time
		wantEnd    time.Time
	}{
		{"explicit dates", "user_id=u1&start=2025-06-01&end=2025-06-10", http.StatusOK,
			time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, time.June, 11, 0, 0, 0, 0, time.UTC)},
		{"phrase", "user_id=u1&q=yesterday", http.StatusOK,
			time.Date(2025, time.June, 14, 0, 0, 0, 0, time.UTC), time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)},
		{"default window", "user_id=u1", http.StatusOK,
			time.Date(2025, time.May, 2, 0, 0, 0, 0, time.UTC), time.Date(2025, time.June, 16, 0, 0, 0, 0, time.UTC)},
		{"reversed dates", "user_id=u1&start=2025-06-10&end=2025-06-01", http.StatusBadRequest, time.Time{}, time.Time{}},
		{"bad date", "user_id=u1&start=junk&end=2025-06-01", http.StatusBadRequest, time.Time{}, time.Time{}},
		{"half range", "user_id=u1&start=2025-06-01", http.StatusBadRequest, time.Time{}, time.Time{}},
		{"missing user", "start=2025-06-01&end=2025-06-10", http.StatusBadRequest, time.Time{}, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotStart, gotEnd = time.Time{}, time.Time{}
			rec := httptest.NewRecorder()
			h.Summary(rec, httptest.NewRequest(http.MethodGet, "/api/transactions/summary?"+tt.query, nil))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if !gotStart.Equal(tt.wantStart) || !gotEnd.Equal(tt.wantEnd) {
				t.Errorf("range = [%v, %v), want [%v, %v)", gotStart, gotEnd, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestKnowledgeAndJobsHandlers(t *testing.T) {
	store := inmemory.NewStore()
	queue := inmemory.NewQueue(4, store)
	defer queue.Close()

	kh := NewKnowledgeHandler(queue, zerolog.Nop())
	jh := NewJobsHandler(store, zerolog.Nop())

	rec := httptest.NewRecorder()
	kh.EnqueueSync(rec, httptest.NewRequest(http.MethodPost, "/api/knowledge/sync", strings.NewReader(`{"source":"ftp"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown source status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	kh.EnqueueSync(rec, httptest.NewRequest(http.MethodPost, "/api/knowledge/sync", strings.NewReader(`{"source":" Builtin "}`)))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("EnqueueSync() status = %d, body %s", rec.Code, rec.Body.String())
	}
	out := decode(t, rec)
	jobID, _ := out["job_id"].(string)
	if jobID == "" || out["source"] != "builtin" || out["status"] != string(jobs.JobStatusPending) {
		t.Errorf("EnqueueSync() = %v", out)
	}

	rec = httptest.NewRecorder()
	jh.GetJob(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/"+jobID, nil), jobID)
	if rec.Code != http.StatusOK {
		t.Errorf("GetJob() status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	jh.GetJob(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil), "nope")
	if rec.Code != http.StatusNotFound {
		t.Errorf("GetJob(unknown) status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	jh.ListJobs(rec, httptest.NewRequest(http.MethodGet, "/api/jobs?source=builtin", nil))
	out = decode(t, rec)
	if rec.Code != http.StatusOK || out["count"] != float64(1) {
		t.Errorf("ListJobs() = %d %v", rec.Code, out)
	}
}
