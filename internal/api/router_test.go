package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/api/handlers"
	"github.com/dvloznov/finance-assistant/internal/api/middleware"
	"github.com/dvloznov/finance-assistant/internal/assistant"
	"github.com/dvloznov/finance-assistant/internal/jobs/inmemory"
	"github.com/dvloznov/finance-assistant/internal/llm"
	"github.com/dvloznov/finance-assistant/internal/session"
	"github.com/dvloznov/finance-assistant/internal/stats"
	"github.com/dvloznov/finance-assistant/internal/store/sqlite"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	now := func() time.Time { return time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC) }

	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "assistant.db"))
	if err != nil {
		t.Fatalf("sqlite.Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	engine := stats.NewEngine(store, store, store, stats.WithClock(now))
	orch := assistant.NewOrchestrator(assistant.Dependencies{
		Stats:     engine,
		Profiles:  store,
		Styles:    store,
		Dialogue:  store,
		Memory:    store,
		Completer: llm.Unavailable{},
		Now:       now,
	}, assistant.DefaultConfig(), zerolog.Nop())
	svc := session.NewService(store, orch, session.Config{}, zerolog.Nop())

	jobStore := inmemory.NewStore()
	queue := inmemory.NewQueue(4, jobStore)
	t.Cleanup(func() { queue.Close() })

	return NewRouter(Handlers{
		Assistant:    handlers.NewAssistantHandler(svc, orch.Registry(), zerolog.Nop()),
		Transactions: handlers.NewTransactionsHandler(engine, zerolog.Nop()),
		Knowledge:    handlers.NewKnowledgeHandler(queue, zerolog.Nop()),
		Jobs:         handlers.NewJobsHandler(jobStore, zerolog.Nop()),
		Now:          now,
	}, "*", zerolog.Nop())
}

func TestRouter(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK, `"status":"healthy"`},
		{"wrong method", http.MethodGet, "/api/assistant/chat", "", http.StatusMethodNotAllowed, "Method not allowed"},
		{"chat", http.MethodPost, "/api/assistant/chat", `{"user_id":"u1","message":"how much did I spend last week?"}`, http.StatusOK, `"session_id"`},
		{"chat unknown stage", http.MethodPost, "/api/assistant/chat", `{"user_id":"u1","message":"hi","stages":["tarot"]}`, http.StatusBadRequest, "unknown stage"},
		{"history", http.MethodGet, "/api/assistant/history?user_id=u1", "", http.StatusOK, `"count"`},
		{"summary", http.MethodGet, "/api/transactions/summary?user_id=u1&q=this+month", "", http.StatusOK, `"transaction_count":0`},
		{"knowledge sync", http.MethodPost, "/api/knowledge/sync", `{"source":"builtin"}`, http.StatusAccepted, `"job_id"`},
		{"unknown job", http.MethodGet, "/api/jobs/nope", "", http.StatusNotFound, "Job not found"},
		{"preflight", http.MethodOptions, "/api/assistant/chat", "", http.StatusNoContent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantBody != "" && !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %s, want it to contain %s", rec.Body.String(), tt.wantBody)
			}
			if rec.Header().Get(middleware.RequestIDHeader) == "" {
				t.Error("response lacks a request id")
			}
		})
	}
}
