// Package api assembles the HTTP surface of the assistant.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/api/handlers"
	"github.com/dvloznov/finance-assistant/internal/api/middleware"
)

// Handlers groups the endpoint handlers served by NewRouter. Nil groups are
// not routed.
type Handlers struct {
	Assistant    *handlers.AssistantHandler
	Transactions *handlers.TransactionsHandler
	Knowledge    *handlers.KnowledgeHandler
	Jobs         *handlers.JobsHandler
	Now          func() time.Time
}

// NewRouter registers every route and wraps the mux in the middleware chain
// Recovery, Logger, RequestID, CORS.
func NewRouter(h Handlers, corsOrigin string, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	if a := h.Assistant; a != nil {
		mux.HandleFunc("/api/assistant/session/start", only(http.MethodPost, a.StartSession))
		mux.HandleFunc("/api/assistant/chat", only(http.MethodPost, a.Chat))
		mux.HandleFunc("/api/assistant/feedback", only(http.MethodPost, a.Feedback))
		mux.HandleFunc("/api/assistant/history", only(http.MethodGet, a.History))
		mux.HandleFunc("/api/assistant/memory/upsert", only(http.MethodPost, a.UpsertMemory))
		mux.HandleFunc("/api/assistant/knowledge/upsert", only(http.MethodPost, a.UpsertKnowledge))
	}

	if h.Transactions != nil {
		mux.HandleFunc("/api/transactions/summary", only(http.MethodGet, h.Transactions.Summary))
	}

	if h.Knowledge != nil {
		mux.HandleFunc("/api/knowledge/sync", only(http.MethodPost, h.Knowledge.EnqueueSync))
	}

	if j := h.Jobs; j != nil {
		mux.HandleFunc("/api/jobs", only(http.MethodGet, j.ListJobs))
		mux.HandleFunc("/api/jobs/", only(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
			// Extract job ID from path
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			j.GetJob(w, r, jobID)
		}))
	}

	now := h.Now
	if now == nil {
		now = time.Now
	}
	mux.HandleFunc("/health", handlers.Health(now))

	return middleware.Chain(mux,
		middleware.Recovery(log),
		middleware.Logger(log),
		middleware.RequestID(log),
		middleware.CORS(corsOrigin),
	)
}

func only(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		next(w, r)
	}
}
