package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/api/middleware"
	"github.com/dvloznov/finance-assistant/internal/assistant"
	"github.com/dvloznov/finance-assistant/internal/jobs"
	"github.com/dvloznov/finance-assistant/internal/knowledge"
	"github.com/dvloznov/finance-assistant/internal/logger"
	"github.com/dvloznov/finance-assistant/internal/session"
	"github.com/dvloznov/finance-assistant/internal/stats"
)

// StatusFor maps a service error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, assistant.ErrMissingUser),
		errors.Is(err, assistant.ErrEmptyMessage),
		errors.Is(err, assistant.ErrUnknownStage),
		errors.Is(err, session.ErrInvalidFeedback),
		errors.Is(err, session.ErrEmptyText),
		errors.Is(err, stats.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, jobs.ErrJobNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError reports boundary errors verbatim and hides the rest
// behind message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("path", r.URL.Path).Msg(message)
		middleware.WriteError(w, status, message)
		return
	}
	middleware.WriteError(w, status, err.Error())
}

// TransactionSummarizer summarizes a user's transactions over an interval.
type TransactionSummarizer interface {
	Now() time.Time
	TransactionSummary(ctx context.Context, userID string, start, end time.Time, limit int) (*stats.TransactionSummary, error)
}

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	summarizer TransactionSummarizer
	log        zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(summarizer TransactionSummarizer, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		summarizer: summarizer,
		log:        log,
	}
}

// Summary handles GET /api/transactions/summary
//
// The interval comes from q, a phrase such as "last 2 weeks", or from start
// and end dates where end is inclusive. Without either the default window
// applies.
func (h *TransactionsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	userID := strings.TrimSpace(query.Get("user_id"))
	if userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	now := h.summarizer.Now()
	rng, err := resolveRange(query.Get("q"), query.Get("start"), query.Get("end"), now)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.summarizer.TransactionSummary(r.Context(), userID, rng.Start, rng.End, limit)
	if err != nil {
		writeServiceError(w, r, err, "Failed to summarize transactions")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"range":   rng,
		"summary": summary,
	})
}

func resolveRange(phrase, start, end string, now time.Time) (stats.TimeRange, error) {
	if strings.TrimSpace(phrase) != "" {
		return stats.ExtractTimeRange(phrase, now), nil
	}
	if start == "" && end == "" {
		return stats.DefaultTimeRange(now), nil
	}
	if start == "" || end == "" {
		return stats.TimeRange{}, errors.New("start and end must be given together")
	}
	from, ok := stats.ParseDate(start, now)
	if !ok {
		return stats.TimeRange{}, errors.New("invalid start date")
	}
	to, ok := stats.ParseDate(end, now)
	if !ok {
		return stats.TimeRange{}, errors.New("invalid end date")
	}
	return stats.TimeRange{
		Label:    stats.RangeDateSpan,
		Start:    from,
		End:      to.AddDate(0, 0, 1),
		Explicit: true,
	}, nil
}

// KnowledgeHandler handles knowledge sync endpoints.
type KnowledgeHandler struct {
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewKnowledgeHandler creates a new knowledge handler.
func NewKnowledgeHandler(publisher jobs.Publisher, log zerolog.Logger) *KnowledgeHandler {
	return &KnowledgeHandler{
		publisher: publisher,
		log:       log,
	}
}

// EnqueueSync handles POST /api/knowledge/sync
func (h *KnowledgeHandler) EnqueueSync(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Source string `json:"source"`
		Target string `json:"target"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Source = strings.ToLower(strings.TrimSpace(req.Source))
	if !knowledge.ValidKind(req.Source) {
		middleware.WriteError(w, http.StatusBadRequest, "source must be one of builtin, file, gcs, notion")
		return
	}

	job := &jobs.KnowledgeSyncJob{
		Source: req.Source,
		Target: strings.TrimSpace(req.Target),
	}

	if err := h.publisher.PublishKnowledgeSync(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue knowledge sync job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue knowledge sync job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("source", job.Source).Msg("Knowledge sync job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"source": job.Source,
		"status": string(job.Status),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse query parameters
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Source: query.Get("source"),
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// Health handles GET /health
func Health(now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   now().Format(time.RFC3339),
		})
	}
}
