package jobs

import (
	"context"
	"errors"
	"time"
)

// ErrJobNotFound is returned by a JobStore for an unknown job id.
var ErrJobNotFound = errors.New("job not found")

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeKnowledgeSync imports knowledge documents from a source.
	JobTypeKnowledgeSync JobType = "knowledge_sync"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// DefaultMaxRetries is applied to jobs published without a retry budget.
const DefaultMaxRetries = 3

// KnowledgeSyncJob imports documents from one knowledge source.
type KnowledgeSyncJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// Source is the source kind: builtin, file, gcs or notion.
	Source string `json:"source"`

	// Target locates the data: a file path, gs:// URI or Notion database id.
	Target string `json:"target,omitempty"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the last attempt failed.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`

	// Counts reported by the last successful run.
	Loaded   int `json:"loaded"`
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// GetID returns the unique job identifier.
func (j *KnowledgeSyncJob) GetID() string {
	return j.JobID
}

// GetType returns the job type.
func (j *KnowledgeSyncJob) GetType() JobType {
	return JobTypeKnowledgeSync
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishKnowledgeSync enqueues a knowledge sync job.
	PublishKnowledgeSync(ctx context.Context, job *KnowledgeSyncJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job and may record result counts on it.
// It should return an error if the job failed and should be retried.
type JobHandler func(ctx context.Context, job *KnowledgeSyncJob) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *KnowledgeSyncJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*KnowledgeSyncJob, error)

	// ListJobs retrieves jobs with optional filtering, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*KnowledgeSyncJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// Source filters jobs by source kind.
	Source string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
