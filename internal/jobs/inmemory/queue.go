package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/jobs"
)

// DefaultWorkers is the number of concurrent workers started by Start.
const DefaultWorkers = 5

// Queue is an in-memory implementation of job publisher and consumer.
// It uses channels for job distribution and is safe for concurrent use.
// It suits single-instance deployments and tests.
type Queue struct {
	jobChan   chan *jobs.KnowledgeSyncJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.JobStore
	closed    bool

	workers int
	backoff func(retry int) time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

// Option configures a Queue.
type Option func(*Queue)

// WithWorkers overrides the number of workers.
func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

// WithBackoff overrides the delay before retry number retry (1-based).
func WithBackoff(f func(retry int) time.Duration) Option {
	return func(q *Queue) { q.backoff = f }
}

// WithClock overrides the clock used for job timestamps.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// WithLogger sets the queue logger.
func WithLogger(log zerolog.Logger) Option {
	return func(q *Queue) { q.log = log }
}

// NewQueue creates a new in-memory job queue.
// bufferSize determines how many jobs can be queued before publishing blocks.
func NewQueue(bufferSize int, store jobs.JobStore, opts ...Option) *Queue {
	q := &Queue{
		jobChan:   make(chan *jobs.KnowledgeSyncJob, bufferSize),
		closeChan: make(chan struct{}),
		store:     store,
		workers:   DefaultWorkers,
		backoff:   func(retry int) time.Duration { return time.Duration(retry) * time.Second },
		now:       time.Now,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// PublishKnowledgeSync enqueues a knowledge sync job for asynchronous
// processing. Missing id, status, timestamp and retry budget are filled in.
func (q *Queue) PublishKnowledgeSync(ctx context.Context, job *jobs.KnowledgeSyncJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return fmt.Errorf("queue is closed")
	}

	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = q.now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = jobs.DefaultMaxRetries
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("failed to save job: %w", err)
		}
	}

	select {
	case q.jobChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return fmt.Errorf("queue is closed")
	}
}

// Start starts the workers. The handler is called concurrently, one job
// per worker.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return fmt.Errorf("queue is closed")
	}
	q.mu.RUnlock()

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}
			q.processJob(ctx, job, handler)
		}
	}
}

// processJob executes a single job with retry logic.
func (q *Queue) processJob(ctx context.Context, job *jobs.KnowledgeSyncJob, handler jobs.JobHandler) {
	job.Status = jobs.JobStatusRunning
	started := q.now()
	job.StartedAt = &started
	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}

	err := q.safeHandle(ctx, job, handler)

	completedAt := q.now()
	job.CompletedAt = &completedAt

	log := q.log.With().Str("job_id", job.JobID).Str("source", job.Source).Logger()
	retry := false
	if err != nil {
		job.Error = err.Error()
		if job.RetryCount < job.MaxRetries {
			job.RetryCount++
			job.Status = jobs.JobStatusRetrying
			retry = true
			log.Warn().Err(err).Int("retry", job.RetryCount).Msg("job failed, retrying")
		} else {
			job.Status = jobs.JobStatusFailed
			log.Error().Err(err).Msg("job failed")
		}
	} else {
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
		log.Info().Int("imported", job.Imported).Msg("job completed")
	}

	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}

	// The job is only touched again by the retry timer from here on.
	if retry {
		time.AfterFunc(q.backoff(job.RetryCount), func() {
			job.Status = jobs.JobStatusPending
			job.StartedAt = nil
			job.CompletedAt = nil
			if err := q.PublishKnowledgeSync(ctx, job); err != nil {
				log.Warn().Err(err).Msg("re-enqueue failed")
			}
		})
	}
}

func (q *Queue) safeHandle(ctx context.Context, job *jobs.KnowledgeSyncJob, handler jobs.JobHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return handler(ctx, job)
}

// Stop stops the queue and waits for in-flight jobs to complete.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the queue.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
