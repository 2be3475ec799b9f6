package llm

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// RetryConfig controls exponential backoff for completions.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Jitter     float64
}

var DefaultRetryConfig = RetryConfig{
	MaxRetries: 2,
	BaseDelay:  time.Second,
	MaxDelay:   10 * time.Second,
	Jitter:     0.2,
}

// RetryingCompleter retries transient failures of the wrapped Completer.
type RetryingCompleter struct {
	next  Completer
	cfg   RetryConfig
	log   zerolog.Logger
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryingCompleter wraps next. Zero fields of cfg take their defaults.
func NewRetryingCompleter(next Completer, cfg RetryConfig, log zerolog.Logger) *RetryingCompleter {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultRetryConfig.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultRetryConfig.MaxDelay
	}
	if cfg.Jitter <= 0 {
		cfg.Jitter = DefaultRetryConfig.Jitter
	}
	return &RetryingCompleter{next: next, cfg: cfg, log: log, sleep: sleepContext}
}

func (r *RetryingCompleter) CompleteText(ctx context.Context, system, user string, temperature float32) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := r.next.CompleteText(ctx, system, user, temperature)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !shouldRetryError(err) || attempt == r.cfg.MaxRetries {
			break
		}

		delay := retryDelay(r.cfg, attempt)
		r.log.Warn().Err(err).Int("attempt", attempt+1).Dur("delay", delay).Msg("completion failed, retrying")
		if err := r.sleep(ctx, delay); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

func shouldRetryError(err error) bool {
	if err == nil || errors.Is(err, ErrUnavailable) || errors.Is(err, context.Canceled) {
		return false
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection reset", "connection refused", "timeout", "temporary", "unavailable", "resource_exhausted", "429", "503"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func retryDelay(cfg RetryConfig, attempt int) time.Duration {
	d := time.Duration(float64(cfg.BaseDelay) * math.Pow(2, float64(attempt)))
	if d > cfg.MaxDelay {
		d = cfg.MaxDelay
	}
	jitter := 1 + ((rand.Float64()*2 - 1) * cfg.Jitter)
	if jitter < 0 {
		jitter = 0
	}
	return time.Duration(float64(d) * jitter)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
