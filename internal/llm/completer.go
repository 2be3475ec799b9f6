// Package llm wraps the language-model capability the assistant depends on.
// Everything above this package sees a single text-completion call and must
// treat it as unreliable.
package llm

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned when no language model is configured or the
// model could not produce an answer.
var ErrUnavailable = errors.New("language model unavailable")

// Completer completes a prompt pair into free text.
type Completer interface {
	CompleteText(ctx context.Context, system, user string, temperature float32) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, system, user string, temperature float32) (string, error)

func (f CompleterFunc) CompleteText(ctx context.Context, system, user string, temperature float32) (string, error) {
	return f(ctx, system, user, temperature)
}

// Unavailable is a Completer that always fails. It is used when no API key
// is configured so that every caller answers from its deterministic fallback.
type Unavailable struct{}

func (Unavailable) CompleteText(ctx context.Context, system, user string, temperature float32) (string, error) {
	return "", ErrUnavailable
}

// WithTimeout bounds every completion of next to d. A non-positive d
// returns next unchanged.
func WithTimeout(next Completer, d time.Duration) Completer {
	if d <= 0 {
		return next
	}
	return CompleterFunc(func(ctx context.Context, system, user string, temperature float32) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return next.CompleteText(ctx, system, user, temperature)
	})
}
