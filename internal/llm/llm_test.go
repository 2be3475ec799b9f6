package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", `{"intent":"general"}`, `{"intent":"general"}`},
		{"fenced", "```json\n{\"intent\":\"budget_question\"}\n```", `{"intent":"budget_question"}`},
		{"chatter", "Sure! Here you go: {\"intent\": \"investment_question\"} hope that helps", `{"intent": "investment_question"}`},
		{"no object", "I cannot help with that", "I cannot help with that"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanModelJSON(tt.raw); got != tt.want {
				t.Errorf("CleanModelJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeJSONObject(t *testing.T) {
	var out struct {
		Intent string `json:"intent"`
	}
	if err := DecodeJSONObject("```\n{\"intent\":\"general\"}\n```", &out); err != nil {
		t.Fatalf("DecodeJSONObject failed: %v", err)
	}
	if out.Intent != "general" {
		t.Errorf("Intent = %q, want general", out.Intent)
	}

	if err := DecodeJSONObject("nothing here", &out); !errors.Is(err, ErrNoJSONObject) {
		t.Errorf("error = %v, want ErrNoJSONObject", err)
	}
	if err := DecodeJSONObject("{not json}", &out); err == nil {
		t.Error("expected unmarshal error for malformed object")
	}
}

func TestUnavailable(t *testing.T) {
	_, err := Unavailable{}.CompleteText(context.Background(), "s", "u", 0.2)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestRetryingCompleter(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   bool
	}{
		{"success first try", nil, 1, false},
		{"transient then success", []error{errors.New("503 service unavailable")}, 2, false},
		{"non retryable", []error{errors.New("invalid argument")}, 1, true},
		{"unavailable is final", []error{ErrUnavailable}, 1, true},
		{"gives up after max retries", []error{
			errors.New("timeout"), errors.New("timeout"), errors.New("timeout"),
		}, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			next := CompleterFunc(func(ctx context.Context, system, user string, temperature float32) (string, error) {
				calls++
				if calls <= len(tt.errs) {
					return "", tt.errs[calls-1]
				}
				return "ok", nil
			})

			r := NewRetryingCompleter(next, RetryConfig{MaxRetries: 2}, zerolog.Nop())
			var slept []time.Duration
			r.sleep = func(ctx context.Context, d time.Duration) error {
				slept = append(slept, d)
				return nil
			}

			got, err := r.CompleteText(context.Background(), "sys", "user", 0.25)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CompleteText() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != "ok" {
				t.Errorf("CompleteText() = %q, want ok", got)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if len(slept) != calls-1 {
				t.Errorf("sleeps = %d, want %d", len(slept), calls-1)
			}
		})
	}
}

func TestRetryDelayIsCapped(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: 4 * time.Second, Jitter: 0.2}
	for attempt := 0; attempt < 6; attempt++ {
		d := retryDelay(cfg, attempt)
		if d > time.Duration(float64(cfg.MaxDelay)*1.2) {
			t.Errorf("attempt %d delay %s exceeds cap", attempt, d)
		}
	}
}

func TestNewGeminiCompleterRequiresKey(t *testing.T) {
	if _, err := NewGeminiCompleter(context.Background(), " ", ""); !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestWithTimeout(t *testing.T) {
	blocking := CompleterFunc(func(ctx context.Context, system, user string, temperature float32) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	_, err := WithTimeout(blocking, 10*time.Millisecond).CompleteText(context.Background(), "s", "u", 0)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}

	if got := WithTimeout(Unavailable{}, 0); got != (Unavailable{}) {
		t.Errorf("zero timeout should return the completer unchanged, got %T", got)
	}
}
