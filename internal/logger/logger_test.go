package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	log := New(Options{})
	if log.GetLevel() != zerolog.InfoLevel {
		t.Errorf("Expected info level, got %s", log.GetLevel())
	}
}

func TestNew_JSONOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{Level: "debug", JSON: true, Output: buf})

	log.Debug().Str("k", "v").Msg("json line")

	output := buf.String()
	if !strings.HasPrefix(output, "{") {
		t.Errorf("Expected JSON output, got: %s", output)
	}
	if !strings.Contains(output, `"k":"v"`) {
		t.Errorf("Expected field in output, got: %s", output)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"DEBUG", zerolog.DebugLevel},
		{" warn ", zerolog.WarnLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Msg("test message")

	if !strings.Contains(buf.String(), "test message") {
		t.Errorf("Expected output to contain 'test message', got: %s", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	log := FromContext(ctx)
	log.Info().Msg("test")

	if buf.Len() == 0 {
		t.Error("Expected log output from retrieved logger")
	}
}

func TestFromContext_DefaultLogger(t *testing.T) {
	log := FromContext(context.Background())
	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected default logger to be enabled")
	}
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := WithFields(NewWithWriter(buf), map[string]interface{}{
		"user_id": "123",
		"action":  "test",
	})
	log.Info().Msg("test message")

	output := buf.String()
	if !strings.Contains(output, `"user_id":"123"`) || !strings.Contains(output, `"action":"test"`) {
		t.Errorf("Expected output to contain fields, got: %s", output)
	}
}

func TestForTurn(t *testing.T) {
	buf := &bytes.Buffer{}
	log := ForComponent(ForTurn(NewWithWriter(buf), "u1", "s1"), "orchestrator")
	log.Info().Msg("turn")

	output := buf.String()
	for _, want := range []string{`"user_id":"u1"`, `"session_id":"s1"`, `"component":"orchestrator"`} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %s in output, got: %s", want, output)
		}
	}
}
