package assistant

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/dvloznov/finance-assistant/internal/llm"
)

func TestRunTurn_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	o := newTestOrchestrator(nil, nil, llm.Unavailable{}, nil)
	o.registry[StageExpense] = Stage{
		Name: StageExpense,
		Run: func(ctx context.Context, env *StageEnv, s *State) (string, error) {
			return "", errors.New("ledger offline")
		},
		Fallback: expenseStage().Fallback,
	}

	if _, err := o.RunTurn(context.Background(), TurnRequest{UserID: "u1", Message: "status"}); err != nil {
		t.Fatalf("RunTurn failed: %v", err)
	}

	var turns, expenseFailed int
	for _, span := range recorder.Ended() {
		switch span.Name() {
		case "assistant.turn":
			turns++
		case "assistant.stage":
			if span.Status().Code == codes.Error && stageAttr(span) == string(StageExpense) {
				expenseFailed++
			}
		}
	}
	if turns != 1 {
		t.Errorf("turn spans = %d, want 1", turns)
	}
	if expenseFailed != 1 {
		t.Errorf("failed expense spans = %d, want 1", expenseFailed)
	}
}

func stageAttr(span sdktrace.ReadOnlySpan) string {
	for _, kv := range span.Attributes() {
		if kv.Key == "stage" {
			return kv.Value.AsString()
		}
	}
	return ""
}
