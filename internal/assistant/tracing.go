package assistant

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Spans go to the global provider; without one installed they are no-ops.
var tracer = otel.Tracer("github.com/dvloznov/finance-assistant/internal/assistant")

func endTurnSpan(span trace.Span, s *State) {
	span.SetAttributes(
		attribute.String("assistant.intent", string(s.Intent)),
		attribute.Int("assistant.stages", len(s.Plan)),
		attribute.Bool("assistant.needs_review", s.NeedsHumanReview),
		attribute.Bool("assistant.clarification", s.NeedsClarification),
	)
	span.End()
}
