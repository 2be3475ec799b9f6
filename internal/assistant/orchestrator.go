// Package assistant runs the conversational reasoning pipeline: signal
// extraction, state aggregation, planning, stage execution and response
// finalization for one chat turn.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/llm"
	"github.com/dvloznov/finance-assistant/internal/logger"
	"github.com/dvloznov/finance-assistant/internal/signals"
	"github.com/dvloznov/finance-assistant/internal/stats"
)

var (
	// ErrEmptyMessage is returned for a blank chat message.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrMissingUser is returned when no user id is given.
	ErrMissingUser = errors.New("user id is required")
)

// DefaultLanguage is used when a turn does not name one.
const DefaultLanguage = "English"

// Config holds the pipeline's tunables.
type Config struct {
	SnapshotWindowDays  int
	AnalyticsWindowDays int
	DialogueLimit       int
	SemanticLimit       int
	CitationLimit       int
	CurrencySymbol      string
	Temperature         float32
}

// DefaultConfig returns the standard pipeline settings.
func DefaultConfig() Config {
	return Config{
		SnapshotWindowDays:  45,
		AnalyticsWindowDays: 90,
		DialogueLimit:       8,
		SemanticLimit:       6,
		CitationLimit:       4,
		CurrencySymbol:      "₹",
		Temperature:         0.25,
	}
}

// Dependencies are the collaborators of an Orchestrator. Stats is required;
// the readers and the memory writer may be nil.
type Dependencies struct {
	Stats     StatsEngine
	Profiles  ProfileReader
	Styles    StyleReader
	Dialogue  DialogueReader
	Memory    MemoryWriter
	Completer llm.Completer
	Now       func() time.Time
}

// TurnRequest is one incoming chat message.
type TurnRequest struct {
	UserID    string
	SessionID string
	Message   string
	Language  string
	// Stages overrides the planned stage sequence when non-nil.
	Stages []string
}

// TurnResult is the outcome of RunTurn.
type TurnResult struct {
	Response         string            `json:"response"`
	Trace            []string          `json:"agent_trace"`
	Citations        []domain.Citation `json:"citations"`
	Intent           signals.Intent    `json:"intent"`
	Tone             string            `json:"user_tone"`
	Focus            []string          `json:"query_focus"`
	ResponseStyle    string            `json:"response_style"`
	NeedsHumanReview bool              `json:"needs_human_review"`
	ReviewReason     string            `json:"review_reason,omitempty"`
	Clarification    bool              `json:"needs_clarification"`
	MissingFields    []string          `json:"missing_fields,omitempty"`
}

// Orchestrator runs the pipeline. It keeps no per-turn state and is safe for
// concurrent use; callers serialize turns of the same session.
type Orchestrator struct {
	aggregator *aggregator
	classifier *signals.Classifier
	registry   Registry
	memory     MemoryWriter
	completer  llm.Completer
	cfg        Config
	log        zerolog.Logger
	now        func() time.Time
}

// NewOrchestrator wires an Orchestrator. Zero config fields take defaults.
func NewOrchestrator(deps Dependencies, cfg Config, log zerolog.Logger) *Orchestrator {
	cfg = withDefaults(cfg)
	completer := deps.Completer
	if completer == nil {
		completer = llm.Unavailable{}
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	log = logger.ForComponent(log, "orchestrator")

	return &Orchestrator{
		aggregator: &aggregator{
			stats:    deps.Stats,
			profiles: deps.Profiles,
			styles:   deps.Styles,
			dialogue: deps.Dialogue,
			cfg:      cfg,
		},
		classifier: signals.NewClassifier(completer, log),
		registry:   DefaultRegistry(),
		memory:     deps.Memory,
		completer:  completer,
		cfg:        cfg,
		log:        log,
		now:        now,
	}
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.SnapshotWindowDays <= 0 {
		cfg.SnapshotWindowDays = def.SnapshotWindowDays
	}
	if cfg.AnalyticsWindowDays <= 0 {
		cfg.AnalyticsWindowDays = def.AnalyticsWindowDays
	}
	if cfg.DialogueLimit <= 0 {
		cfg.DialogueLimit = def.DialogueLimit
	}
	if cfg.SemanticLimit <= 0 {
		cfg.SemanticLimit = def.SemanticLimit
	}
	if cfg.CitationLimit <= 0 {
		cfg.CitationLimit = def.CitationLimit
	}
	if cfg.CurrencySymbol == "" {
		cfg.CurrencySymbol = def.CurrencySymbol
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = def.Temperature
	}
	return cfg
}

// Registry exposes the stage registry for boundary validation.
func (o *Orchestrator) Registry() Registry {
	return o.registry
}

// RunTurn answers one message. Input errors are returned before any stage
// runs; after that nothing fails, every problem degrades to a fallback.
func (o *Orchestrator) RunTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, ErrMissingUser
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	var override []StageName
	if req.Stages != nil {
		names, err := o.registry.ParseStageNames(req.Stages)
		if err != nil {
			return nil, fmt.Errorf("RunTurn: %w", err)
		}
		override = names
	}
	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = DefaultLanguage
	}

	ctx, span := tracer.Start(ctx, "assistant.turn", trace.WithAttributes(
		attribute.String("user_id", userID),
		attribute.String("session_id", req.SessionID),
	))

	log := logger.ForTurn(o.log, userID, req.SessionID)
	s := NewState(userID, req.SessionID, message, language, o.now())
	defer endTurnSpan(span, s)

	o.detectIntent(ctx, s)

	o.aggregator.aggregate(ctx, log, s)
	s.Trace.Append("user_state")

	plan(s)
	if override != nil {
		s.Plan = override
	}
	s.Trace.Append(planMarker(s.Plan))

	if s.NeedsClarification {
		clarify(s)
		s.Trace.Append("clarification")
		finalize(s)
		log.Info().Str("intent", string(s.Intent)).Strs("missing", s.MissingFields).Msg("turn needs clarification")
		return result(s), nil
	}

	env := &StageEnv{
		Stats:          o.aggregator.stats,
		Completer:      o.completer,
		CurrencySymbol: o.cfg.CurrencySymbol,
		Temperature:    o.cfg.Temperature,
		Log:            log,
	}
	for _, name := range s.Plan {
		o.registry[name].run(ctx, env, s)
	}
	if strings.TrimSpace(s.Synthesized) == "" {
		s.Synthesized = PostProcess(FallbackSummary(s, o.cfg.CurrencySymbol), s.ShowNetCashflow, o.cfg.CurrencySymbol)
	}

	review(s)
	writeMemory(ctx, log, o.memory, s)
	finalize(s)

	log.Info().
		Str("intent", string(s.Intent)).
		Int("stages", len(s.Plan)).
		Bool("needs_review", s.NeedsHumanReview).
		Msg("turn completed")
	return result(s), nil
}

func (o *Orchestrator) detectIntent(ctx context.Context, s *State) {
	intent, _ := o.classifier.Classify(ctx, s.Message)
	s.Intent = intent
	s.Tone = signals.DetectTone(s.Message)
	s.Focus = signals.ExtractQueryFocus(s.Message, s.Now)
	s.Dissatisfied = signals.DetectDissatisfaction(s.Message)
	s.ShowNetCashflow = s.Focus.ExplicitCashflowRequest || s.Focus.TimeRange.Label == stats.RangeThisMonth
	s.Trace.Append("intent_detection:" + string(intent))
}

func result(s *State) *TurnResult {
	citations := s.Citations
	if citations == nil {
		citations = []domain.Citation{}
	}
	return &TurnResult{
		Response:         s.Response,
		Trace:            s.Trace.Entries(),
		Citations:        citations,
		Intent:           s.Intent,
		Tone:             s.Tone,
		Focus:            append([]string{}, s.Focus.Focus...),
		ResponseStyle:    s.ResponseStyle,
		NeedsHumanReview: s.NeedsHumanReview,
		ReviewReason:     s.ReviewReason,
		Clarification:    s.NeedsClarification,
		MissingFields:    s.MissingFields,
	}
}

// planMarker records the stage list, e.g. "planner:learning,synthesizer".
func planMarker(plan []StageName) string {
	names := make([]string, len(plan))
	for i, name := range plan {
		names[i] = string(name)
	}
	return "planner:" + strings.Join(names, ",")
}
