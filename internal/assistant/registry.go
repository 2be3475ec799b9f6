package assistant

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dvloznov/finance-assistant/internal/llm"
)

// ErrUnknownStage is returned when a requested stage name is not registered.
var ErrUnknownStage = errors.New("unknown stage")

// StageName identifies a stage in a plan.
type StageName string

const (
	StageIngestion        StageName = "ingestion"
	StageCategorization   StageName = "categorization"
	StageTransactionQuery StageName = "transaction_query"
	StageExpense          StageName = "expense"
	StageBudget           StageName = "budget"
	StageForecasting      StageName = "forecasting"
	StageBehaviour        StageName = "behaviour"
	StageSentiment        StageName = "sentiment"
	StageInvestment       StageName = "investment"
	StageLearning         StageName = "learning"
	StageFinancialHealth  StageName = "financial_health"
	StageSynthesizer      StageName = "synthesizer"
)

// StageEnv carries what stages may call out to.
type StageEnv struct {
	Stats          StatsEngine
	Completer      llm.Completer
	CurrencySymbol string
	Temperature    float32
	Log            zerolog.Logger
}

// Stage is one named pipeline step. Run sets the stage's own report on the
// state and returns its trace marker. Fallback sets the documented value used
// when Run fails.
type Stage struct {
	Name     StageName
	Run      func(ctx context.Context, env *StageEnv, s *State) (string, error)
	Fallback func(env *StageEnv, s *State)
}

// Registry maps stage names to stages.
type Registry map[StageName]Stage

// DefaultRegistry returns every built-in stage.
func DefaultRegistry() Registry {
	r := Registry{}
	for _, st := range []Stage{
		ingestionStage(),
		categorizationStage(),
		transactionQueryStage(),
		expenseStage(),
		budgetStage(),
		forecastingStage(),
		behaviourStage(),
		sentimentStage(),
		investmentStage(),
		learningStage(),
		financialHealthStage(),
		synthesizerStage(),
	} {
		r[st.Name] = st
	}
	return r
}

// Validate rejects any name that is not registered.
func (r Registry) Validate(names []StageName) error {
	for _, n := range names {
		if _, ok := r[n]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownStage, n)
		}
	}
	return nil
}

// ParseStageNames converts raw names and validates them against r.
func (r Registry) ParseStageNames(raw []string) ([]StageName, error) {
	names := make([]StageName, 0, len(raw))
	for _, s := range raw {
		names = append(names, StageName(s))
	}
	if err := r.Validate(names); err != nil {
		return nil, err
	}
	return names, nil
}

// run executes st and converts an error or panic into the stage's fallback.
func (st Stage) run(ctx context.Context, env *StageEnv, s *State) {
	ctx, span := tracer.Start(ctx, "assistant.stage", trace.WithAttributes(
		attribute.String("stage", string(st.Name)),
	))
	defer span.End()

	marker, err := st.safeRun(ctx, env, s)
	if err == nil {
		s.Trace.Append(marker)
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "stage fallback")
	env.Log.Warn().Err(err).Str("stage", string(st.Name)).Msg("stage failed, using fallback")
	if st.Fallback != nil {
		st.Fallback(env, s)
	}
	s.Trace.Append(string(st.Name) + ":fallback")
}

func (st Stage) safeRun(ctx context.Context, env *StageEnv, s *State) (marker string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stage %s panicked: %v", st.Name, r)
		}
	}()
	return st.Run(ctx, env, s)
}
