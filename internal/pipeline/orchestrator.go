// Package pipeline sequences the processing stages of one demand analysis
// run: normalize -> analyze -> ai-signal -> persist. Stages are strictly
// sequential; a stage starts only after its predecessor completed, and a
// failed stage halts the rest of the run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/analyze"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/normalize"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/repository"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/signal"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/pkg/logger"
)

// Orchestrator runs the four-stage pipeline. It is safe to share across
// concurrent runs: all per-run state lives in the Run value.
type Orchestrator struct {
	analyzer     *analyze.Analyzer
	signals      signal.Requester
	repo         repository.AnalysisRepository
	resolver     normalize.NameResolver
	horizonWeeks int
	log          zerolog.Logger
}

type Option func(*Orchestrator)

// WithNameResolver wires the client directory into consumption
// normalization.
func WithNameResolver(r normalize.NameResolver) Option {
	return func(o *Orchestrator) { o.resolver = r }
}

// WithHorizonWeeks overrides the forecast horizon requested from the oracle.
func WithHorizonWeeks(weeks int) Option {
	return func(o *Orchestrator) { o.horizonWeeks = weeks }
}

func NewOrchestrator(analyzer *analyze.Analyzer, signals signal.Requester, repo repository.AnalysisRepository, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		analyzer:     analyzer,
		signals:      signals,
		repo:         repo,
		horizonWeeks: 8,
		log:          logger.Component("pipeline"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one processing run end to end. The returned Run is always
// non-nil and carries per-stage states; the error is non-nil only for
// run-level failures (no valid data, analysis failure, persistence failure).
// Oracle failures degrade to a warning, never an error.
func (o *Orchestrator) Run(ctx context.Context, in Input, sink EventSink) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		State:     RunProcessing,
		StartedAt: time.Now().UTC(),
		Stages:    make(map[Stage]StageStatus, len(Stages)),
	}
	for _, s := range Stages {
		run.Stages[s] = StatusPending
	}

	emit := func(stage Stage, status StageStatus, progress int, message string) {
		run.Stages[stage] = status
		if sink != nil {
			sink(StageEvent{Stage: stage, Status: status, Progress: progress, Message: message})
		}
	}

	fail := func(stage Stage, err error) (*Run, error) {
		emit(stage, StatusError, 100, err.Error())
		run.State = RunError
		run.FailedStage = stage
		run.Error = err.Error()
		run.CompletedAt = time.Now().UTC()
		o.log.Error().Err(err).Str("run_id", run.ID).Str("stage", string(stage)).Msg("run failed")
		return run, fmt.Errorf("stage %s: %w", stage, err)
	}

	// normalize
	emit(StageNormalize, StatusProcessing, 0, fmt.Sprintf("normalizing %d rows", len(in.Rows)))
	cons, err := normalize.NormalizeConsumption(in.Headers, in.Rows, o.resolver)
	if err != nil {
		return fail(StageNormalize, err)
	}
	run.Quality = cons.Quality
	if len(cons.Records) == 0 {
		return fail(StageNormalize, fmt.Errorf("no valid data: %d rows seen, all dropped", cons.Quality.RowsSeen))
	}
	emit(StageNormalize, StatusCompleted, 100,
		fmt.Sprintf("%d of %d rows kept", cons.Quality.RowsKept, cons.Quality.RowsSeen))

	// analyze
	emit(StageAnalyze, StatusProcessing, 0, "aggregating weekly statistics")
	result, err := o.analyzer.Analyze(cons.Records, in.Stocks)
	if err != nil {
		return fail(StageAnalyze, err)
	}
	result.ID = run.ID
	result.CreatedAt = run.StartedAt
	result.Quality = cons.Quality
	emit(StageAnalyze, StatusCompleted, 100, fmt.Sprintf("%d weekly stats", len(result.WeeklyStats)))

	// ai-signal: best effort, degrades to a warning
	emit(StageAISignal, StatusProcessing, 0, "requesting forecast signals")
	sigRes := o.signals.RequestSignals(ctx, analyze.BuildPartSeries(cons.Records), o.horizonWeeks)
	result.AiSignals = sigRes.Signals
	if sigRes.Degraded() {
		warning := fmt.Sprintf("forecast signals unavailable (%s): %s", sigRes.Failure.Kind, sigRes.Failure.Message)
		run.Warnings = append(run.Warnings, warning)
		result.Warnings = append(result.Warnings, warning)
		o.log.Warn().Str("run_id", run.ID).Str("kind", sigRes.Failure.Kind).Msg("oracle degraded, continuing without signals")
		emit(StageAISignal, StatusCompleted, 100, warning)
	} else {
		emit(StageAISignal, StatusCompleted, 100, fmt.Sprintf("%d signals", len(result.AiSignals)))
	}

	// Abandoned runs must not persist partial results.
	if err := ctx.Err(); err != nil {
		return fail(StagePersist, err)
	}

	// persist
	emit(StagePersist, StatusProcessing, 0, "persisting analysis")
	if err := o.repo.SaveAnalysis(ctx, result); err != nil {
		return fail(StagePersist, fmt.Errorf("save analysis: %w", err))
	}
	emit(StagePersist, StatusCompleted, 100, "analysis persisted")

	run.State = RunCompleted
	run.Result = result
	run.CompletedAt = time.Now().UTC()
	o.log.Info().
		Str("run_id", run.ID).
		Int("records", result.TotalRecords).
		Int("signals", len(result.AiSignals)).
		Dur("took", run.CompletedAt.Sub(run.StartedAt)).
		Msg("run completed")

	return run, nil
}
