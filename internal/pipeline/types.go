package pipeline

import (
	"time"

	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/domain"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/normalize"
)

// Stage identifies one step of the processing pipeline, in execution order.
type Stage string

const (
	StageNormalize Stage = "normalize"
	StageAnalyze   Stage = "analyze"
	StageAISignal  Stage = "ai-signal"
	StagePersist   Stage = "persist"
)

// Stages lists the pipeline stages in their strict execution order.
var Stages = []Stage{StageNormalize, StageAnalyze, StageAISignal, StagePersist}

// StageStatus is the state of a single stage.
type StageStatus string

const (
	StatusPending    StageStatus = "pending"
	StatusProcessing StageStatus = "processing"
	StatusCompleted  StageStatus = "completed"
	StatusError      StageStatus = "error"
)

// RunState is the overall state of a processing run.
type RunState string

const (
	RunProcessing RunState = "processing"
	RunCompleted  RunState = "completed"
	RunError      RunState = "error"
)

// StageEvent is one stage-transition event. The orchestrator produces these
// for any observer (UI, logger, test) through an EventSink; it relays
// progress, it does not persist it.
type StageEvent struct {
	Stage    Stage       `json:"stage"`
	Status   StageStatus `json:"status"`
	Progress int         `json:"progress"`
	Message  string      `json:"message,omitempty"`
}

// EventSink receives stage events for one run. May be nil.
type EventSink func(StageEvent)

// Input is the raw material of one processing run: parsed spreadsheet rows
// plus optional stock positions for risk classification.
type Input struct {
	Headers []string
	Rows    []normalize.RawRow
	Stocks  []domain.StockPosition
}

// Run is the outcome of one orchestrated processing run. Each run owns its
// intermediate data exclusively; concurrent runs share nothing.
type Run struct {
	ID          string                      `json:"id"`
	State       RunState                    `json:"state"`
	StartedAt   time.Time                   `json:"started_at"`
	CompletedAt time.Time                   `json:"completed_at"`
	Stages      map[Stage]StageStatus       `json:"stages"`
	FailedStage Stage                       `json:"failed_stage,omitempty"`
	Error       string                      `json:"error,omitempty"`
	Warnings    []string                    `json:"warnings,omitempty"`
	Quality     domain.QualityReport        `json:"quality"`
	Result      *domain.DemandAnalysisResult `json:"result,omitempty"`
}
