package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/analyze"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/domain"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/normalize"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/repository/memory"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/signal"
)

// fakeSignals is a canned oracle for orchestrator tests.
type fakeSignals struct {
	result signal.Result
	called bool
	series []domain.PartSeries
}

func (f *fakeSignals) RequestSignals(_ context.Context, series []domain.PartSeries, _ int) signal.Result {
	f.called = true
	f.series = series
	return f.result
}

var inputHeaders = []string{"invoice_date", "customer_code", "part_num", "qty"}

// testInput builds ~100 invoice rows over 3 parts and 8 weeks, including 5
// rows that normalization must drop.
func testInput() Input {
	var rows []normalize.RawRow
	parts := []string{"P1", "P2", "P3"}
	start := time.Date(2025, time.February, 3, 0, 0, 0, 0, time.UTC) // a Monday
	for w := 0; w < 8; w++ {
		date := start.AddDate(0, 0, w*7).Format("2006-01-02")
		for p, part := range parts {
			for c := 0; c < 4; c++ {
				rows = append(rows, normalize.RawRow{
					"invoice_date":  date,
					"customer_code": fmt.Sprintf("C%d", c),
					"part_num":      part,
					"qty":           fmt.Sprintf("%d", 10+p+c),
				})
			}
		}
	}
	// 96 good rows so far; add 5 bad ones.
	rows = append(rows,
		normalize.RawRow{"invoice_date": "garbage", "customer_code": "C1", "part_num": "P1", "qty": "10"},
		normalize.RawRow{"invoice_date": "2025-02-03", "customer_code": "", "part_num": "P1", "qty": "10"},
		normalize.RawRow{"invoice_date": "2025-02-03", "customer_code": "C1", "part_num": "", "qty": "10"},
		normalize.RawRow{"invoice_date": "2025-02-03", "customer_code": "C1", "part_num": "P1", "qty": "x"},
		normalize.RawRow{"invoice_date": "2025-02-03", "customer_code": "C1", "part_num": "P1", "qty": "-1"},
	)
	return Input{Headers: inputHeaders, Rows: rows}
}

func newTestOrchestrator(signals signal.Requester, repo *memory.AnalysisRepository) *Orchestrator {
	return NewOrchestrator(analyze.New(analyze.Config{}), signals, repo)
}

func TestRun_Completes(t *testing.T) {
	repo := memory.NewAnalysisRepository()
	oracle := &fakeSignals{result: signal.Result{Signals: []domain.AiSignal{
		{PartNum: "P1", WeekKey: "2025-W10", PredictedQty: 12},
	}}}

	var events []StageEvent
	run, err := newTestOrchestrator(oracle, repo).Run(context.Background(), testInput(), func(ev StageEvent) {
		events = append(events, ev)
	})
	require.NoError(t, err)

	assert.Equal(t, RunCompleted, run.State)
	assert.Empty(t, run.Warnings)
	assert.Equal(t, 101, run.Quality.RowsSeen)
	assert.Equal(t, 96, run.Quality.RowsKept)
	assert.Equal(t, 5, run.Quality.RowsDropped)

	for _, stage := range Stages {
		assert.Equal(t, StatusCompleted, run.Stages[stage], "stage %s", stage)
	}

	require.NotNil(t, run.Result)
	assert.Equal(t, 96, run.Result.TotalRecords)
	assert.Len(t, run.Result.WeeklyStats, 24) // 3 parts x 8 weeks
	assert.Len(t, run.Result.AiSignals, 1)
	assert.True(t, oracle.called)
	assert.Len(t, oracle.series, 3)

	// The run landed in the repository under its own id.
	saved, err := repo.GetAnalysis(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Result.TotalRecords, saved.TotalRecords)

	// Events arrive in strict stage order, processing before completed.
	require.Len(t, events, 8)
	for i, stage := range Stages {
		assert.Equal(t, stage, events[i*2].Stage)
		assert.Equal(t, StatusProcessing, events[i*2].Status)
		assert.Equal(t, stage, events[i*2+1].Stage)
		assert.Equal(t, StatusCompleted, events[i*2+1].Status)
	}
}

// TestRun_OracleDegradesToWarning verifies the central failure policy: a dead
// oracle yields a completed run with a warning, never an error.
func TestRun_OracleDegradesToWarning(t *testing.T) {
	repo := memory.NewAnalysisRepository()
	oracle := &fakeSignals{result: signal.Result{
		Signals: []domain.AiSignal{},
		Failure: &signal.Failure{Kind: signal.FailureTimeout, Message: "deadline exceeded"},
	}}

	run, err := newTestOrchestrator(oracle, repo).Run(context.Background(), testInput(), nil)
	require.NoError(t, err)

	assert.Equal(t, RunCompleted, run.State)
	assert.Equal(t, StatusCompleted, run.Stages[StageAISignal])
	require.Len(t, run.Warnings, 1)
	assert.Contains(t, run.Warnings[0], "timeout")
	assert.Empty(t, run.Result.AiSignals)

	// The degraded result is still persisted.
	_, err = repo.GetAnalysis(context.Background(), run.ID)
	assert.NoError(t, err)
}

func TestRun_NoValidDataFails(t *testing.T) {
	repo := memory.NewAnalysisRepository()
	in := Input{
		Headers: inputHeaders,
		Rows: []normalize.RawRow{
			{"invoice_date": "junk", "customer_code": "C1", "part_num": "P1", "qty": "5"},
			{"invoice_date": "junk", "customer_code": "C2", "part_num": "P2", "qty": "5"},
		},
	}

	oracle := &fakeSignals{}
	run, err := newTestOrchestrator(oracle, repo).Run(context.Background(), in, nil)
	require.Error(t, err)

	assert.Equal(t, RunError, run.State)
	assert.Equal(t, StageNormalize, run.FailedStage)
	assert.Equal(t, StatusError, run.Stages[StageNormalize])
	assert.Equal(t, StatusPending, run.Stages[StageAnalyze])
	assert.False(t, oracle.called, "later stages must not run after a failure")
	assert.Equal(t, 2, run.Quality.RowsSeen)
}

func TestRun_UndetectableColumnsFail(t *testing.T) {
	repo := memory.NewAnalysisRepository()
	in := Input{Headers: []string{"a", "b"}, Rows: []normalize.RawRow{{"a": "1", "b": "2"}}}

	run, err := newTestOrchestrator(&fakeSignals{}, repo).Run(context.Background(), in, nil)
	require.Error(t, err)
	assert.Equal(t, StageNormalize, run.FailedStage)
}

func TestRun_PersistFailure(t *testing.T) {
	repo := memory.NewAnalysisRepository()
	repo.FailSave = errors.New("disk on fire")

	run, err := newTestOrchestrator(&fakeSignals{}, repo).Run(context.Background(), testInput(), nil)
	require.Error(t, err)

	assert.Equal(t, RunError, run.State)
	assert.Equal(t, StagePersist, run.FailedStage)
	assert.Contains(t, run.Error, "disk on fire")
	assert.Equal(t, StatusCompleted, run.Stages[StageAnalyze])
}

// TestRun_CanceledContextSkipsPersist checks that an abandoned run does not
// write partial results.
func TestRun_CanceledContextSkipsPersist(t *testing.T) {
	repo := memory.NewAnalysisRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := newTestOrchestrator(&fakeSignals{}, repo).Run(ctx, testInput(), nil)
	require.Error(t, err)
	assert.Equal(t, StagePersist, run.FailedStage)

	_, err = repo.GetAnalysis(context.Background(), run.ID)
	assert.Error(t, err)
}

func TestRun_RisksFlowFromStocks(t *testing.T) {
	repo := memory.NewAnalysisRepository()
	in := testInput()
	in.Stocks = []domain.StockPosition{{PartNum: "P1", OnHand: 1}}

	run, err := newTestOrchestrator(&fakeSignals{}, repo).Run(context.Background(), in, nil)
	require.NoError(t, err)
	require.Len(t, run.Result.InventoryRisks, 1)
	assert.Equal(t, domain.RiskCritical, run.Result.InventoryRisks[0].RiskLevel)
}
