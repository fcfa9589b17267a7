package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/domain"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/repository"
)

func storedAnalysis(id string, createdAt time.Time) *domain.DemandAnalysisResult {
	return &domain.DemandAnalysisResult{
		ID:        id,
		CreatedAt: createdAt,
		WeeklyStats: []domain.WeeklyStat{
			{PartNum: "P1", WeekKey: "2025-W01", TotalQty: 10},
		},
		InventoryRisks: []domain.InventoryRisk{
			{PartNum: "P1", RiskLevel: domain.RiskCritical, WeeksOfCover: 0.5},
			{PartNum: "P2", RiskLevel: domain.RiskLow, WeeksOfCover: 12},
		},
		AiSignals: []domain.AiSignal{
			{PartNum: "P1", WeekKey: "2025-W05", PredictedQty: 9},
		},
	}
}

func TestAnalysisRepository_GetNotFound(t *testing.T) {
	repo := NewAnalysisRepository()
	_, err := repo.GetAnalysis(context.Background(), "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAnalysisRepository_ListPagination(t *testing.T) {
	repo := NewAnalysisRepository()
	base := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		a := storedAnalysis(fmt.Sprintf("id-%d", i), base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, repo.SaveAnalysis(context.Background(), a))
	}

	// Newest first.
	page1, next, err := repo.ListAnalyses(context.Background(), domain.AnalysisFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, "id-4", page1[0].ID)
	assert.Equal(t, "id-3", page1[1].ID)
	require.NotEmpty(t, next)

	page2, next2, err := repo.ListAnalyses(context.Background(), domain.AnalysisFilter{Limit: 2, Cursor: next})
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Equal(t, "id-2", page2[0].ID)
	assert.Equal(t, "id-1", page2[1].ID)

	page3, next3, err := repo.ListAnalyses(context.Background(), domain.AnalysisFilter{Limit: 2, Cursor: next2})
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Empty(t, next3)
}

func TestAnalysisRepository_ListDateFilter(t *testing.T) {
	repo := NewAnalysisRepository()
	base := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		a := storedAnalysis(fmt.Sprintf("id-%d", i), base.AddDate(0, 0, i))
		require.NoError(t, repo.SaveAnalysis(context.Background(), a))
	}

	from := base.AddDate(0, 0, 1)
	out, _, err := repo.ListAnalyses(context.Background(), domain.AnalysisFilter{From: &from})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestAnalysisRepository_ForecastsAndAlerts(t *testing.T) {
	repo := NewAnalysisRepository()
	a := storedAnalysis("run-1", time.Now().UTC())
	require.NoError(t, repo.SaveAnalysis(context.Background(), a))

	forecasts, err := repo.ListForecasts(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, forecasts, 1)
	assert.Equal(t, 9.0, forecasts[0].PredictedQty)

	// Only high and critical risks become alerts.
	alerts, err := repo.ListAlerts(context.Background(), "run-1", "")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.RiskCritical, alerts[0].RiskLevel)
	assert.Equal(t, domain.AlertOpen, alerts[0].Status)

	alerts, err = repo.ListAlerts(context.Background(), "run-1", domain.AlertResolved)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestDemandRowRepository_UpsertOverwrites(t *testing.T) {
	repo := NewDemandRowRepository()

	row := domain.NormalizedRow{ClientID: "C1", PartID: "P1", PeriodKey: "2025-W01", Qty: 10, Source: "s", Version: 1}
	_, err := repo.UpsertRows(context.Background(), []domain.NormalizedRow{row})
	require.NoError(t, err)

	row.Qty = 25
	_, err = repo.UpsertRows(context.Background(), []domain.NormalizedRow{row})
	require.NoError(t, err)

	rows, err := repo.ListRows(context.Background(), "C1", "P1", 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 25.0, rows[0].Qty)

	// A new version is a separate row.
	row.Version = 2
	_, err = repo.UpsertRows(context.Background(), []domain.NormalizedRow{row})
	require.NoError(t, err)
	rows, err = repo.ListRows(context.Background(), "C1", "P1", 0)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
