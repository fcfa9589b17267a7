// Package repository defines the persistence boundary of the pipeline. The
// store is treated as a document store: one analysis aggregate plus its
// forecast and alert documents per run, and an upsert table for normalized
// forecast rows.
package repository

import (
	"context"
	"errors"

	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/domain"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("not found")

// AnalysisRepository persists and reads back processing-run results.
// SaveAnalysis writes the aggregate document plus its forecast and alert
// documents; reads support filtering and limit+cursor pagination.
type AnalysisRepository interface {
	SaveAnalysis(ctx context.Context, result *domain.DemandAnalysisResult) error
	GetAnalysis(ctx context.Context, id string) (*domain.DemandAnalysisResult, error)
	ListAnalyses(ctx context.Context, filter domain.AnalysisFilter) ([]domain.AnalysisSummary, string, error)
	ListForecasts(ctx context.Context, analysisID string) ([]domain.DemandForecast, error)
	ListAlerts(ctx context.Context, analysisID string, status string) ([]domain.DemandAlert, error)
}

// DemandRowRepository stores normalized forecast-sheet rows. Upserts are
// keyed on (client, part, period, source, version); last write wins.
type DemandRowRepository interface {
	UpsertRows(ctx context.Context, rows []domain.NormalizedRow) (int, error)
	ListRows(ctx context.Context, clientID, partID string, limit int) ([]domain.NormalizedRow, error)
}

// ClientRepository reads the customer master used by the client directory.
type ClientRepository interface {
	ListClients(ctx context.Context) ([]domain.ClientRecord, error)
}
