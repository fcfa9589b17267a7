package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/cache"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/domain"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/normalize"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/pipeline"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/repository"
)

// DemandService fronts the processing pipeline and the persisted analyses
// for the API and the batch tool.
type DemandService struct {
	orchestrator *pipeline.Orchestrator
	repo         repository.AnalysisRepository
	rowRepo      repository.DemandRowRepository
	cache        cache.AnalysisCache
}

func NewDemandService(
	orchestrator *pipeline.Orchestrator,
	repo repository.AnalysisRepository,
	rowRepo repository.DemandRowRepository,
	cacheImpl cache.AnalysisCache,
) *DemandService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopAnalysisCache()
	}
	return &DemandService{
		orchestrator: orchestrator,
		repo:         repo,
		rowRepo:      rowRepo,
		cache:        cacheImpl,
	}
}

// ReadCSV parses a consumption export into headers plus rows keyed by
// header name. Short records are padded with empty cells rather than
// rejected; these exports are rarely tidy.
func ReadCSV(r io.Reader) ([]string, []normalize.RawRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []normalize.RawRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read csv record: %w", err)
		}

		row := make(normalize.RawRow, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}

	return header, rows, nil
}

// Process runs the full pipeline over a consumption export. Completed runs
// invalidate the dashboard cache.
func (s *DemandService) Process(ctx context.Context, r io.Reader, stocks []domain.StockPosition, sink pipeline.EventSink) (*pipeline.Run, error) {
	headers, rows, err := ReadCSV(r)
	if err != nil {
		return nil, err
	}

	run, err := s.orchestrator.Run(ctx, pipeline.Input{Headers: headers, Rows: rows, Stocks: stocks}, sink)
	if run != nil && run.State == pipeline.RunCompleted {
		if cerr := s.cache.InvalidateAll(ctx); cerr != nil {
			log.Warn().Err(cerr).Msg("demand: cache invalidation failed")
		}
	}
	return run, err
}

// IngestForecastResult reports what a forecast-sheet ingestion did.
type IngestForecastResult struct {
	Format   normalize.PeriodFormat `json:"format"`
	RowsSeen int                    `json:"rows_seen"`
	RowsOut  int                    `json:"rows_out"`
	Upserted int                    `json:"upserted"`
}

// IngestForecast normalizes a forecast sheet (weekly, monthly or already
// ISO-keyed) and upserts the resulting rows. Unknown formats are rejected;
// the caller must request manual column mapping instead.
func (s *DemandService) IngestForecast(ctx context.Context, r io.Reader, year int, source string, version int) (*IngestForecastResult, error) {
	headers, rows, err := ReadCSV(r)
	if err != nil {
		return nil, err
	}

	format := normalize.DetectFormat(headers)
	var normalized []domain.NormalizedRow
	switch format {
	case normalize.FormatWeekly:
		normalized = normalize.NormalizeWeekly(rows, year, source, version)
	case normalize.FormatMonthly:
		normalized = normalize.NormalizeMonthly(rows, source, version)
	default:
		// Last chance: rows may already carry ISO period keys.
		normalized = normalize.NormalizeFromPeriodKey(rows, source, version)
		if len(normalized) == 0 {
			return nil, fmt.Errorf("unrecognized forecast sheet format")
		}
	}

	count, err := s.rowRepo.UpsertRows(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("persist forecast rows: %w", err)
	}

	return &IngestForecastResult{
		Format:   format,
		RowsSeen: len(rows),
		RowsOut:  len(normalized),
		Upserted: count,
	}, nil
}

func (s *DemandService) GetAnalysis(ctx context.Context, id string) (*domain.DemandAnalysisResult, error) {
	if result, ok, err := s.cache.GetAnalysis(ctx, id); err == nil && ok {
		return result, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("demand: cache get analysis failed")
	}

	result, err := s.repo.GetAnalysis(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetAnalysis(ctx, result); err != nil {
		log.Warn().Err(err).Msg("demand: cache set analysis failed")
	}
	return result, nil
}

func (s *DemandService) ListAnalyses(ctx context.Context, filter domain.AnalysisFilter) ([]domain.AnalysisSummary, string, error) {
	if summaries, next, ok, err := s.cache.GetList(ctx, filter); err == nil && ok {
		return summaries, next, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("demand: cache get list failed")
	}

	summaries, next, err := s.repo.ListAnalyses(ctx, filter)
	if err != nil {
		return nil, "", err
	}

	if err := s.cache.SetList(ctx, filter, summaries, next); err != nil {
		log.Warn().Err(err).Msg("demand: cache set list failed")
	}
	return summaries, next, nil
}

func (s *DemandService) ListForecasts(ctx context.Context, analysisID string) ([]domain.DemandForecast, error) {
	return s.repo.ListForecasts(ctx, analysisID)
}

func (s *DemandService) ListAlerts(ctx context.Context, analysisID, status string) ([]domain.DemandAlert, error) {
	return s.repo.ListAlerts(ctx, analysisID, status)
}

func (s *DemandService) ListDemandRows(ctx context.Context, clientID, partID string, limit int) ([]domain.NormalizedRow, error) {
	return s.rowRepo.ListRows(ctx, clientID, partID, limit)
}
