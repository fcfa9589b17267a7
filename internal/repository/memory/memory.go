// Package memory holds in-memory repository implementations used by tests
// and by dry runs of the batch tool.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/domain"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/repository"
)

// AnalysisRepository is a thread-safe in-memory AnalysisRepository.
type AnalysisRepository struct {
	mu       sync.RWMutex
	analyses map[string]*domain.DemandAnalysisResult
	order    []string

	// FailSave, when set, makes SaveAnalysis return this error. Used to
	// exercise the persist-stage failure path.
	FailSave error
}

func NewAnalysisRepository() *AnalysisRepository {
	return &AnalysisRepository{analyses: make(map[string]*domain.DemandAnalysisResult)}
}

func (r *AnalysisRepository) SaveAnalysis(_ context.Context, result *domain.DemandAnalysisResult) error {
	if r.FailSave != nil {
		return r.FailSave
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.analyses[result.ID]; !exists {
		r.order = append(r.order, result.ID)
	}
	r.analyses[result.ID] = result
	return nil
}

func (r *AnalysisRepository) GetAnalysis(_ context.Context, id string) (*domain.DemandAnalysisResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.analyses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return res, nil
}

func (r *AnalysisRepository) ListAnalyses(_ context.Context, filter domain.AnalysisFilter) ([]domain.AnalysisSummary, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, len(r.order))
	copy(ids, r.order)
	// Newest first, mirroring the SQL implementation.
	sort.SliceStable(ids, func(i, j int) bool {
		return r.analyses[ids[i]].CreatedAt.After(r.analyses[ids[j]].CreatedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	started := filter.Cursor == ""
	var out []domain.AnalysisSummary
	var next string
	for _, id := range ids {
		if !started {
			if id == filter.Cursor {
				started = true
			}
			continue
		}
		a := r.analyses[id]
		if filter.From != nil && a.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && a.CreatedAt.After(*filter.To) {
			continue
		}
		if len(out) == limit {
			next = out[len(out)-1].ID
			break
		}
		out = append(out, summarize(a))
	}

	return out, next, nil
}

func (r *AnalysisRepository) ListForecasts(_ context.Context, analysisID string) ([]domain.DemandForecast, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.analyses[analysisID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := make([]domain.DemandForecast, 0, len(a.AiSignals))
	for _, s := range a.AiSignals {
		out = append(out, domain.DemandForecast{
			AnalysisID:   analysisID,
			PartNum:      s.PartNum,
			WeekKey:      s.WeekKey,
			PredictedQty: s.PredictedQty,
			Lower:        s.Lower,
			Upper:        s.Upper,
			AnomalyScore: s.AnomalyScore,
			Seasonality:  s.SeasonalityTag,
			CreatedAt:    a.CreatedAt,
		})
	}
	return out, nil
}

func (r *AnalysisRepository) ListAlerts(_ context.Context, analysisID string, status string) ([]domain.DemandAlert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.analyses[analysisID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	var out []domain.DemandAlert
	for _, risk := range a.InventoryRisks {
		if risk.RiskLevel != domain.RiskHigh && risk.RiskLevel != domain.RiskCritical {
			continue
		}
		if status != "" && status != domain.AlertOpen {
			continue
		}
		out = append(out, domain.DemandAlert{
			AnalysisID: analysisID,
			PartNum:    risk.PartNum,
			RiskLevel:  risk.RiskLevel,
			WeeksCover: risk.WeeksOfCover,
			Status:     domain.AlertOpen,
			CreatedAt:  a.CreatedAt,
		})
	}
	return out, nil
}

func summarize(a *domain.DemandAnalysisResult) domain.AnalysisSummary {
	parts := make(map[string]struct{})
	for _, s := range a.WeeklyStats {
		parts[s.PartNum] = struct{}{}
	}
	alerts := 0
	for _, r := range a.InventoryRisks {
		if r.RiskLevel == domain.RiskHigh || r.RiskLevel == domain.RiskCritical {
			alerts++
		}
	}
	return domain.AnalysisSummary{
		ID:           a.ID,
		CreatedAt:    a.CreatedAt,
		Status:       "completed",
		TotalRecords: a.TotalRecords,
		WeekStart:    a.WeekStart,
		WeekEnd:      a.WeekEnd,
		PartCount:    len(parts),
		SignalCount:  len(a.AiSignals),
		AlertCount:   alerts,
	}
}

// DemandRowRepository is an in-memory DemandRowRepository with
// last-write-wins upsert semantics.
type DemandRowRepository struct {
	mu   sync.RWMutex
	rows map[rowKey]domain.NormalizedRow
}

type rowKey struct {
	client  string
	part    string
	period  string
	source  string
	version int
}

func NewDemandRowRepository() *DemandRowRepository {
	return &DemandRowRepository{rows: make(map[rowKey]domain.NormalizedRow)}
}

func (r *DemandRowRepository) UpsertRows(_ context.Context, rows []domain.NormalizedRow) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range rows {
		k := rowKey{row.ClientID, row.PartID, row.PeriodKey, row.Source, row.Version}
		r.rows[k] = row
	}
	return len(rows), nil
}

func (r *DemandRowRepository) ListRows(_ context.Context, clientID, partID string, limit int) ([]domain.NormalizedRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.NormalizedRow
	for _, row := range r.rows {
		if clientID != "" && row.ClientID != clientID {
			continue
		}
		if partID != "" && row.PartID != partID {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PartID != out[j].PartID {
			return out[i].PartID < out[j].PartID
		}
		return out[i].PeriodKey < out[j].PeriodKey
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ClientRepository is a fixed in-memory customer master.
type ClientRepository struct {
	Clients []domain.ClientRecord
}

func (r *ClientRepository) ListClients(context.Context) ([]domain.ClientRecord, error) {
	return r.Clients, nil
}
