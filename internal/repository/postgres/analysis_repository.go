package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/domain"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/repository"
)

type analysisRepository struct {
	db *DB
}

func NewAnalysisRepository(db *DB) repository.AnalysisRepository {
	return &analysisRepository{db: db}
}

// SaveAnalysis writes the aggregate document plus its forecast and alert
// documents in one transaction. Runs never overwrite each other: every run
// carries a fresh id.
func (r *analysisRepository) SaveAnalysis(ctx context.Context, result *domain.DemandAnalysisResult) error {
	rankings, err := json.Marshal(result.VolatilityRanking)
	if err != nil {
		return fmt.Errorf("encode volatility ranking: %w", err)
	}
	instability, err := json.Marshal(result.CustomerInstability)
	if err != nil {
		return fmt.Errorf("encode customer instability: %w", err)
	}
	risks, err := json.Marshal(result.InventoryRisks)
	if err != nil {
		return fmt.Errorf("encode inventory risks: %w", err)
	}
	quality, err := json.Marshal(result.Quality)
	if err != nil {
		return fmt.Errorf("encode quality report: %w", err)
	}

	parts := make(map[string]struct{})
	customers := make(map[string]struct{})
	for _, s := range result.WeeklyStats {
		parts[s.PartNum] = struct{}{}
		for c := range s.PerCustomer {
			customers[c] = struct{}{}
		}
	}

	alertCount := 0
	for _, risk := range result.InventoryRisks {
		if risk.RiskLevel == domain.RiskHigh || risk.RiskLevel == domain.RiskCritical {
			alertCount++
		}
	}

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO demand_analyses (
				id, created_at, status, total_records, week_start, week_end,
				part_nums, customer_codes, part_count, signal_count, alert_count,
				volatility_ranking, customer_instability, inventory_risks,
				quality, warnings
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
			result.ID, result.CreatedAt, "completed", result.TotalRecords,
			result.WeekStart, result.WeekEnd,
			pq.Array(keys(parts)), pq.Array(keys(customers)),
			len(parts), len(result.AiSignals), alertCount,
			rankings, instability, risks, quality, pq.Array(result.Warnings),
		)
		if err != nil {
			return fmt.Errorf("insert analysis: %w", err)
		}

		if err := insertWeeklyStats(ctx, tx, result); err != nil {
			return err
		}
		if err := insertForecasts(ctx, tx, result); err != nil {
			return err
		}
		return insertAlerts(ctx, tx, result)
	})
}

func insertWeeklyStats(ctx context.Context, tx *sqlx.Tx, result *domain.DemandAnalysisResult) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO demand_weekly_stats (
			analysis_id, part_num, week_key, total_qty, customer_count,
			mean_qty, max_qty, min_qty, std_dev, volatility_score
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`)
	if err != nil {
		return fmt.Errorf("prepare weekly stats insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range result.WeeklyStats {
		if _, err := stmt.ExecContext(ctx,
			result.ID, s.PartNum, s.WeekKey, s.TotalQty, s.CustomerCount,
			s.MeanQty, s.MaxQty, s.MinQty, s.StdDev, s.VolatilityScore,
		); err != nil {
			return fmt.Errorf("insert weekly stat: %w", err)
		}
	}
	return nil
}

func insertForecasts(ctx context.Context, tx *sqlx.Tx, result *domain.DemandAnalysisResult) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO demand_forecasts (
			id, analysis_id, part_num, week_key, predicted_qty,
			lower_bound, upper_bound, anomaly_score, seasonality_tag, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`)
	if err != nil {
		return fmt.Errorf("prepare forecast insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range result.AiSignals {
		if _, err := stmt.ExecContext(ctx,
			uuid.NewString(), result.ID, s.PartNum, s.WeekKey, s.PredictedQty,
			s.Lower, s.Upper, s.AnomalyScore, nullIfEmpty(s.SeasonalityTag), result.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert forecast: %w", err)
		}
	}
	return nil
}

func insertAlerts(ctx context.Context, tx *sqlx.Tx, result *domain.DemandAnalysisResult) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO demand_alerts (
			id, analysis_id, part_num, risk_level, weeks_cover, message, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
	if err != nil {
		return fmt.Errorf("prepare alert insert: %w", err)
	}
	defer stmt.Close()

	for _, risk := range result.InventoryRisks {
		if risk.RiskLevel != domain.RiskHigh && risk.RiskLevel != domain.RiskCritical {
			continue
		}
		msg := fmt.Sprintf("%s has %.1f weeks of cover against projected demand %.1f",
			risk.PartNum, risk.WeeksOfCover, risk.ProjectedQty)
		if _, err := stmt.ExecContext(ctx,
			uuid.NewString(), result.ID, risk.PartNum, risk.RiskLevel,
			risk.WeeksOfCover, msg, domain.AlertOpen, result.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert alert: %w", err)
		}
	}
	return nil
}

type analysisRow struct {
	ID                  string         `db:"id"`
	CreatedAt           sql.NullTime   `db:"created_at"`
	Status              string         `db:"status"`
	TotalRecords        int            `db:"total_records"`
	WeekStart           string         `db:"week_start"`
	WeekEnd             string         `db:"week_end"`
	PartCount           int            `db:"part_count"`
	SignalCount         int            `db:"signal_count"`
	AlertCount          int            `db:"alert_count"`
	VolatilityRanking   []byte         `db:"volatility_ranking"`
	CustomerInstability []byte         `db:"customer_instability"`
	InventoryRisks      []byte         `db:"inventory_risks"`
	Quality             []byte         `db:"quality"`
	Warnings            pq.StringArray `db:"warnings"`
}

func (r *analysisRepository) GetAnalysis(ctx context.Context, id string) (*domain.DemandAnalysisResult, error) {
	var row analysisRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, created_at, status, total_records, week_start, week_end,
		       part_count, signal_count, alert_count,
		       volatility_ranking, customer_instability, inventory_risks,
		       quality, warnings
		FROM demand_analyses WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}

	result := &domain.DemandAnalysisResult{
		ID:           row.ID,
		CreatedAt:    row.CreatedAt.Time,
		TotalRecords: row.TotalRecords,
		WeekStart:    row.WeekStart,
		WeekEnd:      row.WeekEnd,
		Warnings:     row.Warnings,
	}
	if err := json.Unmarshal(row.VolatilityRanking, &result.VolatilityRanking); err != nil {
		return nil, fmt.Errorf("decode volatility ranking: %w", err)
	}
	if err := json.Unmarshal(row.CustomerInstability, &result.CustomerInstability); err != nil {
		return nil, fmt.Errorf("decode customer instability: %w", err)
	}
	if err := json.Unmarshal(row.InventoryRisks, &result.InventoryRisks); err != nil {
		return nil, fmt.Errorf("decode inventory risks: %w", err)
	}
	if err := json.Unmarshal(row.Quality, &result.Quality); err != nil {
		return nil, fmt.Errorf("decode quality report: %w", err)
	}

	if err := r.db.SelectContext(ctx, &result.WeeklyStats, `
		SELECT part_num, week_key, total_qty, customer_count,
		       mean_qty, max_qty, min_qty, std_dev, volatility_score
		FROM demand_weekly_stats
		WHERE analysis_id = $1
		ORDER BY part_num, week_key`, id); err != nil {
		return nil, fmt.Errorf("get weekly stats: %w", err)
	}

	if err := r.db.SelectContext(ctx, &result.AiSignals, `
		SELECT part_num, week_key, predicted_qty, lower_bound, upper_bound,
		       anomaly_score, COALESCE(seasonality_tag, '') AS seasonality_tag
		FROM demand_forecasts
		WHERE analysis_id = $1
		ORDER BY part_num, week_key`, id); err != nil {
		return nil, fmt.Errorf("get signals: %w", err)
	}

	return result, nil
}

// ListAnalyses pages through analyses newest first. The cursor is the id of
// the last item of the previous page.
func (r *analysisRepository) ListAnalyses(ctx context.Context, filter domain.AnalysisFilter) ([]domain.AnalysisSummary, string, error) {
	query := `
		SELECT id, created_at, status, total_records, week_start, week_end,
		       part_count, signal_count, alert_count
		FROM demand_analyses
		WHERE 1=1`

	var args []interface{}
	var conditions []string
	argCounter := 1

	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argCounter))
		args = append(args, *filter.From)
		argCounter++
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argCounter))
		args = append(args, *filter.To)
		argCounter++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argCounter))
		args = append(args, filter.Status)
		argCounter++
	}
	if filter.PartNum != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(part_nums)", argCounter))
		args = append(args, filter.PartNum)
		argCounter++
	}
	if filter.ClientID != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(customer_codes)", argCounter))
		args = append(args, filter.ClientID)
		argCounter++
	}
	if filter.Cursor != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(created_at, id) < (SELECT created_at, id FROM demand_analyses WHERE id = $%d)", argCounter))
		args = append(args, filter.Cursor)
		argCounter++
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", argCounter)
	args = append(args, limit+1)

	var summaries []domain.AnalysisSummary
	if err := r.db.SelectContext(ctx, &summaries, query, args...); err != nil {
		return nil, "", fmt.Errorf("list analyses: %w", err)
	}

	next := ""
	if len(summaries) > limit {
		summaries = summaries[:limit]
		next = summaries[limit-1].ID
	}
	return summaries, next, nil
}

func (r *analysisRepository) ListForecasts(ctx context.Context, analysisID string) ([]domain.DemandForecast, error) {
	var out []domain.DemandForecast
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, analysis_id, part_num, week_key, predicted_qty,
		       lower_bound, upper_bound, anomaly_score,
		       COALESCE(seasonality_tag, '') AS seasonality_tag, created_at
		FROM demand_forecasts
		WHERE analysis_id = $1
		ORDER BY part_num, week_key`, analysisID)
	if err != nil {
		return nil, fmt.Errorf("list forecasts: %w", err)
	}
	return out, nil
}

func (r *analysisRepository) ListAlerts(ctx context.Context, analysisID string, status string) ([]domain.DemandAlert, error) {
	query := `
		SELECT id, analysis_id, part_num, risk_level, weeks_cover, message, status, created_at
		FROM demand_alerts
		WHERE analysis_id = $1`
	args := []interface{}{analysisID}
	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}
	query += ` ORDER BY CASE risk_level
		WHEN 'critical' THEN 0
		WHEN 'high' THEN 1
		WHEN 'medium' THEN 2
		ELSE 3 END, part_num`

	var out []domain.DemandAlert
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return out, nil
}

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
