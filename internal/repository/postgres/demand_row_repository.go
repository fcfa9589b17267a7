package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/domain"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/repository"
)

type demandRowRepository struct {
	db *DB
}

func NewDemandRowRepository(db *DB) repository.DemandRowRepository {
	return &demandRowRepository{db: db}
}

// UpsertRows writes normalized forecast rows with last-write-wins semantics
// on (client, part, period, source, version).
func (r *demandRowRepository) UpsertRows(ctx context.Context, rows []domain.NormalizedRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	count := 0
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO demand_rows (client_id, part_id, period_key, qty, source, version, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
			ON CONFLICT (client_id, part_id, period_key, source, version)
			DO UPDATE SET qty = EXCLUDED.qty, updated_at = NOW()`)
		if err != nil {
			return fmt.Errorf("prepare demand row upsert: %w", err)
		}
		defer stmt.Close()

		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx,
				row.ClientID, row.PartID, row.PeriodKey, row.Qty, row.Source, row.Version,
			); err != nil {
				return fmt.Errorf("upsert demand row: %w", err)
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *demandRowRepository) ListRows(ctx context.Context, clientID, partID string, limit int) ([]domain.NormalizedRow, error) {
	query := `
		SELECT client_id, part_id, period_key, qty, source, version
		FROM demand_rows
		WHERE 1=1`
	var args []interface{}
	argCounter := 1

	if clientID != "" {
		query += fmt.Sprintf(" AND client_id = $%d", argCounter)
		args = append(args, clientID)
		argCounter++
	}
	if partID != "" {
		query += fmt.Sprintf(" AND part_id = $%d", argCounter)
		args = append(args, partID)
		argCounter++
	}

	if limit <= 0 {
		limit = 500
	}
	query += fmt.Sprintf(" ORDER BY part_id, period_key LIMIT $%d", argCounter)
	args = append(args, limit)

	var rows []domain.NormalizedRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list demand rows: %w", err)
	}
	return rows, nil
}
