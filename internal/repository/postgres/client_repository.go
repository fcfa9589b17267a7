package postgres

import (
	"context"
	"fmt"

	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/domain"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/repository"
)

type clientRepository struct {
	db *DB
}

func NewClientRepository(db *DB) repository.ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) ListClients(ctx context.Context) ([]domain.ClientRecord, error) {
	var out []domain.ClientRecord
	err := r.db.SelectContext(ctx, &out, `
		SELECT code, COALESCE(name, '') AS name
		FROM clients
		ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return out, nil
}
