package kvstore

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ProgressStore persists the latest progress snapshot of each batch under a
// coordination run; each Upsert replaces that batch's previous snapshot.
type ProgressStore interface {
	Upsert(ctx context.Context, coordinationID, batchID string, payload json.RawMessage) error
	ListByCoordination(ctx context.Context, coordinationID string) ([]json.RawMessage, error)
}

type pgProgressStore struct{ pool *pgxpool.Pool }

// NewPostgresProgressStore returns a Postgres-backed ProgressStore.
func NewPostgresProgressStore(pool *pgxpool.Pool) ProgressStore {
	return &pgProgressStore{pool: pool}
}

func (s *pgProgressStore) Upsert(ctx context.Context, coordinationID, batchID string, payload json.RawMessage) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO progress_tracking (coordination_id, batch_id, payload, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (coordination_id, batch_id) DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = NOW()
	`, coordinationID, batchID, payload)
	return err
}

func (s *pgProgressStore) ListByCoordination(ctx context.Context, coordinationID string) ([]json.RawMessage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT payload FROM progress_tracking WHERE coordination_id = $1 ORDER BY batch_id
	`, coordinationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []json.RawMessage
	for rows.Next() {
		var p json.RawMessage
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
