package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BatchCoordinationStore persists the coordination record for an in-flight
// batch run: its status and the full payload describing its batches.
type BatchCoordinationStore interface {
	Upsert(ctx context.Context, coordinationID, status string, payload json.RawMessage) error
	Get(ctx context.Context, coordinationID string) (json.RawMessage, error)
	ListActiveSince(ctx context.Context, since time.Time) ([]json.RawMessage, error)
}

type pgBatchCoordinationStore struct{ pool *pgxpool.Pool }

// NewPostgresBatchCoordinationStore returns a Postgres-backed BatchCoordinationStore.
func NewPostgresBatchCoordinationStore(pool *pgxpool.Pool) BatchCoordinationStore {
	return &pgBatchCoordinationStore{pool: pool}
}

func (s *pgBatchCoordinationStore) Upsert(ctx context.Context, coordinationID, status string, payload json.RawMessage) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO batch_coordination (coordination_id, status, payload, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (coordination_id) DO UPDATE SET
			status = EXCLUDED.status,
			payload = EXCLUDED.payload,
			updated_at = NOW()
	`, coordinationID, status, payload)
	return err
}

func (s *pgBatchCoordinationStore) Get(ctx context.Context, coordinationID string) (json.RawMessage, error) {
	var payload json.RawMessage
	err := s.pool.QueryRow(ctx, `
		SELECT payload FROM batch_coordination WHERE coordination_id = $1
	`, coordinationID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return payload, err
}

func (s *pgBatchCoordinationStore) ListActiveSince(ctx context.Context, since time.Time) ([]json.RawMessage, error) {
	rows, err := s.pool.Query(ctx, `SELECT payload FROM batch_coordination WHERE updated_at >= $1`, since)
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
