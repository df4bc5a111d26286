package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WeightConfigStore persists versioned scoring weight configurations. Every
// PutVersion call adds a new row rather than overwriting, so History can
// replay prior weight sets for audit and rollback.
type WeightConfigStore interface {
	PutVersion(ctx context.Context, configKey string, ts time.Time, payload json.RawMessage) error
	Latest(ctx context.Context, configKey string) (json.RawMessage, error)
	History(ctx context.Context, configKey string) ([]json.RawMessage, error)
}

type pgWeightConfigStore struct{ pool *pgxpool.Pool }

// NewPostgresWeightConfigStore returns a Postgres-backed WeightConfigStore.
func NewPostgresWeightConfigStore(pool *pgxpool.Pool) WeightConfigStore {
	return &pgWeightConfigStore{pool: pool}
}

func (s *pgWeightConfigStore) PutVersion(ctx context.Context, configKey string, ts time.Time, payload json.RawMessage) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO weight_configuration (config_key, version_ts, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT (config_key, version_ts) DO UPDATE SET payload = EXCLUDED.payload
	`, configKey, ts, payload)
	return err
}

func (s *pgWeightConfigStore) Latest(ctx context.Context, configKey string) (json.RawMessage, error) {
	var payload json.RawMessage
	err := s.pool.QueryRow(ctx, `
		SELECT payload FROM weight_configuration
		WHERE config_key = $1
		ORDER BY version_ts DESC
		LIMIT 1
	`, configKey).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return payload, err
}

func (s *pgWeightConfigStore) History(ctx context.Context, configKey string) ([]json.RawMessage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT payload FROM weight_configuration WHERE config_key = $1 ORDER BY version_ts ASC
	`, configKey)
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
