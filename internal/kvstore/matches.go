package kvstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MatchStore persists computed match records keyed by (company_id,
// opportunity_id).
type MatchStore interface {
	Upsert(ctx context.Context, companyID, opportunityID string, payload json.RawMessage) error
	Get(ctx context.Context, companyID, opportunityID string) (json.RawMessage, error)
	ListByCompany(ctx context.Context, companyID string) ([]json.RawMessage, error)
}

type pgMatchStore struct{ pool *pgxpool.Pool }

// NewPostgresMatchStore returns a Postgres-backed MatchStore.
func NewPostgresMatchStore(pool *pgxpool.Pool) MatchStore {
	return &pgMatchStore{pool: pool}
}

func (s *pgMatchStore) Upsert(ctx context.Context, companyID, opportunityID string, payload json.RawMessage) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO matches (company_id, opportunity_id, payload, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (company_id, opportunity_id) DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = NOW()
	`, companyID, opportunityID, payload)
	return err
}

func (s *pgMatchStore) Get(ctx context.Context, companyID, opportunityID string) (json.RawMessage, error) {
	var payload json.RawMessage
	err := s.pool.QueryRow(ctx, `
		SELECT payload FROM matches WHERE company_id = $1 AND opportunity_id = $2
	`, companyID, opportunityID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return payload, err
}

func (s *pgMatchStore) ListByCompany(ctx context.Context, companyID string) ([]json.RawMessage, error) {
	rows, err := s.pool.Query(ctx, `SELECT payload FROM matches WHERE company_id = $1`, companyID)
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
