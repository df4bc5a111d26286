package kvstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CompanyStore persists company profile records keyed by company_id, with a
// secondary lookup by tenant for per-tenant listing.
type CompanyStore interface {
	Upsert(ctx context.Context, companyID, tenantID string, payload json.RawMessage) error
	Get(ctx context.Context, companyID string) (json.RawMessage, error)
	ListByTenant(ctx context.Context, tenantID string) ([]json.RawMessage, error)
	// ListAll returns every company across every tenant, for batch processes
	// that must enumerate the full working set (e.g. nightly match scoring).
	ListAll(ctx context.Context) ([]json.RawMessage, error)
}

type pgCompanyStore struct{ pool *pgxpool.Pool }

// NewPostgresCompanyStore returns a Postgres-backed CompanyStore.
func NewPostgresCompanyStore(pool *pgxpool.Pool) CompanyStore {
	return &pgCompanyStore{pool: pool}
}

func (s *pgCompanyStore) Upsert(ctx context.Context, companyID, tenantID string, payload json.RawMessage) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO companies (company_id, tenant_id, payload, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (company_id) DO UPDATE SET
			tenant_id = EXCLUDED.tenant_id,
			payload = EXCLUDED.payload,
			updated_at = NOW()
	`, companyID, tenantID, payload)
	return err
}

func (s *pgCompanyStore) Get(ctx context.Context, companyID string) (json.RawMessage, error) {
	var payload json.RawMessage
	err := s.pool.QueryRow(ctx, `SELECT payload FROM companies WHERE company_id = $1`, companyID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return payload, err
}

func (s *pgCompanyStore) ListByTenant(ctx context.Context, tenantID string) ([]json.RawMessage, error) {
	return s.queryPayloads(ctx, `SELECT payload FROM companies WHERE tenant_id = $1`, tenantID)
}

func (s *pgCompanyStore) ListAll(ctx context.Context) ([]json.RawMessage, error) {
	return s.queryPayloads(ctx, `SELECT payload FROM companies`)
}

func (s *pgCompanyStore) queryPayloads(ctx context.Context, query string, args ...any) ([]json.RawMessage, error) {
	rows, err := s.pool.Query(ctx, query, args...)
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
