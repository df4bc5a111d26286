package kvstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLogStore persists an append-only audit trail keyed by tenant,
// primarily used for weight-configuration change history.
type AuditLogStore interface {
	Append(ctx context.Context, tenantID string, at time.Time, payload json.RawMessage) error
	ListByTenant(ctx context.Context, tenantID string) ([]json.RawMessage, error)
}

type pgAuditLogStore struct{ pool *pgxpool.Pool }

// NewPostgresAuditLogStore returns a Postgres-backed AuditLogStore.
func NewPostgresAuditLogStore(pool *pgxpool.Pool) AuditLogStore {
	return &pgAuditLogStore{pool: pool}
}

func (s *pgAuditLogStore) Append(ctx context.Context, tenantID string, at time.Time, payload json.RawMessage) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_log (tenant_id, at, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, at) DO NOTHING
	`, tenantID, at, payload)
	return err
}

func (s *pgAuditLogStore) ListByTenant(ctx context.Context, tenantID string) ([]json.RawMessage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT payload FROM audit_log WHERE tenant_id = $1 ORDER BY at ASC
	`, tenantID)
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
