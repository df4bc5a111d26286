package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OpportunityStore persists opportunity records keyed by notice_id, with
// secondary lookups by agency, NAICS code, and archive date.
type OpportunityStore interface {
	Upsert(ctx context.Context, noticeID, agency, naicsCode string, archiveDate *time.Time, payload json.RawMessage) error
	Get(ctx context.Context, noticeID string) (json.RawMessage, error)
	ListByAgency(ctx context.Context, agency string) ([]json.RawMessage, error)
	ListByNAICS(ctx context.Context, naicsCode string) ([]json.RawMessage, error)
	ListArchivedBefore(ctx context.Context, cutoff time.Time) ([]json.RawMessage, error)
	// ListActive returns every opportunity with no archive date or an archive
	// date after now, for batch processes that must enumerate the full
	// working set (e.g. nightly match scoring).
	ListActive(ctx context.Context) ([]json.RawMessage, error)
}

type pgOpportunityStore struct{ pool *pgxpool.Pool }

// NewPostgresOpportunityStore returns a Postgres-backed OpportunityStore.
func NewPostgresOpportunityStore(pool *pgxpool.Pool) OpportunityStore {
	return &pgOpportunityStore{pool: pool}
}

func (s *pgOpportunityStore) Upsert(ctx context.Context, noticeID, agency, naicsCode string, archiveDate *time.Time, payload json.RawMessage) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO opportunities (notice_id, agency, naics_code, archive_date, payload, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (notice_id) DO UPDATE SET
			agency = EXCLUDED.agency,
			naics_code = EXCLUDED.naics_code,
			archive_date = EXCLUDED.archive_date,
			payload = EXCLUDED.payload,
			updated_at = NOW()
	`, noticeID, agency, naicsCode, archiveDate, payload)
	return err
}

func (s *pgOpportunityStore) Get(ctx context.Context, noticeID string) (json.RawMessage, error) {
	var payload json.RawMessage
	err := s.pool.QueryRow(ctx, `SELECT payload FROM opportunities WHERE notice_id = $1`, noticeID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return payload, err
}

func (s *pgOpportunityStore) ListByAgency(ctx context.Context, agency string) ([]json.RawMessage, error) {
	return s.queryPayloads(ctx, `SELECT payload FROM opportunities WHERE agency = $1`, agency)
}

func (s *pgOpportunityStore) ListByNAICS(ctx context.Context, naicsCode string) ([]json.RawMessage, error) {
	return s.queryPayloads(ctx, `SELECT payload FROM opportunities WHERE naics_code = $1`, naicsCode)
}

func (s *pgOpportunityStore) ListArchivedBefore(ctx context.Context, cutoff time.Time) ([]json.RawMessage, error) {
	return s.queryPayloads(ctx, `SELECT payload FROM opportunities WHERE archive_date IS NOT NULL AND archive_date <= $1`, cutoff)
}

func (s *pgOpportunityStore) ListActive(ctx context.Context) ([]json.RawMessage, error) {
	return s.queryPayloadsNoArg(ctx, `SELECT payload FROM opportunities WHERE archive_date IS NULL OR archive_date > NOW()`)
}

func (s *pgOpportunityStore) queryPayloadsNoArg(ctx context.Context, query string) ([]json.RawMessage, error) {
	rows, err := s.pool.Query(ctx, query)
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

func (s *pgOpportunityStore) queryPayloads(ctx context.Context, query string, arg any) ([]json.RawMessage, error) {
	rows, err := s.pool.Query(ctx, query, arg)
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
