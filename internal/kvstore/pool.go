// Package kvstore implements the KV tables of the persistence design on top
// of Postgres: opportunities, companies, matches, batch_coordination,
// progress_tracking, weight_configuration, audit_log. Each table stores its
// typed record as a JSONB payload alongside the denormalized columns needed
// for its secondary indexes, so callers work with typed Go values while the
// storage layer stays schema-light.
package kvstore

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// OpenPool creates a Postgres connection pool with conservative defaults,
// verifying connectivity before returning.
func OpenPool(ctx context.Context, dsn string, maxConns int32, maxConnLifetime, maxConnIdleTime time.Duration) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if maxConns <= 0 {
		maxConns = 8
	}
	if maxConnLifetime <= 0 {
		maxConnLifetime = time.Hour
	}
	if maxConnIdleTime <= 0 {
		maxConnIdleTime = 5 * time.Minute
	}
	cfg.MaxConns = maxConns
	cfg.MinConns = 0
	cfg.MaxConnLifetime = maxConnLifetime
	cfg.MaxConnIdleTime = maxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Store bundles the pool and provides schema migration; individual table
// stores (OpportunityStore, CompanyStore, ...) wrap the same pool.
type Store struct {
	Pool *pgxpool.Pool
}

// NewStore wraps an existing pool and ensures every table's schema exists.
func NewStore(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	s := &Store{Pool: pool}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.Pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS opportunities (
		notice_id TEXT PRIMARY KEY,
		agency TEXT NOT NULL DEFAULT '',
		naics_code TEXT NOT NULL DEFAULT '',
		archive_date TIMESTAMPTZ,
		payload JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS opportunities_agency_idx ON opportunities(agency);`,
	`CREATE INDEX IF NOT EXISTS opportunities_naics_idx ON opportunities(naics_code);`,
	`CREATE INDEX IF NOT EXISTS opportunities_archive_date_idx ON opportunities(archive_date);`,

	`CREATE TABLE IF NOT EXISTS companies (
		company_id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL DEFAULT '',
		payload JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS companies_tenant_idx ON companies(tenant_id);`,

	`CREATE TABLE IF NOT EXISTS matches (
		company_id TEXT NOT NULL,
		opportunity_id TEXT NOT NULL,
		payload JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (company_id, opportunity_id)
	);`,

	`CREATE TABLE IF NOT EXISTS batch_coordination (
		coordination_id TEXT PRIMARY KEY,
		status TEXT NOT NULL DEFAULT 'pending',
		payload JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS batch_coordination_updated_idx ON batch_coordination(updated_at);`,

	`CREATE TABLE IF NOT EXISTS progress_tracking (
		coordination_id TEXT NOT NULL,
		batch_id TEXT NOT NULL,
		payload JSONB NOT NULL,
		expires_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (coordination_id, batch_id)
	);`,

	`CREATE TABLE IF NOT EXISTS weight_configuration (
		config_key TEXT NOT NULL,
		version_ts TIMESTAMPTZ NOT NULL,
		payload JSONB NOT NULL,
		expires_at TIMESTAMPTZ,
		PRIMARY KEY (config_key, version_ts)
	);`,

	`CREATE TABLE IF NOT EXISTS audit_log (
		tenant_id TEXT NOT NULL,
		at TIMESTAMPTZ NOT NULL,
		payload JSONB NOT NULL,
		PRIMARY KEY (tenant_id, at)
	);`,
}
