package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Riter/uni-informational-search/internal/crawler"
)

// FrontierStore implements crawler.FrontierStore on Postgres. The claim step
// is a single UPDATE with a FOR UPDATE SKIP LOCKED subselect, so concurrent
// workers can never receive the same item.
type FrontierStore struct {
	pool  Pool
	table string
}

// NewFrontierStore creates a Postgres-backed FrontierStore and ensures its
// schema exists.
func NewFrontierStore(ctx context.Context, cfg Config) (*FrontierStore, error) {
	pool, err := connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store, err := NewFrontierStoreWithPool(pool, cfg.FrontierTable)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := store.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewFrontierStoreWithPool constructs a store from an existing pool
// (primarily for testing). It does not create the schema.
func NewFrontierStoreWithPool(pool Pool, table string) (*FrontierStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table, "frontier")
	if err != nil {
		return nil, err
	}
	return &FrontierStore{pool: pool, table: name}, nil
}

// Close releases the underlying pool resources.
func (s *FrontierStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *FrontierStore) ensureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	url TEXT PRIMARY KEY,
	source_domain TEXT NOT NULL,
	status TEXT NOT NULL,
	next_eligible_at TIMESTAMPTZ NOT NULL,
	discovered_at TIMESTAMPTZ NOT NULL,
	last_error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS %[1]s_claim_idx ON %[1]s (status, next_eligible_at, discovered_at)`, s.table)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create frontier schema: %w", err)
	}
	return nil
}

// Seed inserts a pending item; existing URLs are left untouched.
func (s *FrontierStore) Seed(ctx context.Context, url, sourceDomain string, now time.Time) error {
	query := fmt.Sprintf(`
INSERT INTO %s (url, source_domain, status, next_eligible_at, discovered_at)
VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (url) DO NOTHING`, s.table)
	if _, err := s.pool.Exec(ctx, query, url, sourceDomain, crawler.StatusPending, now); err != nil {
		return fmt.Errorf("seed frontier: %w", err)
	}
	return nil
}

// Claim atomically transitions the oldest eligible item to processing.
func (s *FrontierStore) Claim(ctx context.Context, now time.Time) (crawler.FrontierItem, bool, error) {
	query := fmt.Sprintf(`
UPDATE %[1]s SET status = $1
WHERE url = (
	SELECT url FROM %[1]s
	WHERE status <> $1 AND next_eligible_at <= $2
	ORDER BY discovered_at ASC
	LIMIT 1
	FOR UPDATE SKIP LOCKED
)
RETURNING url, source_domain, status, next_eligible_at, discovered_at, last_error`, s.table)

	var item crawler.FrontierItem
	err := s.pool.QueryRow(ctx, query, crawler.StatusProcessing, now).Scan(
		&item.URL,
		&item.SourceDomain,
		&item.Status,
		&item.NextEligibleAt,
		&item.DiscoveredAt,
		&item.LastError,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return crawler.FrontierItem{}, false, nil
	}
	if err != nil {
		return crawler.FrontierItem{}, false, fmt.Errorf("claim frontier item: %w", err)
	}
	return item, true, nil
}

// Complete reschedules an item after processing.
func (s *FrontierStore) Complete(ctx context.Context, url string, success bool, nextEligibleAt time.Time, lastError string) error {
	status := crawler.StatusPending
	if !success {
		status = crawler.StatusError
	} else {
		lastError = ""
	}
	query := fmt.Sprintf(`
UPDATE %s SET status = $2, next_eligible_at = $3, last_error = $4
WHERE url = $1`, s.table)
	tag, err := s.pool.Exec(ctx, query, url, status, nextEligibleAt, lastError)
	if err != nil {
		return fmt.Errorf("complete frontier item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("url %q is not in the frontier", url)
	}
	return nil
}

// Count returns the number of frontier items.
func (s *FrontierStore) Count(ctx context.Context) (int64, error) {
	var count int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)
	if err := s.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count frontier: %w", err)
	}
	return count, nil
}
