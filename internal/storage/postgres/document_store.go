package postgres

import (
	"context"
	"fmt"

	"github.com/Riter/uni-informational-search/internal/crawler"
)

// DocumentStore implements crawler.DocumentStore on Postgres. The upsert is
// one statement: a CTE captures the prior content hash so the outcome
// (created, unchanged, updated) comes back with the write.
type DocumentStore struct {
	pool  Pool
	table string
}

// NewDocumentStore creates a Postgres-backed DocumentStore and ensures its
// schema exists.
func NewDocumentStore(ctx context.Context, cfg Config) (*DocumentStore, error) {
	pool, err := connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store, err := NewDocumentStoreWithPool(pool, cfg.DocumentsTable)
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

// NewDocumentStoreWithPool constructs a store from an existing pool
// (primarily for testing). It does not create the schema.
func NewDocumentStoreWithPool(pool Pool, table string) (*DocumentStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table, "documents")
	if err != nil {
		return nil, err
	}
	return &DocumentStore{pool: pool, table: name}, nil
}

// Close releases the underlying pool resources.
func (s *DocumentStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *DocumentStore) ensureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	url TEXT PRIMARY KEY,
	raw_content BYTEA NOT NULL,
	source_domain TEXT NOT NULL,
	crawled_at TIMESTAMPTZ NOT NULL,
	content_hash TEXT NOT NULL,
	etag TEXT NOT NULL DEFAULT '',
	last_modified TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS %[1]s_domain_idx ON %[1]s (source_domain);
CREATE INDEX IF NOT EXISTS %[1]s_crawled_idx ON %[1]s (crawled_at)`, s.table)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create documents schema: %w", err)
	}
	return nil
}

// Upsert stores doc, deduplicating by content hash: when the hash matches
// the stored row, only crawled_at is rewritten.
func (s *DocumentStore) Upsert(ctx context.Context, doc crawler.StoredDocument) (crawler.UpsertOutcome, error) {
	query := fmt.Sprintf(`
WITH existing AS (
	SELECT content_hash FROM %[1]s WHERE url = $1
), upserted AS (
	INSERT INTO %[1]s (url, raw_content, source_domain, crawled_at, content_hash, etag, last_modified)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (url) DO UPDATE SET
		raw_content = CASE WHEN %[1]s.content_hash = EXCLUDED.content_hash THEN %[1]s.raw_content ELSE EXCLUDED.raw_content END,
		etag = CASE WHEN %[1]s.content_hash = EXCLUDED.content_hash THEN %[1]s.etag ELSE EXCLUDED.etag END,
		last_modified = CASE WHEN %[1]s.content_hash = EXCLUDED.content_hash THEN %[1]s.last_modified ELSE EXCLUDED.last_modified END,
		content_hash = EXCLUDED.content_hash,
		source_domain = EXCLUDED.source_domain,
		crawled_at = EXCLUDED.crawled_at
)
SELECT CASE
	WHEN NOT EXISTS (SELECT 1 FROM existing) THEN 'created'
	WHEN (SELECT content_hash FROM existing) = $5 THEN 'unchanged'
	ELSE 'updated'
END`, s.table)

	var outcome string
	err := s.pool.QueryRow(ctx, query,
		doc.URL,
		doc.RawContent,
		doc.SourceDomain,
		doc.CrawledAt,
		doc.ContentHash,
		doc.ETag,
		doc.LastModified,
	).Scan(&outcome)
	if err != nil {
		return "", fmt.Errorf("upsert document: %w", err)
	}
	return crawler.UpsertOutcome(outcome), nil
}
