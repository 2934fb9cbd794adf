package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Riter/uni-informational-search/internal/crawler"
)

// DocumentStore implements crawler.DocumentStore on SQLite.
type DocumentStore struct {
	db *sql.DB
}

// Upsert stores doc, deduplicating by content hash.
func (s *DocumentStore) Upsert(ctx context.Context, doc crawler.StoredDocument) (crawler.UpsertOutcome, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existingHash string
	err = tx.QueryRowContext(ctx,
		`SELECT content_hash FROM documents WHERE url = ?`, doc.URL,
	).Scan(&existingHash)

	var outcome crawler.UpsertOutcome
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `
			INSERT INTO documents (url, raw_content, source_domain, crawled_at, content_hash, etag, last_modified)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			doc.URL, doc.RawContent, doc.SourceDomain, toUnix(doc.CrawledAt),
			doc.ContentHash, doc.ETag, doc.LastModified,
		)
		outcome = crawler.UpsertCreated
	case err != nil:
		return "", fmt.Errorf("load existing document: %w", err)
	case existingHash == doc.ContentHash:
		_, err = tx.ExecContext(ctx,
			`UPDATE documents SET crawled_at = ? WHERE url = ?`,
			toUnix(doc.CrawledAt), doc.URL,
		)
		outcome = crawler.UpsertUnchanged
	default:
		_, err = tx.ExecContext(ctx, `
			UPDATE documents
			SET raw_content = ?, source_domain = ?, crawled_at = ?, content_hash = ?, etag = ?, last_modified = ?
			WHERE url = ?`,
			doc.RawContent, doc.SourceDomain, toUnix(doc.CrawledAt),
			doc.ContentHash, doc.ETag, doc.LastModified, doc.URL,
		)
		outcome = crawler.UpsertUpdated
	}
	if err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit upsert: %w", err)
	}
	return outcome, nil
}

// Document returns a stored snapshot, primarily for tests.
func (s *DocumentStore) Document(ctx context.Context, url string) (crawler.StoredDocument, bool, error) {
	var (
		doc       crawler.StoredDocument
		crawledAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT url, raw_content, source_domain, crawled_at, content_hash, etag, last_modified
		FROM documents WHERE url = ?`, url,
	).Scan(&doc.URL, &doc.RawContent, &doc.SourceDomain, &crawledAt,
		&doc.ContentHash, &doc.ETag, &doc.LastModified)
	if errors.Is(err, sql.ErrNoRows) {
		return crawler.StoredDocument{}, false, nil
	}
	if err != nil {
		return crawler.StoredDocument{}, false, fmt.Errorf("load document: %w", err)
	}
	doc.CrawledAt = fromUnix(crawledAt)
	return doc, true, nil
}
