package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Riter/uni-informational-search/internal/crawler"
)

// FrontierStore implements crawler.FrontierStore on SQLite. Claim wraps a
// select-then-update in one transaction; combined with the single-writer
// connection pool this makes the claim indivisible.
type FrontierStore struct {
	db *sql.DB
}

// Seed inserts a pending item; existing URLs are left untouched.
func (s *FrontierStore) Seed(ctx context.Context, url, sourceDomain string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO frontier (url, source_domain, status, next_eligible_at, discovered_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (url) DO NOTHING`,
		url, sourceDomain, string(crawler.StatusPending), toUnix(now), toUnix(now),
	)
	if err != nil {
		return fmt.Errorf("seed frontier: %w", err)
	}
	return nil
}

// Claim atomically transitions the oldest eligible item to processing.
func (s *FrontierStore) Claim(ctx context.Context, now time.Time) (crawler.FrontierItem, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return crawler.FrontierItem{}, false, fmt.Errorf("begin claim tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		item         crawler.FrontierItem
		status       string
		nextEligible int64
		discovered   int64
	)
	err = tx.QueryRowContext(ctx, `
		SELECT url, source_domain, status, next_eligible_at, discovered_at, last_error
		FROM frontier
		WHERE status <> ? AND next_eligible_at <= ?
		ORDER BY discovered_at ASC
		LIMIT 1`,
		string(crawler.StatusProcessing), toUnix(now),
	).Scan(&item.URL, &item.SourceDomain, &status, &nextEligible, &discovered, &item.LastError)
	if errors.Is(err, sql.ErrNoRows) {
		return crawler.FrontierItem{}, false, nil
	}
	if err != nil {
		return crawler.FrontierItem{}, false, fmt.Errorf("select eligible item: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE frontier SET status = ? WHERE url = ?`,
		string(crawler.StatusProcessing), item.URL); err != nil {
		return crawler.FrontierItem{}, false, fmt.Errorf("mark item processing: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return crawler.FrontierItem{}, false, fmt.Errorf("commit claim: %w", err)
	}

	item.Status = crawler.StatusProcessing
	item.NextEligibleAt = fromUnix(nextEligible)
	item.DiscoveredAt = fromUnix(discovered)
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
	res, err := s.db.ExecContext(ctx, `
		UPDATE frontier SET status = ?, next_eligible_at = ?, last_error = ?
		WHERE url = ?`,
		string(status), toUnix(nextEligibleAt), lastError, url,
	)
	if err != nil {
		return fmt.Errorf("complete frontier item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete frontier item: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("url %q is not in the frontier", url)
	}
	return nil
}

// Count returns the number of frontier items.
func (s *FrontierStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM frontier`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count frontier: %w", err)
	}
	return count, nil
}

// Item returns a copy of the stored item, primarily for tests.
func (s *FrontierStore) Item(ctx context.Context, url string) (crawler.FrontierItem, bool, error) {
	var (
		item         crawler.FrontierItem
		status       string
		nextEligible int64
		discovered   int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT url, source_domain, status, next_eligible_at, discovered_at, last_error
		FROM frontier WHERE url = ?`, url,
	).Scan(&item.URL, &item.SourceDomain, &status, &nextEligible, &discovered, &item.LastError)
	if errors.Is(err, sql.ErrNoRows) {
		return crawler.FrontierItem{}, false, nil
	}
	if err != nil {
		return crawler.FrontierItem{}, false, fmt.Errorf("load frontier item: %w", err)
	}
	item.Status = crawler.FrontierStatus(status)
	item.NextEligibleAt = fromUnix(nextEligible)
	item.DiscoveredAt = fromUnix(discovered)
	return item, true, nil
}
