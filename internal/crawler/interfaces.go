package crawler

import (
	"context"
	"time"
)

// FrontierStore persists crawl targets and their scheduling state. Claim is
// the correctness-critical primitive: it must atomically select one eligible
// item and mark it processing, so no two callers ever receive the same item.
type FrontierStore interface {
	// Seed inserts a pending item if the URL is not already known.
	// Re-seeding an existing URL is a no-op (first write wins).
	Seed(ctx context.Context, url, sourceDomain string, now time.Time) error

	// Claim atomically takes exclusive ownership of the oldest-discovered
	// item whose status is pending (or error) and whose NextEligibleAt has
	// passed. The second return value is false when nothing is eligible.
	Claim(ctx context.Context, now time.Time) (FrontierItem, bool, error)

	// Complete releases an item back to the queue: status becomes pending on
	// success or error on failure, and NextEligibleAt moves to nextEligibleAt.
	Complete(ctx context.Context, url string, success bool, nextEligibleAt time.Time, lastError string) error

	// Count returns the number of items in the frontier.
	Count(ctx context.Context) (int64, error)
}

// DocumentStore persists page snapshots keyed by canonical URL.
type DocumentStore interface {
	// Upsert stores doc, deduplicating by content hash: an existing record
	// with the same hash only has its CrawledAt advanced.
	Upsert(ctx context.Context, doc StoredDocument) (UpsertOutcome, error)
}

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResponse, error)
}

// RobotsPolicy decides whether a URL may be fetched.
type RobotsPolicy interface {
	Allowed(ctx context.Context, rawURL string) bool
}

// LinkExtractor returns the absolute anchor targets found in an HTML body,
// resolved against baseURL.
type LinkExtractor interface {
	Extract(body []byte, baseURL string) ([]string, error)
}

// Hasher computes content fingerprints for change detection.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
