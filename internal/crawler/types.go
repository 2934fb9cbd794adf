// Package crawler defines core types shared across subsystems.
package crawler

import (
	"net/http"
	"strings"
	"time"
)

// FrontierStatus represents the lifecycle state of a frontier item.
type FrontierStatus string

// Frontier status values persisted in the frontier store. There is no
// terminal state: items cycle back to pending forever.
const (
	StatusPending    FrontierStatus = "pending"
	StatusProcessing FrontierStatus = "processing"
	StatusError      FrontierStatus = "error"
)

// FrontierItem is one crawl target with its scheduling metadata. URL is
// canonical and unique within the frontier store.
type FrontierItem struct {
	URL            string         `json:"url"`
	SourceDomain   string         `json:"source_domain"`
	Status         FrontierStatus `json:"status"`
	NextEligibleAt time.Time      `json:"next_eligible_at"`
	DiscoveredAt   time.Time      `json:"discovered_at"`
	LastError      string         `json:"last_error,omitempty"`
}

// StoredDocument is the snapshot persisted for each fetched page, keyed by
// canonical URL. ContentHash always reflects RawContent as of CrawledAt.
type StoredDocument struct {
	URL          string    `json:"url"`
	RawContent   []byte    `json:"raw_content"`
	SourceDomain string    `json:"source_domain"`
	CrawledAt    time.Time `json:"crawled_at"`
	ContentHash  string    `json:"content_hash"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
}

// UpsertOutcome reports what a document upsert did.
type UpsertOutcome string

// Upsert outcomes.
const (
	UpsertCreated   UpsertOutcome = "created"
	UpsertUnchanged UpsertOutcome = "unchanged"
	UpsertUpdated   UpsertOutcome = "updated"
)

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// IsHTML reports whether the response declares an HTML content type.
func (r FetchResponse) IsHTML() bool {
	if r.Headers == nil {
		return false
	}
	ct := r.Headers.Get("Content-Type")
	return strings.Contains(strings.ToLower(ct), "text/html")
}
