// Package memory provides in-memory store implementations for tests and
// single-run development crawls.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Riter/uni-informational-search/internal/crawler"
)

// FrontierStore implements crawler.FrontierStore behind a single mutex. The
// mutex makes claim-and-transition one indivisible step, mirroring the
// conditional update the durable backends rely on.
type FrontierStore struct {
	mu    sync.Mutex
	items map[string]*crawler.FrontierItem
}

// NewFrontierStore constructs an empty FrontierStore.
func NewFrontierStore() *FrontierStore {
	return &FrontierStore{
		items: make(map[string]*crawler.FrontierItem),
	}
}

// Seed inserts a pending item unless the URL is already known.
func (s *FrontierStore) Seed(_ context.Context, url, sourceDomain string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[url]; exists {
		return nil
	}
	s.items[url] = &crawler.FrontierItem{
		URL:            url,
		SourceDomain:   sourceDomain,
		Status:         crawler.StatusPending,
		NextEligibleAt: now,
		DiscoveredAt:   now,
	}
	return nil
}

// Claim atomically marks the oldest-discovered eligible item as processing
// and returns it. Items in the error state are reclaimable like pending ones.
func (s *FrontierStore) Claim(_ context.Context, now time.Time) (crawler.FrontierItem, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *crawler.FrontierItem
	for _, item := range s.items {
		if item.Status == crawler.StatusProcessing {
			continue
		}
		if item.NextEligibleAt.After(now) {
			continue
		}
		if best == nil || claimBefore(item, best) {
			best = item
		}
	}
	if best == nil {
		return crawler.FrontierItem{}, false, nil
	}
	best.Status = crawler.StatusProcessing
	return *best, true, nil
}

// claimBefore orders candidates oldest-discovered first, with the URL as a
// deterministic tie-break.
func claimBefore(a, b *crawler.FrontierItem) bool {
	if !a.DiscoveredAt.Equal(b.DiscoveredAt) {
		return a.DiscoveredAt.Before(b.DiscoveredAt)
	}
	return a.URL < b.URL
}

// Complete reschedules an item after processing.
func (s *FrontierStore) Complete(_ context.Context, url string, success bool, nextEligibleAt time.Time, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[url]
	if !ok {
		return fmt.Errorf("url %q is not in the frontier", url)
	}
	item.NextEligibleAt = nextEligibleAt
	if success {
		item.Status = crawler.StatusPending
		item.LastError = ""
	} else {
		item.Status = crawler.StatusError
		item.LastError = lastError
	}
	return nil
}

// Count returns the number of items in the frontier.
func (s *FrontierStore) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.items)), nil
}

// Item returns a copy of the stored item, primarily for tests.
func (s *FrontierStore) Item(url string) (crawler.FrontierItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[url]
	if !ok {
		return crawler.FrontierItem{}, false
	}
	return *item, true
}
