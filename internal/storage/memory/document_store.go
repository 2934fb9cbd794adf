package memory

import (
	"context"
	"sync"

	"github.com/Riter/uni-informational-search/internal/crawler"
)

// DocumentStore implements crawler.DocumentStore in memory.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]crawler.StoredDocument
}

// NewDocumentStore constructs an empty DocumentStore.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		docs: make(map[string]crawler.StoredDocument),
	}
}

// Upsert stores doc, deduplicating by content hash.
func (s *DocumentStore) Upsert(_ context.Context, doc crawler.StoredDocument) (crawler.UpsertOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.docs[doc.URL]
	if !ok {
		s.docs[doc.URL] = doc
		return crawler.UpsertCreated, nil
	}
	if existing.ContentHash == doc.ContentHash {
		existing.CrawledAt = doc.CrawledAt
		s.docs[doc.URL] = existing
		return crawler.UpsertUnchanged, nil
	}
	s.docs[doc.URL] = doc
	return crawler.UpsertUpdated, nil
}

// Document returns a copy of the stored snapshot, primarily for tests.
func (s *DocumentStore) Document(url string) (crawler.StoredDocument, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[url]
	return doc, ok
}

// Len returns the number of stored documents.
func (s *DocumentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
