package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Riter/uni-informational-search/internal/crawler"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "crawl.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
	return db
}

func TestFrontierLifecycle(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	store := db.FrontierStore()
	ctx := context.Background()
	base := time.Unix(1000, 0).UTC()

	require.NoError(t, store.Seed(ctx, "https://example.com/b", "example.com", base.Add(time.Second)))
	require.NoError(t, store.Seed(ctx, "https://example.com/a", "example.com", base))
	// Duplicate seeds are no-ops.
	require.NoError(t, store.Seed(ctx, "https://example.com/a", "example.com", base.Add(time.Hour)))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	// Oldest discovered first.
	item, ok, err := store.Claim(ctx, base.Add(time.Minute))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "https://example.com/a", item.URL)
	require.Equal(t, crawler.StatusProcessing, item.Status)
	require.Equal(t, base, item.DiscoveredAt)

	// The claimed item is not claimable again.
	item, ok, err = store.Claim(ctx, base.Add(time.Minute))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "https://example.com/b", item.URL)

	_, ok, err = store.Claim(ctx, base.Add(time.Minute))
	require.NoError(t, err)
	require.False(t, ok)

	// Complete success returns the item to pending with a future slot.
	next := base.Add(time.Hour)
	require.NoError(t, store.Complete(ctx, "https://example.com/a", true, next, ""))

	got, found, err := store.Item(ctx, "https://example.com/a")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, crawler.StatusPending, got.Status)
	require.Equal(t, next, got.NextEligibleAt)

	// Not eligible until the delay passes.
	_, ok, err = store.Claim(ctx, next.Add(-time.Second))
	require.NoError(t, err)
	require.False(t, ok)

	item, ok, err = store.Claim(ctx, next)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "https://example.com/a", item.URL)

	// Complete failure records the error and stays reclaimable.
	require.NoError(t, store.Complete(ctx, "https://example.com/a", false, next.Add(time.Hour), "HTTP 500"))
	got, found, err = store.Item(ctx, "https://example.com/a")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, crawler.StatusError, got.Status)
	require.Equal(t, "HTTP 500", got.LastError)

	item, ok, err = store.Claim(ctx, next.Add(2*time.Hour))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "https://example.com/a", item.URL)

	// Completing an unknown URL fails loudly.
	require.Error(t, store.Complete(ctx, "https://example.com/ghost", true, next, ""))
}

func TestDocumentUpsertOutcomes(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	store := db.DocumentStore()
	ctx := context.Background()
	first := time.Unix(100, 0).UTC()

	doc := crawler.StoredDocument{
		URL:          "https://example.com/p",
		RawContent:   []byte("<html>v1</html>"),
		SourceDomain: "example.com",
		CrawledAt:    first,
		ContentHash:  "hash-v1",
		ETag:         `"v1"`,
		LastModified: "Mon, 02 Jan 2006 15:04:05 GMT",
	}

	outcome, err := store.Upsert(ctx, doc)
	require.NoError(t, err)
	require.Equal(t, crawler.UpsertCreated, outcome)

	refetch := doc
	refetch.CrawledAt = first.Add(time.Hour)
	outcome, err = store.Upsert(ctx, refetch)
	require.NoError(t, err)
	require.Equal(t, crawler.UpsertUnchanged, outcome)

	got, found, err := store.Document(ctx, doc.URL)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, first.Add(time.Hour), got.CrawledAt)
	require.Equal(t, "hash-v1", got.ContentHash)
	require.Equal(t, []byte("<html>v1</html>"), got.RawContent)

	changed := doc
	changed.RawContent = []byte("<html>v2</html>")
	changed.ContentHash = "hash-v2"
	changed.ETag = `"v2"`
	changed.CrawledAt = first.Add(2 * time.Hour)
	outcome, err = store.Upsert(ctx, changed)
	require.NoError(t, err)
	require.Equal(t, crawler.UpsertUpdated, outcome)

	got, found, err = store.Document(ctx, doc.URL)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "hash-v2", got.ContentHash)
	require.Equal(t, []byte("<html>v2</html>"), got.RawContent)
	require.Equal(t, `"v2"`, got.ETag)
}

func TestOpenCreatesDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "dir", "crawl.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}
