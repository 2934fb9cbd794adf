package controller

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Riter/uni-informational-search/internal/crawler"
	"github.com/Riter/uni-informational-search/internal/hash/sha256"
	"github.com/Riter/uni-informational-search/internal/metrics"
	"github.com/Riter/uni-informational-search/internal/storage/memory"
	"github.com/Riter/uni-informational-search/internal/worker"
)

func TestMain(m *testing.M) {
	metrics.Init()
	m.Run()
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type stubFetcher struct{}

func (stubFetcher) Fetch(_ context.Context, url string) (crawler.FetchResponse, error) {
	return crawler.FetchResponse{
		URL:        url,
		StatusCode: http.StatusOK,
		Headers:    http.Header{"Content-Type": []string{"text/html"}},
		Body:       []byte("<html>" + url + "</html>"),
	}, nil
}

type allowAllRobots struct{}

func (allowAllRobots) Allowed(_ context.Context, _ string) bool { return true }

type noLinks struct{}

func (noLinks) Extract(_ []byte, _ string) ([]string, error) { return nil, nil }

func newTestController(frontier *memory.FrontierStore, documents *memory.DocumentStore, cfg Config, maxPages int) *Controller {
	clock := fixedClock{now: time.Unix(5000, 0).UTC()}
	pool := worker.New(
		frontier,
		documents,
		stubFetcher{},
		allowAllRobots{},
		noLinks{},
		sha256.New(),
		clock,
		worker.Config{
			RecrawlInterval: time.Hour,
			IdleWait:        5 * time.Millisecond,
			FetchTimeout:    time.Second,
			MaxPages:        maxPages,
		},
		zap.NewNop(),
	)
	return New(frontier, pool, clock, cfg, zap.NewNop())
}

func TestController_SeedFromStartURLs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	frontier := memory.NewFrontierStore()
	c := newTestController(frontier, memory.NewDocumentStore(), Config{
		StartURLs:      []string{"https://WWW.Example.com/a/", "https://example.com/a", "https://other.org/b", "not a url"},
		AllowedDomains: []string{"example.com"},
	}, 0)

	require.NoError(t, c.seedIfEmpty(ctx, zap.NewNop()))

	item, ok := frontier.Item("https://example.com/a")
	require.True(t, ok, "start URL should be seeded canonicalized")
	require.Equal(t, "example.com", item.SourceDomain)

	// The two spellings of /a collapse to one canonical entry.

	_, ok = frontier.Item("https://other.org/b")
	require.False(t, ok, "off-list domain must be filtered")

	count, err := frontier.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestController_SeedSkipsNonEmptyFrontier(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	frontier := memory.NewFrontierStore()
	existing := time.Unix(100, 0).UTC()
	require.NoError(t, frontier.Seed(ctx, "https://example.com/old", "example.com", existing))

	c := newTestController(frontier, memory.NewDocumentStore(), Config{
		StartURLs: []string{"https://example.com/new"},
	}, 0)

	require.NoError(t, c.seedIfEmpty(ctx, zap.NewNop()))

	_, ok := frontier.Item("https://example.com/new")
	require.False(t, ok, "non-empty frontier must not be re-seeded")

	count, err := frontier.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestController_SeedFromJSONL(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "urls.jsonl")
	content := `{"url": "https://example.com/one"}

{"url": "https://www.example.com/two/"}
not json at all
{"other": "field"}
{"url": "https://outside.org/three"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	ctx := context.Background()
	frontier := memory.NewFrontierStore()
	c := newTestController(frontier, memory.NewDocumentStore(), Config{
		StartURLs:      []string{"https://example.com/ignored-when-jsonl-set"},
		URLsJSONL:      path,
		AllowedDomains: []string{"example.com"},
	}, 0)

	require.NoError(t, c.seedIfEmpty(ctx, zap.NewNop()))

	_, ok := frontier.Item("https://example.com/one")
	require.True(t, ok)
	_, ok = frontier.Item("https://example.com/two")
	require.True(t, ok)
	_, ok = frontier.Item("https://example.com/ignored-when-jsonl-set")
	require.False(t, ok, "start URLs are ignored when a JSONL file is configured")

	count, err := frontier.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}

func TestController_SeedMissingJSONLFails(t *testing.T) {
	t.Parallel()

	frontier := memory.NewFrontierStore()
	c := newTestController(frontier, memory.NewDocumentStore(), Config{
		URLsJSONL: filepath.Join(t.TempDir(), "missing.jsonl"),
	}, 0)

	err := c.seedIfEmpty(context.Background(), zap.NewNop())
	require.Error(t, err)
	require.Contains(t, err.Error(), "open seed file")
}

func TestController_RunCrawlsUntilBudget(t *testing.T) {
	t.Parallel()

	frontier := memory.NewFrontierStore()
	documents := memory.NewDocumentStore()
	c := newTestController(frontier, documents, Config{
		StartURLs:   []string{"https://example.com/a", "https://example.com/b"},
		WorkerCount: 2,
	}, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, c.Run(ctx))
	require.Equal(t, 2, documents.Len())
}

func TestController_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	frontier := memory.NewFrontierStore()
	c := newTestController(frontier, memory.NewDocumentStore(), Config{
		StartURLs:   []string{"https://example.com/a"},
		WorkerCount: 1,
	}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx)
	}()

	// Give the run a moment to start, then cancel and expect a clean exit.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("controller did not stop after cancellation")
	}
}
