package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRobotsEnforcer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	logger := zap.NewNop()

	allowAll := NewRobotsEnforcer(false, "test-agent", logger)
	require.True(t, allowAll.Allowed(ctx, "https://example.com/whatever"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fmt.Fprintln(w, "User-agent: *\nDisallow: /blocked")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	enforcer := NewRobotsEnforcer(true, "test-agent", logger)
	require.True(t, enforcer.Allowed(ctx, srv.URL+"/allowed"))
	require.False(t, enforcer.Allowed(ctx, srv.URL+"/blocked"))
}

func TestRobotsEnforcerFetchesOncePerDomain(t *testing.T) {
	t.Parallel()

	var robotsHits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			robotsHits.Add(1)
			fmt.Fprintln(w, "User-agent: *\nDisallow: /private")
		}
	}))
	defer srv.Close()

	enforcer := NewRobotsEnforcer(true, "test-agent", zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.True(t, enforcer.Allowed(ctx, srv.URL+"/public"))
		require.False(t, enforcer.Allowed(ctx, srv.URL+"/private"))
	}
	require.Equal(t, int64(1), robotsHits.Load())
}

func TestRobotsEnforcerFailOpenOnFetchError(t *testing.T) {
	t.Parallel()

	// Point at a server that is already closed so the fetch fails.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	base := srv.URL
	srv.Close()

	enforcer := NewRobotsEnforcer(true, "test-agent", zap.NewNop())
	ctx := context.Background()

	require.True(t, enforcer.Allowed(ctx, base+"/anything"))
	// The allow-all fallback is cached, so concurrent lookups stay cheap and
	// consistent.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.True(t, enforcer.Allowed(ctx, base+"/anything/else"))
		}()
	}
	wg.Wait()
}

func TestRobotsEnforcerMalformedURL(t *testing.T) {
	t.Parallel()

	enforcer := NewRobotsEnforcer(true, "test-agent", zap.NewNop())
	require.False(t, enforcer.Allowed(context.Background(), "https://%zz invalid"))
}
