package ops

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Riter/uni-informational-search/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.Init()
	m.Run()
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	s := NewServer(":0", nil, zap.NewNop())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestServer_ReadyzReflectsPing(t *testing.T) {
	t.Parallel()

	healthy := NewServer(":0", func(context.Context) error { return nil }, zap.NewNop())
	rec := httptest.NewRecorder()
	healthy.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	broken := NewServer(":0", func(context.Context) error { return errors.New("db down") }, zap.NewNop())
	rec = httptest.NewRecorder()
	broken.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "db down")
}

func TestServer_MetricsExposesCollectors(t *testing.T) {
	t.Parallel()

	metrics.ObservePage("success")

	s := NewServer(":0", nil, zap.NewNop())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "crawler_pages_total"))
}

func TestServer_RunShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	s := NewServer("127.0.0.1:0", nil, zap.NewNop())

	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()
	cancel()

	require.NoError(t, <-done)
}
