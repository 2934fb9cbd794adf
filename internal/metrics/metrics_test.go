package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if crawlerPagesTotal == nil || crawlerDocumentsTotal == nil ||
		crawlerFrontierClaimsTotal == nil || crawlerFetchDurationSeconds == nil ||
		crawlerActiveWorkers == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}

	ObservePage("success")
	if val := testutil.ToFloat64(crawlerPagesTotal.WithLabelValues("success")); val != 1 {
		t.Errorf("Expected crawler_pages_total{outcome=success} to be 1, got %f", val)
	}

	ObserveDocument("created")
	if val := testutil.ToFloat64(crawlerDocumentsTotal.WithLabelValues("created")); val != 1 {
		t.Errorf("Expected crawler_documents_total{outcome=created} to be 1, got %f", val)
	}

	IncActiveWorkers()
	IncActiveWorkers()
	DecActiveWorkers()
	if val := testutil.ToFloat64(crawlerActiveWorkers); val != 1 {
		t.Errorf("Expected crawler_active_workers to be 1, got %f", val)
	}
}
