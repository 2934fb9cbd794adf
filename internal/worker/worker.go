// Package worker implements the crawl pipeline execution loop.
package worker

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Riter/uni-informational-search/internal/crawler"
	"github.com/Riter/uni-informational-search/internal/metrics"
)

// Config controls Pool behavior.
type Config struct {
	RecrawlInterval time.Duration
	RequestDelay    time.Duration
	IdleWait        time.Duration
	FetchTimeout    time.Duration
	MaxPages        int
	FollowLinks     bool
	AllowedDomains  []string
}

// Pool runs the per-worker claim/fetch/store loop. All workers share one
// frontier and one document store; the only coordination between them is the
// frontier's atomic claim.
type Pool struct {
	frontier  crawler.FrontierStore
	documents crawler.DocumentStore
	fetcher   crawler.Fetcher
	robots    crawler.RobotsPolicy
	links     crawler.LinkExtractor
	hasher    crawler.Hasher
	clock     crawler.Clock
	cfg       Config
	logger    *zap.Logger

	allowed   map[string]struct{}
	completed atomic.Int64
}

// New constructs a Pool.
func New(
	frontier crawler.FrontierStore,
	documents crawler.DocumentStore,
	fetcher crawler.Fetcher,
	robots crawler.RobotsPolicy,
	links crawler.LinkExtractor,
	hasher crawler.Hasher,
	clock crawler.Clock,
	cfg Config,
	logger *zap.Logger,
) *Pool {
	if cfg.IdleWait <= 0 {
		cfg.IdleWait = time.Second
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedDomains))
	for _, d := range cfg.AllowedDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		d = strings.TrimPrefix(d, "www.")
		if d != "" {
			allowed[d] = struct{}{}
		}
	}
	return &Pool{
		frontier:  frontier,
		documents: documents,
		fetcher:   fetcher,
		robots:    robots,
		links:     links,
		hasher:    hasher,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
		allowed:   allowed,
	}
}

// Completed returns the number of items handled so far across all workers.
func (p *Pool) Completed() int64 {
	return p.completed.Load()
}

// BudgetReached reports whether the configured page budget has been spent.
// A zero MaxPages means unlimited.
func (p *Pool) BudgetReached() bool {
	return p.cfg.MaxPages > 0 && p.completed.Load() >= int64(p.cfg.MaxPages)
}

// Run blocks, claiming and processing frontier items until the context is
// canceled or the page budget is reached.
func (p *Pool) Run(ctx context.Context, workerID int) {
	logger := p.logger.With(zap.Int("worker_id", workerID))
	for {
		if ctx.Err() != nil {
			return
		}
		if p.BudgetReached() {
			logger.Info("page budget reached, worker exiting")
			return
		}

		item, ok, err := p.frontier.Claim(ctx, p.clock.Now())
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			metrics.ObserveClaim("error")
			logger.Error("frontier claim failed", zap.Error(err))
			if !p.sleep(ctx, p.cfg.IdleWait) {
				return
			}
			continue
		}
		if !ok {
			metrics.ObserveClaim("empty")
			if !p.sleep(ctx, p.cfg.IdleWait) {
				return
			}
			continue
		}
		metrics.ObserveClaim("claimed")

		// Shutdown is observed between items only: a claimed item always
		// runs to completion so it can never be stranded in processing.
		metrics.IncActiveWorkers()
		p.processItem(context.WithoutCancel(ctx), item, logger)
		metrics.DecActiveWorkers()
		p.completed.Add(1)

		if !p.sleep(ctx, p.cfg.RequestDelay) {
			return
		}
	}
}

// processItem executes the fetch pipeline for one claimed item. Every exit
// path releases the item via Complete so nothing stays stuck in processing.
func (p *Pool) processItem(ctx context.Context, item crawler.FrontierItem, logger *zap.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic while processing item",
				zap.String("url", item.URL),
				zap.Any("panic", r),
			)
			p.release(ctx, item.URL, false, fmt.Sprintf("panic: %v", r), logger)
			metrics.ObservePage("failure")
		}
	}()

	if !p.robots.Allowed(ctx, item.URL) {
		logger.Info("robots disallow", zap.String("url", item.URL))
		p.release(ctx, item.URL, true, "", logger)
		metrics.ObservePage("robots_denied")
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
	resp, err := p.fetcher.Fetch(fetchCtx, item.URL)
	cancel()
	if err != nil {
		logger.Warn("fetch failed", zap.String("url", item.URL), zap.Error(err))
		p.release(ctx, item.URL, false, err.Error(), logger)
		metrics.ObservePage("failure")
		return
	}
	metrics.ObserveFetchDuration(resp.Duration)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Warn("non-2xx response",
			zap.String("url", item.URL),
			zap.Int("status", resp.StatusCode),
		)
		p.release(ctx, item.URL, false, fmt.Sprintf("HTTP %d", resp.StatusCode), logger)
		metrics.ObservePage("failure")
		return
	}

	if !resp.IsHTML() {
		logger.Debug("skipping non-HTML response",
			zap.String("url", item.URL),
			zap.String("content_type", resp.Headers.Get("Content-Type")),
		)
		p.release(ctx, item.URL, true, "", logger)
		metrics.ObservePage("non_html")
		return
	}

	if err := p.storeDocument(ctx, item, resp, logger); err != nil {
		p.release(ctx, item.URL, false, err.Error(), logger)
		metrics.ObservePage("failure")
		return
	}

	if p.cfg.FollowLinks {
		p.discoverLinks(ctx, item.URL, resp.Body, logger)
	}

	p.release(ctx, item.URL, true, "", logger)
	metrics.ObservePage("success")
}

func (p *Pool) storeDocument(
	ctx context.Context,
	item crawler.FrontierItem,
	resp crawler.FetchResponse,
	logger *zap.Logger,
) error {
	hash, err := p.hasher.Hash(resp.Body)
	if err != nil {
		return fmt.Errorf("hash body: %w", err)
	}

	doc := crawler.StoredDocument{
		URL:          item.URL,
		RawContent:   resp.Body,
		SourceDomain: item.SourceDomain,
		CrawledAt:    p.clock.Now(),
		ContentHash:  hash,
		ETag:         resp.Headers.Get("ETag"),
		LastModified: resp.Headers.Get("Last-Modified"),
	}
	outcome, err := p.documents.Upsert(ctx, doc)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	metrics.ObserveDocument(string(outcome))
	logger.Debug("document stored",
		zap.String("url", item.URL),
		zap.String("outcome", string(outcome)),
	)
	return nil
}

// discoverLinks seeds newly found anchors. Extraction or seeding failures are
// logged and swallowed so a bad link never fails the page it came from.
func (p *Pool) discoverLinks(ctx context.Context, pageURL string, body []byte, logger *zap.Logger) {
	found, err := p.links.Extract(body, pageURL)
	if err != nil {
		logger.Warn("link extraction failed", zap.String("url", pageURL), zap.Error(err))
		return
	}

	now := p.clock.Now()
	seeded := 0
	for _, raw := range found {
		link := crawler.Canonicalize(raw)
		domain := crawler.DomainOf(link)
		if domain == "" {
			continue
		}
		if len(p.allowed) > 0 {
			if _, ok := p.allowed[domain]; !ok {
				continue
			}
		}
		if err := p.frontier.Seed(ctx, link, domain, now); err != nil {
			logger.Warn("seed discovered link failed", zap.String("url", link), zap.Error(err))
			continue
		}
		seeded++
	}
	if seeded > 0 {
		logger.Debug("links discovered",
			zap.String("url", pageURL),
			zap.Int("seeded", seeded),
		)
	}
}

// release reschedules an item after the recrawl interval regardless of
// outcome, so no URL is ever left in processing.
func (p *Pool) release(ctx context.Context, url string, success bool, lastError string, logger *zap.Logger) {
	next := p.clock.Now().Add(p.cfg.RecrawlInterval)
	if err := p.frontier.Complete(ctx, url, success, next, lastError); err != nil {
		logger.Error("frontier complete failed", zap.String("url", url), zap.Error(err))
	}
}

// sleep waits for d or until ctx finishes, reporting false on cancellation.
func (p *Pool) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
