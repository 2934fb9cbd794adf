// Package controller seeds the frontier and manages the worker pool lifecycle.
package controller

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Riter/uni-informational-search/internal/crawler"
	"github.com/Riter/uni-informational-search/internal/worker"
)

// Config controls seeding and fan-out.
type Config struct {
	StartURLs      []string
	URLsJSONL      string
	AllowedDomains []string
	WorkerCount    int
}

// Controller owns the crawl run: it seeds the frontier once, fans out the
// workers, and waits for them to drain on budget exhaustion or cancellation.
type Controller struct {
	frontier crawler.FrontierStore
	pool     *worker.Pool
	clock    crawler.Clock
	cfg      Config
	logger   *zap.Logger
}

// New constructs a Controller.
func New(
	frontier crawler.FrontierStore,
	pool *worker.Pool,
	clock crawler.Clock,
	cfg Config,
	logger *zap.Logger,
) *Controller {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	return &Controller{
		frontier: frontier,
		pool:     pool,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run executes one crawl run and blocks until all workers have exited.
// Cancellation is cooperative: workers observe ctx between items, so
// in-flight fetches finish before Run returns.
func (c *Controller) Run(ctx context.Context) error {
	runID := uuid.NewString()
	logger := c.logger.With(zap.String("run_id", runID))

	if err := c.seedIfEmpty(ctx, logger); err != nil {
		return err
	}

	started := time.Now()
	logger.Info("starting worker pool", zap.Int("worker_count", c.cfg.WorkerCount))

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < c.cfg.WorkerCount; i++ {
		workerID := i + 1
		g.Go(func() error {
			c.pool.Run(gctx, workerID)
			return nil
		})
	}
	err := g.Wait()

	frontierSize, countErr := c.frontier.Count(context.WithoutCancel(ctx))
	if countErr != nil {
		logger.Warn("frontier count failed", zap.Error(countErr))
	}
	logger.Info("crawl run finished",
		zap.Int64("pages_completed", c.pool.Completed()),
		zap.Int64("frontier_size", frontierSize),
		zap.Duration("elapsed", time.Since(started)),
	)
	return err
}
