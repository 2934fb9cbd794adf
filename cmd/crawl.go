package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Riter/uni-informational-search/internal/config"
	"github.com/Riter/uni-informational-search/internal/controller"
	"github.com/Riter/uni-informational-search/internal/crawler"
	"github.com/Riter/uni-informational-search/internal/fetcher/collyfetcher"
	"github.com/Riter/uni-informational-search/internal/links"
	"github.com/Riter/uni-informational-search/internal/logging"
	"github.com/Riter/uni-informational-search/internal/metrics"
	"github.com/Riter/uni-informational-search/internal/ops"
	"github.com/Riter/uni-informational-search/internal/storage/memory"
	"github.com/Riter/uni-informational-search/internal/storage/postgres"
	"github.com/Riter/uni-informational-search/internal/storage/sqlite"
	"github.com/Riter/uni-informational-search/internal/worker"

	clocksystem "github.com/Riter/uni-informational-search/internal/clock/system"
	hashsha256 "github.com/Riter/uni-informational-search/internal/hash/sha256"
)

// newCrawlCmd creates the 'crawl' subcommand, which runs the crawl loop until
// the page budget is exhausted or the process is interrupted.
func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Starts the recurring crawl loop",
		Long: `Seeds the frontier on first run, then claims, fetches and stores pages
with a pool of concurrent workers. Every page is rescheduled after the
configured recrawl interval, so the loop runs until interrupted unless a
page budget is set.`,
		RunE: runCrawlCommand,
	}
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	metrics.Init()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := buildStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.close()

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Crawl.UserAgent,
		Timeout:   cfg.FetchTimeout(),
	})
	robots := crawler.NewRobotsEnforcer(cfg.Crawl.RespectRobots, cfg.Crawl.UserAgent, logger)
	clock := clocksystem.New()

	pool := worker.New(
		stores.frontier,
		stores.documents,
		fetcher,
		robots,
		links.New(),
		hashsha256.New(),
		clock,
		worker.Config{
			RecrawlInterval: cfg.RecrawlInterval(),
			RequestDelay:    cfg.RequestDelay(),
			IdleWait:        cfg.IdleWait(),
			FetchTimeout:    cfg.FetchTimeout(),
			MaxPages:        cfg.Crawl.MaxPages,
			FollowLinks:     cfg.Crawl.FollowLinks,
			AllowedDomains:  cfg.Crawl.AllowedDomains,
		},
		logger,
	)

	ctrl := controller.New(
		stores.frontier,
		pool,
		clock,
		controller.Config{
			StartURLs:      cfg.Crawl.StartURLs,
			URLsJSONL:      cfg.Crawl.URLsJSONL,
			AllowedDomains: cfg.Crawl.AllowedDomains,
			WorkerCount:    cfg.Crawl.WorkerCount,
		},
		logger,
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	if cfg.Ops.Port > 0 {
		srv := ops.NewServer(fmt.Sprintf(":%d", cfg.Ops.Port), stores.ping, logger)
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}
	g.Go(func() error {
		// Stop the ops server once the crawl itself is done.
		defer cancel()
		return ctrl.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// crawlStores bundles the configured store implementations with their
// teardown and readiness probe.
type crawlStores struct {
	frontier  crawler.FrontierStore
	documents crawler.DocumentStore
	ping      ops.Pinger
	close     func()
}

func buildStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (crawlStores, error) {
	switch cfg.DB.Driver {
	case config.DriverPostgres:
		pgCfg := postgres.Config{
			DSN:            cfg.DB.DSN,
			FrontierTable:  cfg.DB.FrontierTable,
			DocumentsTable: cfg.DB.DocumentsTable,
			MaxConns:       int32(cfg.DB.MaxConns),
		}
		frontier, err := postgres.NewFrontierStore(ctx, pgCfg)
		if err != nil {
			return crawlStores{}, fmt.Errorf("init postgres frontier store: %w", err)
		}
		documents, err := postgres.NewDocumentStore(ctx, pgCfg)
		if err != nil {
			frontier.Close()
			return crawlStores{}, fmt.Errorf("init postgres document store: %w", err)
		}
		logger.Info("using postgres stores",
			zap.String("frontier_table", cfg.DB.FrontierTable),
			zap.String("documents_table", cfg.DB.DocumentsTable),
		)
		return crawlStores{
			frontier:  frontier,
			documents: documents,
			ping: func(ctx context.Context) error {
				_, err := frontier.Count(ctx)
				return err
			},
			close: func() {
				frontier.Close()
				documents.Close()
			},
		}, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.DB.Path)
		if err != nil {
			return crawlStores{}, fmt.Errorf("init sqlite store: %w", err)
		}
		logger.Info("using sqlite stores", zap.String("path", cfg.DB.Path))
		frontier := db.FrontierStore()
		return crawlStores{
			frontier:  frontier,
			documents: db.DocumentStore(),
			ping: func(ctx context.Context) error {
				_, err := frontier.Count(ctx)
				return err
			},
			close: func() {
				if err := db.Close(); err != nil {
					logger.Warn("sqlite close failed", zap.Error(err))
				}
			},
		}, nil

	case config.DriverMemory:
		logger.Info("using in-memory stores, data will not survive a restart")
		return crawlStores{
			frontier:  memory.NewFrontierStore(),
			documents: memory.NewDocumentStore(),
			ping:      nil,
			close:     func() {},
		}, nil

	default:
		return crawlStores{}, fmt.Errorf("unknown db driver %q", cfg.DB.Driver)
	}
}
