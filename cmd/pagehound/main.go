// Package main wires together the crawl service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcpubsub "cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/pagehound/pagehound/internal/api"
	"github.com/pagehound/pagehound/internal/clock"
	"github.com/pagehound/pagehound/internal/config"
	"github.com/pagehound/pagehound/internal/crawler"
	"github.com/pagehound/pagehound/internal/dispatcher"
	collyfetcher "github.com/pagehound/pagehound/internal/fetcher/colly"
	"github.com/pagehound/pagehound/internal/fetcher/headless"
	"github.com/pagehound/pagehound/internal/hash"
	"github.com/pagehound/pagehound/internal/id"
	memoryledger "github.com/pagehound/pagehound/internal/ledger/memory"
	pubsubledger "github.com/pagehound/pagehound/internal/ledger/pubsub"
	"github.com/pagehound/pagehound/internal/logging"
	"github.com/pagehound/pagehound/internal/persister"
	"github.com/pagehound/pagehound/internal/policy/ratelimit"
	queuememory "github.com/pagehound/pagehound/internal/queue/memory"
	gcsstorage "github.com/pagehound/pagehound/internal/storage/gcs"
	localstorage "github.com/pagehound/pagehound/internal/storage/local"
	memorystorage "github.com/pagehound/pagehound/internal/storage/memory"
	memorystore "github.com/pagehound/pagehound/internal/store/memory"
	postgresstore "github.com/pagehound/pagehound/internal/store/postgres"
	"github.com/pagehound/pagehound/internal/worker"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("service exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	objects, err := buildObjectStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build object store: %w", err)
	}
	jobStore, closeJobStore, err := buildJobStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build job store: %w", err)
	}
	defer closeJobStore()
	ledger, closeLedger, err := buildLedger(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build ledger: %w", err)
	}
	defer closeLedger()

	fetchers := buildFetchers(cfg, logger)
	queue := queuememory.NewQueue(cfg.Crawl.QueueDepth)
	defer queue.Close()

	hasher := hash.NewSHA256()
	clk := clock.NewSystem()
	idGen := id.NewUUIDGenerator()
	cancels := worker.NewCanceller()
	limiter := ratelimit.New(cfg.RateLimit)

	workerCfg := worker.Config{
		Tiers:        cfg.Tiers,
		Completeness: cfg.Completeness,
		Persist: persister.Config{
			MaxStoreRetries: cfg.Persist.MaxStoreRetries,
			RetryBackoff:    cfg.Persist.RetryBackoff,
		},
	}

	var workers []*worker.Worker
	for i := 0; i < cfg.Crawl.Concurrency; i++ {
		workers = append(workers, worker.New(
			queue,
			jobStore,
			objects,
			ledger,
			hasher,
			clk,
			fetchers,
			limiter,
			cancels,
			workerCfg,
			logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	dispatch := dispatcher.New(queue, workers)

	apiServer := api.NewServer(jobStore, dispatch, cancels, idGen, clk, cfg, logger.Named("api"))
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go dispatch.Run(ctx)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
	logger.Info("service stopped")
	return nil
}

func buildObjectStore(ctx context.Context, cfg config.Config) (crawler.ObjectStore, error) {
	switch cfg.Storage.Provider {
	case "memory":
		return memorystorage.NewObjectStore(), nil
	case "local":
		return localstorage.New(localstorage.Config{BaseDir: cfg.Storage.LocalDir})
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client: %w", err)
		}
		return gcsstorage.New(client, gcsstorage.Config{Bucket: cfg.Storage.GCSBucket})
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}

func buildJobStore(ctx context.Context, cfg config.Config) (crawler.JobStore, func(), error) {
	switch cfg.Database.Provider {
	case "memory":
		return memorystore.NewJobStore(), func() {}, nil
	case "postgres":
		store, err := postgresstore.NewJobStore(ctx, postgresstore.Config{
			DSN:             cfg.Database.DSN,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown database provider %q", cfg.Database.Provider)
	}
}

func buildLedger(ctx context.Context, cfg config.Config) (crawler.Ledger, func(), error) {
	switch cfg.Ledger.Provider {
	case "memory":
		return memoryledger.New(), func() {}, nil
	case "pubsub":
		client, err := gcpubsub.NewClient(ctx, cfg.Ledger.ProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("pubsub client: %w", err)
		}
		led, err := pubsubledger.New(client, pubsubledger.Config{
			ProgressTopic: cfg.Ledger.ProgressTopic,
			TerminalTopic: cfg.Ledger.TerminalTopic,
		})
		if err != nil {
			return nil, nil, err
		}
		return led, led.Stop, nil
	default:
		return nil, nil, fmt.Errorf("unknown ledger provider %q", cfg.Ledger.Provider)
	}
}

// buildFetchers constructs one fetcher per configured tier. Rendering tiers
// fall back to a stub when headless Chrome is disabled or unavailable, which
// the escalator treats as an ordinary tier failure.
func buildFetchers(cfg config.Config, logger *zap.Logger) []crawler.Fetcher {
	fetchers := make([]crawler.Fetcher, 0, len(cfg.Tiers))
	for _, tier := range cfg.Tiers {
		if !tier.Render {
			fetchers = append(fetchers, collyfetcher.New(collyfetcher.Config{
				UserAgent:     cfg.Crawl.UserAgent,
				RespectRobots: cfg.Crawl.RespectRobots,
				Timeout:       tier.Timeout,
			}))
			continue
		}
		if !cfg.Headless.Enabled {
			fetchers = append(fetchers, headless.NewNoop())
			continue
		}
		hf, err := headless.NewChromedp(headless.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.Crawl.UserAgent,
			NavigationTimeout: cfg.Headless.NavTimeout,
			ProxyURL:          cfg.Headless.ProxyURL,
			Stealth:           tier.ProxyClass != "",
			DefaultWait:       tier.Wait,
		})
		if err != nil {
			logger.Warn("headless fetcher init failed, tier degraded",
				zap.String("tier", tier.Name), zap.Error(err))
			fetchers = append(fetchers, headless.NewNoop())
			continue
		}
		fetchers = append(fetchers, hf)
	}
	return fetchers
}
