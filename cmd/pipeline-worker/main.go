// Copyright 2025 James Ross
// pipeline-worker is the job pipeline engine's process entrypoint: it
// wires config, logging, Redis, the broker, the repository, and every
// stage worker together, mirroring the teacher's single-binary
// producer/worker process split via a --role flag (§2, §4.4).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/awehrman/peas-sub008/internal/broker"
	"github.com/awehrman/peas-sub008/internal/cache"
	"github.com/awehrman/peas-sub008/internal/completion"
	"github.com/awehrman/peas-sub008/internal/config"
	"github.com/awehrman/peas-sub008/internal/fileproc"
	"github.com/awehrman/peas-sub008/internal/health"
	"github.com/awehrman/peas-sub008/internal/httpapi"
	"github.com/awehrman/peas-sub008/internal/imagestore"
	"github.com/awehrman/peas-sub008/internal/obs"
	"github.com/awehrman/peas-sub008/internal/pattern"
	"github.com/awehrman/peas-sub008/internal/pipelines"
	"github.com/awehrman/peas-sub008/internal/redisclient"
	"github.com/awehrman/peas-sub008/internal/repository"
	"github.com/awehrman/peas-sub008/internal/scheduler"
	"github.com/awehrman/peas-sub008/internal/status"
	"github.com/redis/go-redis/v9"
)

var version = "dev"

func main() {
	var configPath, role string
	var showVersion bool
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	fs.StringVar(&configPath, "config", "config/config.yaml", "Path to YAML config")
	fs.StringVar(&role, "role", "all", "Role to run: all|note|ingredient|instruction|categorization|pattern|image")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	_ = fs.Parse(os.Args[1:])

	if showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := obs.NewLogger(cfg.Observability.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	tp, err := obs.MaybeInitTracing(cfg)
	if err != nil {
		logger.Warn("tracing init failed", obs.Err(err))
	}
	if tp != nil {
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	rdb := redisclient.New(cfg)
	defer rdb.Close()

	repo, closeRepo, err := buildRepository(cfg)
	if err != nil {
		logger.Fatal("failed to open repository", obs.Err(err))
	}
	if closeRepo != nil {
		defer closeRepo()
	}
	patternStore, _ := repo.(pattern.Store)

	imgStore, err := buildImageStore(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open image store", obs.Err(err))
	}

	ch, err := cache.New(cfg.Cache.CompressMinSize)
	if err != nil {
		logger.Fatal("failed to init cache", obs.Err(err))
	}
	if err := ch.StartSweeper(fmt.Sprintf("@every %s", cfg.Cache.SweepInterval)); err != nil {
		logger.Warn("cache sweeper not started", obs.Err(err))
	}
	defer ch.Stop(context.Background())

	broadcaster := buildBroadcaster(cfg, logger)

	monitor := health.New(health.Options{
		RedisHost:         cfg.Health.RedisHost,
		RedisProbe:        redisProbe(rdb),
		QueueDegradedPct:  cfg.Health.QueueDegradedPct,
		QueueUnhealthyPct: cfg.Health.QueueUnhealthyPct,
		JobDegradedPct:    cfg.Health.JobDegradedPct,
		JobUnhealthyPct:   cfg.Health.JobUnhealthyPct,
	})

	brk := broker.New(rdb)
	completionTracker := completion.New(nil)
	ingredientTracker := completion.NewIngredientTracker()

	deps := &pipelines.Deps{
		Repo:                repo,
		PatternStore:        patternStore,
		Completion:          completionTracker,
		IngredientTracker:   ingredientTracker,
		Cache:               ch,
		CacheKeys:           cache.KeyGenerator{},
		Broker:              brk,
		ImageStore:          imgStore,
		CleanHTML:           naiveHTMLCleaner,
		ParseIngredientLine: naiveIngredientLineParser,
		DetermineCategory:   naiveCategoryDeterminer,
		FetchImage:          defaultImageFetcher,
	}
	deps.ScheduleCategorization = func(ctx context.Context, noteID, importID, originalJobID string) error {
		_, err := scheduler.ScheduleCategorizationJob(ctx, brk, noteID, importID, logger, broadcaster, originalJobID)
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go waitForShutdown(sigCh, cancel, logger)

	metricsAPI := httpapi.New(monitor)
	httpSrv := obs.StartHTTPServer(cfg, func(c context.Context) error { return rdb.Ping(c).Err() }, metricsAPI.Register)
	defer func() { _ = httpSrv.Shutdown(context.Background()) }()

	fp, err := fileproc.New(fileproc.Config{
		TempDir:         cfg.FileProcessor.TempDir,
		MaxFileSizeMB:   cfg.FileProcessor.MaxFileSizeMB,
		Concurrency:     cfg.FileProcessor.Concurrency,
		RateLimitPerSec: cfg.FileProcessor.RateLimitPerSec,
		ValidateHTML:    cfg.FileProcessor.ValidateHTML,
	}, cfg.Worker.Queues.Note, brk, ch, logger, func(evt fileproc.Event) {
		logger.Info("file processed",
			obs.String("status", string(evt.Status)),
			obs.String("file", evt.FileName))
	})
	if err != nil {
		logger.Fatal("failed to init file processor", obs.Err(err))
	}
	defer func() { _ = fp.Shutdown(context.Background()) }()

	workers, err := buildWorkers(cfg, brk, monitor, logger, broadcaster, deps)
	if err != nil {
		logger.Fatal("failed to build workers", obs.Err(err))
	}

	var active []string
	for name, w := range workers {
		if role != "all" && role != name {
			continue
		}
		active = append(active, name)
		go w.Run(ctx)
	}
	if len(active) == 0 {
		logger.Fatal("unknown role", obs.String("role", role))
	}
	logger.Info("pipeline worker started", obs.String("role", role), obs.Any("workers", active))

	go reapHourly(ctx, monitor, cfg.Health.CleanupInterval)

	<-ctx.Done()
	logger.Info("shutdown complete")
}

func waitForShutdown(sigCh chan os.Signal, cancel context.CancelFunc, logger *zap.Logger) {
	sig := <-sigCh
	logger.Info("signal received, shutting down", obs.String("signal", sig.String()))
	cancel()
	select {
	case sig2 := <-sigCh:
		logger.Warn("second signal received, exiting immediately", obs.String("signal", sig2.String()))
		os.Exit(1)
	case <-time.After(5 * time.Second):
	}
}

func reapHourly(ctx context.Context, monitor *health.Monitor, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			monitor.CleanupOldMetrics()
		}
	}
}

func redisProbe(rdb *redis.Client) health.RedisProbe {
	return func(ctx context.Context) (time.Duration, error) {
		start := time.Now()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return time.Since(start), err
		}
		return time.Since(start), nil
	}
}

func buildRepository(cfg *config.Config) (repository.Repository, func(), error) {
	switch cfg.Repository.Driver {
	case "postgres":
		pg, err := repository.OpenPostgres(cfg.Repository.DSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, func() { _ = pg.Close() }, nil
	case "sqlite":
		sl, err := repository.OpenSQLite(cfg.Repository.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return sl, func() { _ = sl.Close() }, nil
	default:
		return repository.NewInMemory(), nil, nil
	}
}

func buildImageStore(cfg *config.Config, logger *zap.Logger) (imagestore.Store, error) {
	if cfg.ImageStore.Bucket == "" {
		return imagestore.NewLocalStore(cfg.ImageStore.LocalDir, logger)
	}
	return imagestore.NewS3Store(imagestore.Config{
		Bucket:    cfg.ImageStore.Bucket,
		Region:    cfg.ImageStore.Region,
		KeyPrefix: cfg.ImageStore.Prefix,
	}, logger)
}

func buildBroadcaster(cfg *config.Config, logger *zap.Logger) status.Broadcaster {
	if cfg.Status.NATSURL == "" {
		return status.NewInMemoryBroadcaster()
	}
	nb, err := status.NewNATSBroadcaster(cfg.Status.NATSURL, cfg.Status.Subject, logger)
	if err != nil {
		logger.Warn("nats broadcaster unavailable, falling back to in-memory", obs.Err(err))
		return status.NewInMemoryBroadcaster()
	}
	return nb
}
