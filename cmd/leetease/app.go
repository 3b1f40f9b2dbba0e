package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/leetease/catalog-engine/internal/api"
	"github.com/leetease/catalog-engine/internal/catalog"
	"github.com/leetease/catalog-engine/internal/config"
	"github.com/leetease/catalog-engine/internal/health"
	"github.com/leetease/catalog-engine/internal/importer"
	"github.com/leetease/catalog-engine/internal/judge"
	"github.com/leetease/catalog-engine/internal/models"
	"github.com/leetease/catalog-engine/internal/progress"
	"github.com/leetease/catalog-engine/internal/reconcile"
	"github.com/leetease/catalog-engine/internal/stats"
	"github.com/leetease/catalog-engine/internal/storage"
	"github.com/leetease/catalog-engine/internal/worker"
)

// app holds the wired services shared by every command
type app struct {
	cfg       *config.Config
	repo      storage.Repository
	redis     *redis.Client
	pool      *worker.Pool
	services  api.Services
	scheduler *reconcile.Scheduler
	closers   []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.repo = repo
	a.closers = append(a.closers, repo.Close)

	registry := health.NewRegistry(0)
	registry.Register("storage", health.CheckerFunc(repo.Ping))

	if cfg.Storage.Driver == config.DriverPostgres {
		checker, err := health.NewPostgresChecker(cfg.Database.DSN)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create postgres checker: %w", err)
		}
		registry.Register("postgres", checker)
		a.closers = append(a.closers, checker.Close)
	}

	var (
		globalCache  stats.Cache[models.UserStats]
		companyCache stats.Cache[[]models.BucketProgress]
	)
	if cfg.Redis.Enabled {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, a.redis.Close)
		registry.Register("redis", health.NewRedisChecker(a.redis))

		globalCache = stats.NewRedisCache[models.UserStats](a.redis, "leetease:stats:", cfg.Cache.TTL)
		companyCache = stats.NewRedisCache[[]models.BucketProgress](a.redis, "leetease:company:", cfg.Cache.TTL)
		slog.Info("stats cache backed by redis", "addr", cfg.Redis.Address)
	} else {
		globalCache = stats.NewLRUCache[models.UserStats](cfg.Cache.Size, cfg.Cache.TTL)
		companyCache = stats.NewLRUCache[[]models.BucketProgress](cfg.Cache.Size, cfg.Cache.TTL)
	}

	judgeClient := judge.NewClient(judge.Config{
		BaseURL: cfg.Judge.BaseURL,
		Timeout: cfg.Judge.Timeout,
		RPS:     cfg.Judge.RPS,
		Burst:   cfg.Judge.Burst,
	})

	statsSvc := stats.NewService(repo, globalCache, companyCache)
	catalogSvc := catalog.NewService(repo, repo, judgeClient, catalog.Options{
		BackfillWorkers: cfg.Sync.Concurrency,
	})

	a.pool = worker.NewPool(cfg.Sync.Workers, cfg.Sync.QueueSize, cfg.Sync.TaskTimeout)
	a.scheduler = reconcile.NewScheduler(
		reconcile.NewService(repo, judgeClient, statsSvc),
		repo,
		a.pool,
		cfg.Sync.Concurrency,
	)

	a.services = api.Services{
		Catalog:  catalogSvc,
		Progress: progress.NewService(repo, repo, statsSvc),
		Stats:    statsSvc,
		Sync:     a.scheduler,
		Importer: importer.New(catalogSvc),
		Health:   registry,
	}

	return a, nil
}

func openRepository(ctx context.Context, cfg *config.Config) (storage.Repository, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		slog.Warn("using in-memory storage, data is lost on exit")
		return storage.NewMemoryRepository(), nil
	case config.DriverPostgres:
		slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
		applied, err := storage.MigrateFromDSN(ctx, cfg.Database.DSN, cfg.Database.MigrationsDir)
		if err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		if len(applied) > 0 {
			slog.Info("applied migrations", "migrations", applied)
		}

		repo, err := storage.NewPostgresRepository(ctx, storage.PostgresConfig{
			DSN:          cfg.Database.DSN,
			MaxOpenConns: int32(cfg.Database.MaxOpenConns),
			MaxIdleConns: int32(cfg.Database.MaxIdleConns),
			MaxLifetime:  cfg.Database.MaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create database repository: %w", err)
		}
		slog.Info("database connected successfully")
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.Storage.Driver)
	}
}

// Close releases every resource in reverse order of acquisition
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Error("close error", "error", err)
		}
	}
}
