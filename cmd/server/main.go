package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Clark-Hu/book-rankings/internal/aggregate"
	"github.com/Clark-Hu/book-rankings/internal/cache"
	"github.com/Clark-Hu/book-rankings/internal/catalog"
	"github.com/Clark-Hu/book-rankings/internal/config"
	httpserver "github.com/Clark-Hu/book-rankings/internal/http"
	"github.com/Clark-Hu/book-rankings/internal/migrations"
	"github.com/Clark-Hu/book-rankings/internal/ranking"
	"github.com/Clark-Hu/book-rankings/internal/repository"
	"github.com/Clark-Hu/book-rankings/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A local .env is optional; real environment variables take precedence.
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel).With("service", "book-rankings")
	slog.SetDefault(logger)
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		logger.Warn("could not read .env file", "err", envErr)
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	storeOpts := store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	}

	st, err := store.New(dbCtx, cfg.DBURL, storeOpts)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := migrations.Run(st.Pool(), cfg.DBAutoMigrate, logger); err != nil {
		return err
	}

	cacheStore, cacheCheck, closeCache, err := newCacheStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	repo := repository.New(st)
	agg := aggregate.New(repo.Reviews)
	svc := catalog.New(catalog.Deps{
		Books:      repo.Books,
		Reviews:    repo.Reviews,
		Cache:      cacheStore,
		Aggregator: agg,
		Ranker:     ranking.NewRanker(agg, ranking.SystemClock),
		Logger:     logger,
	})
	server := httpserver.New(cfg, httpserver.Checks{st, cacheCheck}, svc, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	var serveErr error
	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("graceful shutdown error", "err", err)
	}
	if stats := st.Stats(); stats != nil {
		logger.Info("db pool closing",
			"acquired", stats.AcquiredConns(),
			"idle", stats.IdleConns(),
			"total", stats.TotalConns(),
			"acquire_count", stats.AcquireCount(),
		)
	}
	return serveErr
}

// newCacheStore builds the configured backend. The returned check is nil for
// the in-process cache, which has nothing to ping.
func newCacheStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (cache.Store, httpserver.HealthChecker, func(), error) {
	ttl := time.Duration(cfg.CacheTTLSecs) * time.Second
	if cfg.CacheBackend == config.CacheRedis {
		rcfg := cache.DefaultRedisConfig()
		rcfg.Addr = cfg.RedisAddr
		rcfg.Password = cfg.RedisPassword
		rcfg.DB = cfg.RedisDB
		rcfg.TTL = ttl
		rc, err := cache.NewRedis(ctx, rcfg)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("cache backend ready", "backend", "redis", "addr", cfg.RedisAddr, "ttl", ttl)
		return rc, httpserver.CheckFunc(rc.Ping), func() { _ = rc.Close() }, nil
	}
	logger.Info("cache backend ready", "backend", "memory", "size", cfg.CacheSize, "ttl", ttl)
	return cache.NewMemory(cfg.CacheSize, ttl), nil, func() {}, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
