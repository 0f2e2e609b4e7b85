// Package main runs the background lead enrichment worker.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/boothlead/backend/config"
	"github.com/boothlead/backend/internal/compat"
	"github.com/boothlead/backend/internal/enrichment"
	"github.com/boothlead/backend/internal/leads"
	"github.com/boothlead/backend/internal/store"
	"github.com/boothlead/backend/internal/worker"
	"github.com/boothlead/backend/pkg/database"
	"github.com/boothlead/backend/pkg/metrics"
	"github.com/boothlead/backend/pkg/queue"
	"github.com/boothlead/backend/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		newLogger("info").Fatal("load config", zap.Error(err))
	}
	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	ctx := context.Background()
	m := metrics.New()

	var st store.Store
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(),
			database.PoolConfig{MaxConns: int32(cfg.Database.MaxConns)}, logger)
		if err != nil {
			logger.Fatal("database", zap.Error(err))
		}
		defer pool.Close()
		st = store.NewPostgresStore(pool, m.ObserveStore)
	default:
		// Jobs carry no user token; the service key lets the scoped writes through row-level security.
		key := cfg.Supabase.ServiceRoleKey
		if key == "" {
			logger.Warn("SUPABASE_SERVICE_ROLE_KEY not set, enrichment writes run as anon")
			key = cfg.Supabase.AnonKey
		}
		st = store.NewRESTStore(cfg.Supabase.URL, key,
			store.WithLogger(logger),
			store.WithObserver(m.ObserveStore),
			store.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Supabase.TimeoutSec) * time.Second}))
	}

	if cfg.Redis.Addr == "" {
		logger.Fatal("redis", zap.String("reason", "REDIS_ADDR is required by the worker"))
	}
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	writer := compat.NewWriter(logger, m)
	leadRepo := leads.NewRepository(st, writer, logger, leads.WithMetrics(m))
	enricher := enrichment.NewEnricher(leadRepo, st, writer, logger)
	processor := worker.NewEnrichmentProcessor(enricher, queue.NewQueue(rdb.Client, logger), m, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		processor.Run(workerCtx)
		close(done)
	}()
	logger.Info("worker started", zap.String("queue", queue.QueueEnrichment))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		logger.Warn("worker did not stop in time")
	}
	logger.Info("worker stopped")
}

func newLogger(level string) *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		config.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, _ := config.Build()
	return logger
}
