// Package main runs the lead capture HTTP server with graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/boothlead/backend/config"
	"github.com/boothlead/backend/internal/auth"
	"github.com/boothlead/backend/internal/compat"
	"github.com/boothlead/backend/internal/leads"
	"github.com/boothlead/backend/internal/middleware"
	"github.com/boothlead/backend/internal/profile"
	"github.com/boothlead/backend/internal/session"
	"github.com/boothlead/backend/internal/store"
	"github.com/boothlead/backend/pkg/database"
	"github.com/boothlead/backend/pkg/metrics"
	"github.com/boothlead/backend/pkg/queue"
	"github.com/boothlead/backend/pkg/redis"
	"github.com/boothlead/backend/pkg/response"
	"github.com/boothlead/backend/pkg/storage"
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

	st, closeStore, err := newStore(ctx, cfg, cfg.Supabase.AnonKey, m, logger)
	if err != nil {
		logger.Fatal("store", zap.Error(err))
	}
	defer closeStore()

	writer := compat.NewWriter(logger, m)
	leadOpts := []leads.Option{leads.WithMetrics(m)}
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Warn("redis disabled, company names uncached and leads not enriched", zap.Error(err))
		} else {
			defer rdb.Close()
			leadOpts = append(leadOpts,
				leads.WithNameCache(rdb.Names(cfg.Redis.CompanyNameTTLSec)),
				leads.WithEnqueuer(queue.NewQueue(rdb.Client, logger)))
		}
	}

	var audio leads.AudioStore
	if cfg.AWS.AudioBucket != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			AudioBucket:          cfg.AWS.AudioBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("audio notes disabled", zap.Error(err))
		} else {
			audio = s3Client
		}
	}

	verifier := auth.NewTokenVerifier(cfg.Supabase.JWTSecret)
	authClient := auth.NewClient(cfg.Supabase.URL, cfg.Supabase.AnonKey,
		time.Duration(cfg.Supabase.TimeoutSec)*time.Second, logger)
	authHandler := auth.NewHandler(authClient, logger)

	sessions := session.NewProvider(st, logger)
	leadRepo := leads.NewRepository(st, writer, logger, leadOpts...)
	leadHandler := leads.NewHandler(leadRepo, audio, logger)
	profileHandler := profile.NewHandler(profile.NewRepository(st, writer, logger), logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger, m))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(m.Handler()))
	router.POST("/auth/sign-in", authHandler.SignIn)

	// A caller without a company sees empty lists and missing leads rather
	// than an error.
	api := router.Group("")
	api.Use(middleware.JWT(verifier), middleware.Session(sessions, logger))
	{
		api.GET("/profile", profileHandler.Get)
		api.PATCH("/profile", profileHandler.Update)

		api.POST("/leads/scan", leadHandler.Scan)
		api.GET("/leads", leadHandler.List)
		api.GET("/leads/:id", leadHandler.Get)
		api.PATCH("/leads/:id", leadHandler.Update)
		api.POST("/leads/:id/hot", leadHandler.MarkHot)
		api.PUT("/leads/:id/tags", leadHandler.SetTags)
		api.POST("/leads/:id/audio", leadHandler.UploadAudio)
		api.GET("/leads/:id/audio-url", leadHandler.AudioURL)
		api.GET("/priority", leadHandler.Priority)
		api.GET("/events/active", leadHandler.ActiveEvent)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Store.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

// newStore opens the configured backend. apiKey is the key REST calls fall
// back to when a request carries no user token.
func newStore(ctx context.Context, cfg *config.Config, apiKey string, m *metrics.Metrics, logger *zap.Logger) (store.Store, func(), error) {
	if cfg.Store.Backend == config.BackendPostgres {
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(),
			database.PoolConfig{MaxConns: int32(cfg.Database.MaxConns)}, logger)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Database.Migrate {
			if err := database.Migrate(ctx, pool, logger); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		return store.NewPostgresStore(pool, m.ObserveStore), pool.Close, nil
	}
	return store.NewRESTStore(cfg.Supabase.URL, apiKey,
		store.WithLogger(logger),
		store.WithObserver(m.ObserveStore),
		store.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Supabase.TimeoutSec) * time.Second}),
	), func() {}, nil
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
