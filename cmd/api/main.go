package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/unitecon/internal/application"
	appanalysis "github.com/bryanwahyu/unitecon/internal/application/analysis"
	"github.com/bryanwahyu/unitecon/internal/config"
	domain "github.com/bryanwahyu/unitecon/internal/domain/analysis"
	"github.com/bryanwahyu/unitecon/internal/infra/ai/openai"
	"github.com/bryanwahyu/unitecon/internal/infra/ai/parser"
	"github.com/bryanwahyu/unitecon/internal/infra/ai/prompt"
	"github.com/bryanwahyu/unitecon/internal/infra/cache"
	"github.com/bryanwahyu/unitecon/internal/infra/db"
	"github.com/bryanwahyu/unitecon/internal/infra/events"
	"github.com/bryanwahyu/unitecon/internal/infra/httpserver"
	"github.com/bryanwahyu/unitecon/internal/infra/storage"
	"github.com/bryanwahyu/unitecon/internal/logging"
	"github.com/bryanwahyu/unitecon/internal/middleware"
)

type cacheBackend interface {
	domain.Cache
	middleware.Pinger
}

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer logger.Sync()

	// serve anyway so /health can report the fault
	if err := cfg.AI.Validate(); err != nil {
		logger.Error("ai configuration invalid", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openCache(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("cache init error", zap.String("backend", cfg.Cache.Backend), zap.Error(err))
	}
	defer closeStore()

	svc := &appanalysis.Service{
		Cache:   store,
		Prompts: prompt.Builder{},
		Gateway: openai.NewClient(cfg.AI),
		Parser:  parser.New(logger),
		Clock:   application.SystemClock{},
		Log:     logger,
		TTL:     cfg.Cache.TTL,
		Dedupe:  *cfg.Cache.DedupeInflight,
	}

	checks := map[string]middleware.HealthChecker{
		"ai":    middleware.AIConfigChecker(cfg.AI.Validate),
		"cache": middleware.PingChecker{Target: store},
	}

	if cfg.Archive.Enabled {
		archive, err := storage.New(ctx,
			cfg.Archive.Endpoint,
			cfg.Archive.Region,
			cfg.Archive.BucketName,
			cfg.Archive.AccessKey,
			cfg.Archive.SecretKey,
			cfg.Archive.UseSSL,
		)
		if err != nil {
			logger.Fatal("minio init error", zap.Error(err))
		}
		svc.Archive = archive
		checks["archive"] = middleware.PingChecker{Target: archive}
	}

	if cfg.Events.Enabled {
		pub := events.NewPublisher(cfg.Events.Brokers, cfg.Events.Topic, logger)
		defer pub.Close()
		svc.Events = pub
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateLimitRefill)
	go limiter.Cleanup(ctx)

	handler := httpserver.NewRouter(svc, httpserver.Options{
		Disclaimer:  cfg.Analysis.Disclaimer,
		CORSOrigins: cfg.Server.CORSOrigins,
		Limiter:     limiter,
		Health:      checks,
		Log:         logger,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", addr), zap.String("cache_backend", cfg.Cache.Backend), zap.String("model", cfg.AI.Model))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

// openCache builds the configured backend. SQL backends get their schema
// migrated and a purge janitor bound to ctx.
func openCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (cacheBackend, func(), error) {
	switch cfg.Cache.Backend {
	case "memory":
		s := cache.NewMemoryStore(cfg.Cache.SweepInterval, cache.WithLogger(logger))
		return s, func() { s.Close() }, nil
	case "mysql", "postgres", "sqlite":
		conn, err := db.Connect(ctx, cfg.Cache.Backend, cfg.Cache.DSN)
		if err != nil {
			return nil, nil, err
		}
		s := cache.NewSQLStore(conn, cache.Dialect(cfg.Cache.Backend), logger)
		if err := s.Migrate(ctx); err != nil {
			conn.Close()
			return nil, nil, err
		}
		go s.RunJanitor(ctx, cfg.Cache.SweepInterval)
		return s, func() { conn.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}
