package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/finlyapp/finly-api/internal/config"
	"github.com/finlyapp/finly-api/internal/domain"
	"github.com/finlyapp/finly-api/internal/handler"
	"github.com/finlyapp/finly-api/internal/infra/cache"
	"github.com/finlyapp/finly-api/internal/infra/observability"
	"github.com/finlyapp/finly-api/internal/infra/postgres"
	"github.com/finlyapp/finly-api/internal/infra/resilience"
	"github.com/finlyapp/finly-api/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Int("db_connect_retries", cfg.ConnectRetries),
		zap.Duration("db_connect_backoff", cfg.ConnectBackoff),
		zap.Int("max_concurrent_pulls", cfg.MaxConcurrentPulls),
		zap.Duration("user_cache_ttl", cfg.UserCacheTTL),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "finly-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Storage ---
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	store, err := postgres.New(ctx, cfg.DatabaseURL, resilience.Config{
		MaxRetries:     cfg.ConnectRetries,
		InitialBackoff: cfg.ConnectBackoff,
	}, logger)
	cancel()
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer store.Close()

	// --- Cache ---
	userCache := cache.New[domain.User](cfg.UserCacheTTL)

	// --- Services ---
	financeSvc := service.NewFinanceService(store, metrics, logger, cfg.MaxConcurrentPulls)
	authSvc := service.NewAuthService(store, cfg.JWTSecret, cfg.JWTAccessTTL, logger)

	// --- Router ---
	origins := strings.Split(cfg.AllowedOrigins, ",")
	router := handler.NewRouter(financeSvc, authSvc, metrics, userCache, logger, origins)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
