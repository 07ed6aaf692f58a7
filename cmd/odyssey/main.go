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

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-ops/internal/app"
	"github.com/odyssey-erp/odyssey-ops/internal/auth"
	"github.com/odyssey-erp/odyssey-ops/internal/observability"
	"github.com/odyssey-erp/odyssey-ops/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-ops/internal/platform/db"
	"github.com/odyssey-erp/odyssey-ops/internal/rbac"
	"github.com/odyssey-erp/odyssey-ops/internal/resources"
	"github.com/odyssey-erp/odyssey-ops/internal/shared"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	var dbpool *pgxpool.Pool
	if cfg.StorageDriver == app.StoragePostgres {
		dbpool, err = db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer dbpool.Close()
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	layer, err := app.NewAccessLayer(app.AccessParams{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
		Pool:    dbpool,
		Redis:   redisClient,
	})
	if err != nil {
		logger.Error("build access layer", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("access layer ready",
		slog.Int("roles", len(layer.Matrix.Roles())),
		slog.Int("resources", len(layer.Matrix.Resources())),
		slog.String("storage", cfg.StorageDriver),
		slog.String("role_cache", cfg.RoleCacheBackend),
	)

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		AuthHandler:     auth.NewHandler(logger, sessionManager, cfg.DevSessions && !cfg.IsProduction()),
		AccessHandler:   rbac.NewHandler(logger, layer.Matrix, layer.Middleware).WithInvalidator(layer.Resolver),
		ResourceHandler: resources.NewHandler(logger, layer.Service),
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
