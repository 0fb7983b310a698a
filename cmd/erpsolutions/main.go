package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/elsoprime/erpsolutions/internal/app"
	"github.com/elsoprime/erpsolutions/internal/audit"
	"github.com/elsoprime/erpsolutions/internal/observability"
	"github.com/elsoprime/erpsolutions/internal/plans"
	"github.com/elsoprime/erpsolutions/internal/platform/cache"
	"github.com/elsoprime/erpsolutions/internal/platform/db"
	"github.com/elsoprime/erpsolutions/internal/rbac"
	"github.com/elsoprime/erpsolutions/internal/shared"
	"github.com/elsoprime/erpsolutions/internal/users"
	"github.com/elsoprime/erpsolutions/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	var queue audit.Enqueuer
	if cfg.AuditQueueEnabled {
		jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := jobsClient.Close(); err != nil {
				logger.Warn("jobs client close", slog.Any("error", err))
			}
		}()
		queue = jobsClient
	}

	metrics := observability.NewMetrics()
	auditor := audit.NewEmitter(logger, queue)
	rbacOpts := []rbac.Option{rbac.WithAuditor(auditor), rbac.WithRecorder(metrics)}

	resolver := rbac.NewResolver(plans.NewRepository(dbpool), rbacOpts...)
	permissionsHandler := rbac.NewHandler(logger, rbac.NewService(resolver))

	usersService := users.NewService(users.NewRepository(dbpool, logger))
	usersHandler := users.NewHandler(logger, usersService, rbac.Middleware{
		Authorizer:  rbac.NewAuthorizer(rbacOpts...),
		Memberships: usersService,
		Logger:      logger,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Sessions:           shared.NewSessionStore(redisClient, cfg.SessionCookie, cfg.SessionTTL),
		PermissionsHandler: permissionsHandler,
		UsersHandler:       usersHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
