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

	"github.com/playforge/playforge/internal/app"
	"github.com/playforge/playforge/internal/auth"
	"github.com/playforge/playforge/internal/badges"
	"github.com/playforge/playforge/internal/jams"
	"github.com/playforge/playforge/internal/observability"
	"github.com/playforge/playforge/internal/platform/cache"
	"github.com/playforge/playforge/internal/platform/db"
	"github.com/playforge/playforge/internal/rbac"
	"github.com/playforge/playforge/internal/shared"
	"github.com/playforge/playforge/internal/tutorials"
	"github.com/playforge/playforge/internal/users"
	"github.com/playforge/playforge/jobs"
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

	sessionManager := shared.NewSessionManager(redisClient, "playforge_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)

	rbacRepo := rbac.NewRepository(dbpool)
	rbacService := rbac.NewService(rbacRepo, auditLogger)
	resolver := rbac.NewResolver(rbacRepo, logger)
	permissionsHandler := rbac.NewHandler(logger, rbacService)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, rbacService, logger, cfg.AdminEmail)
	authHandler := auth.NewHandler(logger, authService, sessionManager)
	principalLoader := auth.NewPrincipalLoader(authRepo, resolver, logger)

	tutorialsRepo := tutorials.NewRepository(dbpool)
	tutorialsService := tutorials.NewService(tutorialsRepo, auditLogger)
	tutorialsHandler := tutorials.NewHandler(logger, tutorialsService)

	badgesRepo := badges.NewRepository(dbpool)
	badgesService := badges.NewService(badgesRepo, auditLogger)
	badgesHandler := badges.NewHandler(logger, badgesService)

	jamsRepo := jams.NewRepository(dbpool)
	jamsService := jams.NewService(jamsRepo, auditLogger)
	jamsHandler := jams.NewHandler(logger, jamsService)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, jobsClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		PrincipalLoader:    principalLoader,
		AuthHandler:        authHandler,
		TutorialsHandler:   tutorialsHandler,
		BadgesHandler:      badgesHandler,
		JamsHandler:        jamsHandler,
		UsersHandler:       usersHandler,
		PermissionsHandler: permissionsHandler,
		JobsHandler:        jobsHandler,
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
