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

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/taskflow/taskflow/internal/app"
	"github.com/taskflow/taskflow/internal/attachments"
	"github.com/taskflow/taskflow/internal/auth"
	"github.com/taskflow/taskflow/internal/notify"
	"github.com/taskflow/taskflow/internal/observability"
	"github.com/taskflow/taskflow/internal/platform/cache"
	"github.com/taskflow/taskflow/internal/platform/db"
	"github.com/taskflow/taskflow/internal/projects"
	"github.com/taskflow/taskflow/internal/tasks"
	"github.com/taskflow/taskflow/internal/users"
	"github.com/taskflow/taskflow/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	authRepo := auth.NewRepository(pool)
	sessions := auth.NewSessionStore(redisClient, authRepo, cfg.SessionTTL)
	guard := auth.NewGuard(sessions, logger)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessions, guard)

	mailQueue, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := mailQueue.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	taskRepo := tasks.NewRepository(pool)
	taskService := tasks.NewService(taskRepo, authRepo, mailQueue, logger)
	taskHandler := tasks.NewHandler(logger, taskService)

	projectRepo := projects.NewRepository(pool)
	projectService := projects.NewService(projectRepo)
	projectHandler := projects.NewHandler(logger, projectService)

	attachmentRepo := attachments.NewRepository(pool)
	attachmentService, err := attachments.NewService(attachmentRepo, taskRepo, cfg.UploadDir, cfg.UploadMaxBytes, logger)
	if err != nil {
		logger.Error("init attachment storage", slog.Any("error", err))
		os.Exit(1)
	}
	attachmentHandler := attachments.NewHandler(logger, attachmentService)

	userRepo := users.NewRepository(pool)
	userService := users.NewService(userRepo, authService, sessions, logger)
	userHandler := users.NewHandler(logger, userService)

	notifySource := notify.NewPGSource(pool)
	notifier := notify.NewNotifier(logger, notifySource, sessions, metrics, cfg.NotifyTickInterval, cfg.NotifyWindowMultiplier)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Guard:              guard,
		AuthHandler:        authHandler,
		TasksHandler:       taskHandler,
		ProjectsHandler:    projectHandler,
		AttachmentsHandler: attachmentHandler,
		UsersHandler:       userHandler,
		Notifier:           notifier,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:        cfg.AppAddr,
		Handler:     router,
		ReadTimeout: cfg.AppReadTimeout,
		// WriteTimeout stays unset: it would sever long-lived event
		// streams. The REST routes carry their own request deadline.
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
