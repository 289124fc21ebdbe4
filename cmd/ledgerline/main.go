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
	"github.com/joho/godotenv"

	"github.com/ledgerline/ledgerline/internal/app"
	"github.com/ledgerline/ledgerline/internal/billing"
	"github.com/ledgerline/ledgerline/internal/clients"
	"github.com/ledgerline/ledgerline/internal/dispatch"
	"github.com/ledgerline/ledgerline/internal/history"
	"github.com/ledgerline/ledgerline/internal/observability"
	"github.com/ledgerline/ledgerline/internal/platform/cache"
	"github.com/ledgerline/ledgerline/internal/platform/db"
	"github.com/ledgerline/ledgerline/internal/projects"
	"github.com/ledgerline/ledgerline/internal/reports"
	reporthttp "github.com/ledgerline/ledgerline/internal/reports/http"
	"github.com/ledgerline/ledgerline/jobs"
)

func main() {
	if app.InTestMode() {
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
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
	defer redisClient.Close()

	metrics := observability.NewMetrics()

	historyService := history.NewService(history.NewRepository(pool), logger)
	clientsService := clients.NewService(clients.NewRepository(pool), historyService, logger)
	projectsService := projects.NewService(projects.NewRepository(pool), clientsService)

	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportsService := reports.NewService(reports.NewRepository(pool), reportCache, reports.Config{
		WindowMonths:    cfg.ReportWindowMonths,
		TimelinessTopN:  cfg.TimelinessTopN,
		TopClientsLimit: cfg.TopClientsLimit,
	})
	if err := reportCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("report cache listener", slog.Any("error", err))
	}

	recorder := app.NewLedgerRecorder(historyService, metrics)
	billingService := billing.NewService(
		billing.NewRepository(pool),
		clientsService,
		projectsService,
		recorder,
		reportsService,
		logger,
		cfg.DefaultCurrency,
	)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	queueClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer queueClient.Close()

	dispatchService := dispatch.NewService(
		billingService,
		dispatch.NewGotenbergClient(cfg.GotenbergURL),
		queueClient,
		logger,
	)

	inspector := asynq.NewInspector(redisOpts)
	defer inspector.Close()

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		BillingHandler:  billing.NewHandler(logger, billingService, dispatchService),
		ClientsHandler:  clients.NewHandler(logger, clientsService),
		ProjectsHandler: projects.NewHandler(logger, projectsService),
		HistoryHandler:  history.NewHandler(historyService),
		ReportHandler:   reporthttp.NewHandler(logger, reportsService),
		JobHandler:      jobs.NewHandler(inspector, logger),
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
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
		logger.Error("shutdown", slog.Any("error", err))
	}
}
