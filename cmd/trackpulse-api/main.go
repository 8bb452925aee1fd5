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

	"github.com/trackpulse/trackpulse/internal/agent"
	"github.com/trackpulse/trackpulse/internal/api"
	"github.com/trackpulse/trackpulse/internal/config"
	"github.com/trackpulse/trackpulse/internal/explain"
	"github.com/trackpulse/trackpulse/internal/export"
	"github.com/trackpulse/trackpulse/internal/llm"
	"github.com/trackpulse/trackpulse/internal/nl2sql"
	"github.com/trackpulse/trackpulse/internal/observability"
	"github.com/trackpulse/trackpulse/internal/session"
	"github.com/trackpulse/trackpulse/internal/sqlexec"
	"github.com/trackpulse/trackpulse/internal/storage"
	s3store "github.com/trackpulse/trackpulse/internal/storage/s3"
	"github.com/trackpulse/trackpulse/internal/store/postgres"
)

func main() {
	cfg, err := config.LoadFromEnv("trackpulse-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	db, err := postgres.Open(context.Background(), postgres.DBConfig{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	llmClient, err := llm.NewClient(cfg.LLM)
	if err != nil {
		logger.Error("failed to initialize llm client", slog.Any("error", err))
		os.Exit(1)
	}

	sessions, err := buildSessionStore(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize session store", slog.Any("error", err))
		os.Exit(1)
	}

	translator := nl2sql.NewTranslator(llmClient, logger)
	executor := sqlexec.NewExecutor(db, cfg.Agent.DefaultTimeout, cfg.Agent.DefaultMaxRows, logger)
	explainer := explain.NewExplainer(llmClient, logger)
	monitor := sqlexec.NewMonitor(cfg.Agent.SlowQueryThreshold, logger)
	questionAgent := agent.New(translator, executor, explainer, sessions, monitor, cfg.Agent, logger)

	dashboard := postgres.NewDashboardRepository(db)

	var objectStore storage.ObjectStore
	var exporter api.EffortsExporter
	if cfg.ObjectStore.Endpoint != "" {
		store, err := s3store.New(context.Background(), cfg.ObjectStore)
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
		objectStore = store
		exporter = export.NewExporter(db, objectStore, logger)
	}

	deps := api.Dependencies{
		Logger:    logger,
		Agent:     questionAgent,
		Dashboard: dashboard,
		Exporter:  exporter,
		Readiness: api.CombineReadinessChecks(
			api.CheckDatabaseDSN(cfg),
			dashboard.HealthCheck,
		),
		DependencyTimeout: time.Second,
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("llm_provider", llmClient.Provider()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

func buildSessionStore(cfg config.Config, logger *slog.Logger) (session.Store, error) {
	if cfg.Sessions.Backend == config.SessionBackendRedis {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store, err := session.NewRedisStore(ctx, cfg.Sessions)
		if err != nil {
			return nil, err
		}
		logger.Info("using redis session store", slog.String("addr", cfg.Sessions.RedisAddr))
		return store, nil
	}
	return session.NewMemoryStore(), nil
}
