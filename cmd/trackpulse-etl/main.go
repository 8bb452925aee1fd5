package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trackpulse/trackpulse/internal/config"
	"github.com/trackpulse/trackpulse/internal/etl"
	"github.com/trackpulse/trackpulse/internal/observability"
	"github.com/trackpulse/trackpulse/internal/storage"
	s3store "github.com/trackpulse/trackpulse/internal/storage/s3"
	"github.com/trackpulse/trackpulse/internal/store/postgres"
)

func main() {
	timeout := flag.Duration("timeout", 30*time.Minute, "overall sync deadline")
	flag.Parse()

	cfg, err := config.LoadFromEnv("trackpulse-etl")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	db, err := postgres.Open(ctx, postgres.DBConfig{
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

	client, err := etl.NewClient(cfg.ETL)
	if err != nil {
		logger.Error("failed to initialize provider client", slog.Any("error", err))
		os.Exit(1)
	}

	var archive storage.ObjectStore
	if cfg.ETL.ArchiveRaw {
		store, err := s3store.New(ctx, cfg.ObjectStore)
		if err != nil {
			logger.Error("failed to initialize raw archive store", slog.Any("error", err))
			os.Exit(1)
		}
		archive = store
	}

	syncer := etl.NewSyncer(client, etl.NewLoader(db, logger), archive, logger)
	report, err := syncer.Run(ctx)
	if err != nil {
		logger.Error("sync failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("sync finished",
		slog.Int("activities", report.Activities),
		slog.Int("athletes", report.Athletes),
		slog.Int("periods", report.Periods),
		slog.Int("events", report.Events),
		slog.Int("efforts", report.Efforts),
		slog.Int("skipped", report.Skipped))
}
