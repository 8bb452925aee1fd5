// Package api exposes the question-answering agent, dashboard, and export
// surfaces over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trackpulse/trackpulse/internal/agent"
	"github.com/trackpulse/trackpulse/internal/config"
	"github.com/trackpulse/trackpulse/internal/export"
	"github.com/trackpulse/trackpulse/internal/observability"
	"github.com/trackpulse/trackpulse/internal/store/postgres"
)

type ReadinessCheck func(ctx context.Context) error

// AgentService is the slice of the agent the handlers need.
type AgentService interface {
	ProcessQuestion(ctx context.Context, req agent.Request) agent.Response
	SessionHistory(ctx context.Context, sessionID string) (*agent.SessionHistory, error)
	SystemStats(ctx context.Context) (agent.SystemStats, error)
}

// DashboardReader serves the aggregate views behind /v1/dashboard.
type DashboardReader interface {
	Overview(ctx context.Context, lookbackDays int) (postgres.Overview, error)
	IntensityDistribution(ctx context.Context, lookbackDays int) ([]postgres.IntensityBucket, error)
}

// EffortsExporter publishes effort datasets to object storage.
type EffortsExporter interface {
	ExportEfforts(ctx context.Context, lookbackDays int) (export.Result, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	DependencyTimeout time.Duration
	Agent             AgentService
	Dashboard         DashboardReader
	Exporter          EffortsExporter
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	mux.HandleFunc("POST /v1/agent/ask", func(w http.ResponseWriter, r *http.Request) {
		handleAsk(deps, w, r)
	})
	mux.HandleFunc("POST /v1/agent/quick", func(w http.ResponseWriter, r *http.Request) {
		handleQuick(deps, w, r)
	})
	mux.HandleFunc("GET /v1/agent/sessions/{session}", func(w http.ResponseWriter, r *http.Request) {
		handleSessionHistory(deps, w, r)
	})
	mux.HandleFunc("GET /v1/agent/stats", func(w http.ResponseWriter, r *http.Request) {
		handleAgentStats(deps, w, r)
	})
	mux.HandleFunc("GET /v1/dashboard/overview", func(w http.ResponseWriter, r *http.Request) {
		handleDashboardOverview(deps, w, r)
	})
	mux.HandleFunc("POST /v1/export/efforts", func(w http.ResponseWriter, r *http.Request) {
		handleExportEfforts(deps, w, r)
	})

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware(mux),
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

func CheckDatabaseDSN(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.Database.DSN == "" {
			return errors.New("database dsn is not configured")
		}
		return nil
	}
}

func CheckObjectStoreConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.ObjectStore.Endpoint == "" {
			return errors.New("object store endpoint is not configured")
		}
		if cfg.ObjectStore.Bucket == "" {
			return errors.New("object store bucket is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
