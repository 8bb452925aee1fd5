// Package agent orchestrates the full question pipeline: translate the
// natural-language question to SQL with session context, execute it under a
// budget, explain the outcome, and record the exchange in the session store.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trackpulse/trackpulse/internal/config"
	"github.com/trackpulse/trackpulse/internal/explain"
	"github.com/trackpulse/trackpulse/internal/nl2sql"
	"github.com/trackpulse/trackpulse/internal/observability"
	"github.com/trackpulse/trackpulse/internal/schemactx"
	"github.com/trackpulse/trackpulse/internal/session"
	"github.com/trackpulse/trackpulse/internal/sqlexec"
)

// Translator produces SQL for a question. Satisfied by *nl2sql.Translator.
type Translator interface {
	ParseQuestion(ctx context.Context, question string, qctx nl2sql.Context) nl2sql.ParseResult
}

// Executor runs validated SQL. Satisfied by *sqlexec.Executor.
type Executor interface {
	Execute(ctx context.Context, sql string, timeout time.Duration, maxRows int) sqlexec.Result
}

// Explainer analyzes results. Satisfied by *explain.Explainer.
type Explainer interface {
	Explain(ctx context.Context, question string, result sqlexec.Result, includeLLM bool) explain.Explanation
}

// Request is one question to process. Zero values for the budgets fall back
// to the configured defaults; SessionID may be blank, in which case a fresh
// session id is generated.
type Request struct {
	Question           string
	SessionID          string
	IncludeExplanation bool
	MaxExecutionTime   time.Duration
	MaxRows            int
}

// SQLGeneration reports the translation phase of a response.
type SQLGeneration struct {
	SQLQuery   string   `json:"sql_query,omitempty"`
	IsValid    bool     `json:"is_valid"`
	Confidence float64  `json:"confidence"`
	Errors     []string `json:"errors"`
	Warnings   []string `json:"warnings"`
}

// Performance summarizes the cost of answering a question.
type Performance struct {
	SQLGenerationConfidence float64  `json:"sql_generation_confidence"`
	ExecutionTime           *float64 `json:"execution_time,omitempty"`
	RowCount                int      `json:"row_count"`
	QueryComplexity         string   `json:"query_complexity"`
}

// Response is the complete outcome of one processed question.
type Response struct {
	Success             bool                 `json:"success"`
	Question            string               `json:"question"`
	SessionID           string               `json:"session_id"`
	Timestamp           string               `json:"timestamp"`
	TotalProcessingTime float64              `json:"total_processing_time"`
	SQLGeneration       *SQLGeneration       `json:"sql_generation,omitempty"`
	Execution           *sqlexec.Result      `json:"execution,omitempty"`
	Explanation         *explain.Explanation `json:"explanation,omitempty"`
	Performance         *Performance         `json:"performance,omitempty"`
	Summary             string               `json:"summary,omitempty"`
	Error               string               `json:"error,omitempty"`
}

// SessionHistory is the view of one session exposed over the API.
type SessionHistory struct {
	SessionID         string          `json:"session_id"`
	CreatedAt         string          `json:"created_at"`
	TotalQueries      int             `json:"total_queries"`
	SuccessfulQueries int             `json:"successful_queries"`
	RecentQueries     []session.Entry `json:"recent_queries"`
}

// SystemStats aggregates sessions and query performance for operators.
type SystemStats struct {
	TotalSessions     int           `json:"total_sessions"`
	TotalQueries      int           `json:"total_queries"`
	SuccessfulQueries int           `json:"successful_queries"`
	SuccessRate       float64       `json:"success_rate"`
	ActiveSessions    int           `json:"active_sessions"`
	Performance       sqlexec.Stats `json:"performance"`
}

type Agent struct {
	translator Translator
	executor   Executor
	explainer  Explainer
	sessions   session.Store
	monitor    *sqlexec.Monitor
	cfg        config.AgentConfig
	logger     *slog.Logger
}

func New(translator Translator, executor Executor, explainer Explainer, sessions session.Store, monitor *sqlexec.Monitor, cfg config.AgentConfig, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		translator: translator,
		executor:   executor,
		explainer:  explainer,
		sessions:   sessions,
		monitor:    monitor,
		cfg:        cfg,
		logger:     logger,
	}
}

// ProcessQuestion runs the complete pipeline. It never panics outward; an
// internal fault is converted into a failed Response so one bad question
// cannot take the service down.
func (a *Agent) ProcessQuestion(ctx context.Context, req Request) (resp Response) {
	started := time.Now()

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	defer func() {
		if r := recover(); r != nil {
			a.logger.ErrorContext(ctx, "panic while processing question",
				"question", req.Question, "panic", r)
			resp = Response{
				Success:             false,
				Question:            req.Question,
				SessionID:           sessionID,
				Timestamp:           time.Now().Format(time.RFC3339),
				TotalProcessingTime: round3(time.Since(started).Seconds()),
				Error:               fmt.Sprintf("internal error: %v", r),
			}
			_ = a.sessions.Append(ctx, sessionID, session.Entry{
				Question: req.Question,
				Error:    fmt.Sprintf("%v", r),
			})
			observability.ObserveQuestion(false)
		}
	}()

	a.logger.InfoContext(ctx, "processing question", "question", req.Question, "session", sessionID)

	recent := a.recentContext(ctx, sessionID)
	parseResult := a.translator.ParseQuestion(ctx, req.Question, nl2sql.Context{RecentQueries: recent})

	var execution *sqlexec.Result
	if parseResult.IsValid && parseResult.SQLQuery != "" {
		result := a.executor.Execute(ctx, parseResult.SQLQuery, req.MaxExecutionTime, req.MaxRows)
		if a.monitor != nil {
			a.monitor.Log(result)
		}
		execution = &result
	}

	var explanation *explain.Explanation
	if req.IncludeExplanation {
		target := executionOrPlaceholder(execution, parseResult)
		exp := a.explainer.Explain(ctx, req.Question, target, true)
		explanation = &exp
	}

	resp = a.compileResponse(req.Question, sessionID, parseResult, execution, explanation, started)

	entry := session.Entry{
		Question:   req.Question,
		SQLQuery:   parseResult.SQLQuery,
		SQLSuccess: execution != nil && execution.Success,
	}
	if execution != nil {
		entry.RowCount = execution.RowCount
		entry.ExecutionTime = execution.ExecutionTime
	}
	if err := a.sessions.Append(ctx, sessionID, entry); err != nil {
		a.logger.ErrorContext(ctx, "session append failed", "session", sessionID, "error", err)
	}

	observability.ObserveQuestion(resp.Success)
	a.logger.InfoContext(ctx, "question processed",
		"session", sessionID, "success", resp.Success,
		"processing_time", resp.TotalProcessingTime)
	return resp
}

func (a *Agent) recentContext(ctx context.Context, sessionID string) []schemactx.Example {
	sess, err := a.sessions.Get(ctx, sessionID)
	if err != nil {
		a.logger.ErrorContext(ctx, "session load failed", "session", sessionID, "error", err)
		return nil
	}
	limit := a.cfg.ContextQueries
	if limit <= 0 {
		limit = 3
	}
	return sess.RecentSuccessful(limit)
}

func executionOrPlaceholder(execution *sqlexec.Result, parseResult nl2sql.ParseResult) sqlexec.Result {
	if execution != nil {
		return *execution
	}
	placeholder := sqlexec.Result{Success: false, Error: "SQL generation failed - cannot execute query"}
	if len(parseResult.Errors) > 0 {
		placeholder.Error = parseResult.Errors[0]
	}
	return placeholder
}

func (a *Agent) compileResponse(question, sessionID string, parseResult nl2sql.ParseResult, execution *sqlexec.Result, explanation *explain.Explanation, started time.Time) Response {
	success := parseResult.IsValid
	if execution != nil {
		success = execution.Success
	}

	perf := &Performance{
		SQLGenerationConfidence: parseResult.Confidence,
		QueryComplexity:         "unknown",
	}
	execPhase := execution
	if execution != nil {
		perf.ExecutionTime = &execution.ExecutionTime
		perf.RowCount = execution.RowCount
		if execution.Metadata != nil {
			perf.QueryComplexity = execution.Metadata.EstimatedComplexity
		}
	} else {
		execPhase = &sqlexec.Result{
			Success: false,
			Error:   "SQL generation failed - cannot execute query",
		}
	}

	resp := Response{
		Success:             success,
		Question:            question,
		SessionID:           sessionID,
		Timestamp:           time.Now().Format(time.RFC3339),
		TotalProcessingTime: round3(time.Since(started).Seconds()),
		SQLGeneration: &SQLGeneration{
			SQLQuery:   parseResult.SQLQuery,
			IsValid:    parseResult.IsValid,
			Confidence: parseResult.Confidence,
			Errors:     parseResult.Errors,
			Warnings:   parseResult.Warnings,
		},
		Execution:   execPhase,
		Explanation: explanation,
		Performance: perf,
	}
	resp.Summary = userSummary(resp)
	return resp
}

func userSummary(resp Response) string {
	if !resp.Success {
		if len(resp.SQLGeneration.Errors) > 0 {
			return "I couldn't process your question: " + resp.SQLGeneration.Errors[0]
		}
		return "I encountered an issue processing your question. Please try rephrasing it."
	}

	rowCount := 0
	if resp.Execution != nil {
		rowCount = resp.Execution.RowCount
	}
	switch rowCount {
	case 0:
		return "Your question was processed successfully, but no matching data was found."
	case 1:
		return "Found 1 record that answers your question."
	default:
		return fmt.Sprintf("Found %d records that answer your question.", rowCount)
	}
}

// SessionHistory returns the recorded history for a session. A nil result
// means the session does not exist.
func (a *Agent) SessionHistory(ctx context.Context, sessionID string) (*SessionHistory, error) {
	sess, err := a.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}

	recent := sess.History
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	return &SessionHistory{
		SessionID:         sess.ID,
		CreatedAt:         sess.CreatedAt.Format(time.RFC3339),
		TotalQueries:      len(sess.History),
		SuccessfulQueries: sess.SuccessfulCount(),
		RecentQueries:     recent,
	}, nil
}

// SystemStats aggregates session counts with query performance history.
func (a *Agent) SystemStats(ctx context.Context) (SystemStats, error) {
	stats, err := a.sessions.Stats(ctx)
	if err != nil {
		return SystemStats{}, err
	}

	successRate := 0.0
	if stats.TotalQueries > 0 {
		successRate = round1(float64(stats.SuccessfulQueries) / float64(stats.TotalQueries) * 100)
	}

	var perf sqlexec.Stats
	if a.monitor != nil {
		perf = a.monitor.Stats()
	}
	return SystemStats{
		TotalSessions:     stats.TotalSessions,
		TotalQueries:      stats.TotalQueries,
		SuccessfulQueries: stats.SuccessfulQueries,
		SuccessRate:       successRate,
		ActiveSessions:    stats.ActiveSessions,
		Performance:       perf,
	}, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
