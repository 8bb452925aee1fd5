// Package sqlexec runs validated SELECT statements against the store with a
// hard timeout and a row cap, and shapes the outcome into a JSON-friendly
// Result with summary statistics and complexity metadata. Execution never
// returns a Go error; failures are encoded in the Result so the agent can
// explain them.
package sqlexec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

// Error classifications carried in Result.ErrorType.
const (
	ErrorTypeTimeout   = "timeout"
	ErrorTypeDatabase  = "database_error"
	ErrorTypeExecution = "execution_error"
)

// Metadata describes the shape of an executed statement.
type Metadata struct {
	QueryType           string `json:"query_type"`
	HasAggregation      bool   `json:"has_aggregation"`
	HasJoins            bool   `json:"has_joins"`
	EstimatedComplexity string `json:"estimated_complexity"`
}

// Result is the full outcome of one execution attempt. ExecutionTime is in
// seconds, rounded to milliseconds. On timeout it reports the configured
// budget rather than wall time.
type Result struct {
	Success       bool             `json:"success"`
	SQL           string           `json:"sql"`
	ExecutionTime float64          `json:"execution_time"`
	RowCount      int              `json:"row_count"`
	Columns       []string         `json:"columns"`
	Data          []map[string]any `json:"data"`
	Summary       *Summary         `json:"summary,omitempty"`
	Metadata      *Metadata        `json:"metadata,omitempty"`
	Error         string           `json:"error,omitempty"`
	ErrorType     string           `json:"error_type,omitempty"`
}

type Executor struct {
	db             *sql.DB
	defaultTimeout time.Duration
	defaultMaxRows int
	logger         *slog.Logger
}

func NewExecutor(db *sql.DB, defaultTimeout time.Duration, defaultMaxRows int, logger *slog.Logger) *Executor {
	if defaultTimeout <= 0 {
		defaultTimeout = 30 * time.Second
	}
	if defaultMaxRows <= 0 {
		defaultMaxRows = 1000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		db:             db,
		defaultTimeout: defaultTimeout,
		defaultMaxRows: defaultMaxRows,
		logger:         logger,
	}
}

// Execute runs one statement under the given budget. Zero timeout or maxRows
// fall back to the executor defaults.
func (e *Executor) Execute(ctx context.Context, sqlText string, timeout time.Duration, maxRows int) Result {
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}
	if maxRows <= 0 {
		maxRows = e.defaultMaxRows
	}

	started := time.Now()
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rows, err := e.db.QueryContext(queryCtx, sqlText)
	if err != nil {
		return e.failure(sqlText, err, queryCtx, started, timeout)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return e.failure(sqlText, err, queryCtx, started, timeout)
	}

	data := make([]map[string]any, 0, 16)
	truncated := false
	for rows.Next() {
		if len(data) >= maxRows {
			truncated = true
			break
		}
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return Result{
				Success:       false,
				SQL:           sqlText,
				ExecutionTime: round3(time.Since(started).Seconds()),
				Error:         "Execution error: " + err.Error(),
				ErrorType:     ErrorTypeExecution,
			}
		}
		record := make(map[string]any, len(columns))
		for i, col := range columns {
			record[col] = serializeValue(values[i])
		}
		data = append(data, record)
	}
	if err := rows.Err(); err != nil {
		return e.failure(sqlText, err, queryCtx, started, timeout)
	}
	if truncated {
		e.logger.WarnContext(ctx, "query result truncated", "max_rows", maxRows, "sql", clip(sqlText, 100))
	}

	elapsed := round3(time.Since(started).Seconds())
	return Result{
		Success:       true,
		SQL:           sqlText,
		ExecutionTime: elapsed,
		RowCount:      len(data),
		Columns:       columns,
		Data:          data,
		Summary:       summarize(data, columns),
		Metadata: &Metadata{
			QueryType:           detectQueryType(sqlText),
			HasAggregation:      hasAggregation(sqlText),
			HasJoins:            hasJoins(sqlText),
			EstimatedComplexity: EstimateComplexity(sqlText),
		},
	}
}

func (e *Executor) failure(sqlText string, err error, queryCtx context.Context, started time.Time, timeout time.Duration) Result {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(queryCtx.Err(), context.DeadlineExceeded) {
		return Result{
			Success:       false,
			SQL:           sqlText,
			ExecutionTime: round3(timeout.Seconds()),
			Error:         fmt.Sprintf("Query timed out after %g seconds", timeout.Seconds()),
			ErrorType:     ErrorTypeTimeout,
		}
	}
	return Result{
		Success:       false,
		SQL:           sqlText,
		ExecutionTime: round3(time.Since(started).Seconds()),
		Error:         "Database error: " + err.Error(),
		ErrorType:     ErrorTypeDatabase,
	}
}

// serializeValue maps driver values onto the closed set of shapes the API
// emits: nil, bool, float64, int64, string.
func serializeValue(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		return v.Format(time.RFC3339)
	case []byte:
		return string(v)
	case bool:
		return v
	case float32:
		return float64(v)
	case float64:
		return v
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case uint:
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return int64(v)
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func detectQueryType(sqlText string) string {
	lower := strings.ToLower(strings.TrimSpace(sqlText))
	if !strings.HasPrefix(lower, "select") {
		return "unknown"
	}
	if strings.Contains(lower, "group by") {
		return "aggregation"
	}
	if strings.Contains(lower, "join") {
		return "join"
	}
	return "select"
}

var aggregationFunctions = []string{"count(", "sum(", "avg(", "max(", "min("}

func hasAggregation(sqlText string) bool {
	lower := strings.ToLower(sqlText)
	for _, fn := range aggregationFunctions {
		if strings.Contains(lower, fn) {
			return true
		}
	}
	return strings.Contains(lower, "group by")
}

func hasJoins(sqlText string) bool {
	return strings.Contains(strings.ToLower(sqlText), "join")
}

// EstimateComplexity scores a statement by counting the constructs that make
// the planner work harder and buckets the score into simple, moderate, or
// complex.
func EstimateComplexity(sqlText string) string {
	lower := strings.ToLower(sqlText)
	score := 0

	if strings.Contains(lower, "select") {
		score++
	}
	score += strings.Count(lower, "join") * 2
	for _, fn := range aggregationFunctions {
		score += strings.Count(lower, fn)
	}
	if selects := strings.Count(lower, "select"); selects > 1 {
		score += selects - 1
	}
	if strings.Contains(lower, "group by") {
		score++
	}
	if strings.Contains(lower, "order by") {
		score++
	}
	score += strings.Count(lower, "where")
	score += strings.Count(lower, "and")
	score += strings.Count(lower, "or")

	switch {
	case score <= 2:
		return "simple"
	case score <= 5:
		return "moderate"
	default:
		return "complex"
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
