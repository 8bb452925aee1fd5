package sqlexec

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/trackpulse/trackpulse/internal/observability"
)

const monitorCapacity = 100

// LogEntry is one recorded execution in the monitor ring.
type LogEntry struct {
	Timestamp     string  `json:"timestamp"`
	SQL           string  `json:"sql"`
	ExecutionTime float64 `json:"execution_time"`
	RowCount      int     `json:"row_count"`
	Success       bool    `json:"success"`
	Complexity    string  `json:"complexity"`
}

// Stats aggregates the monitor ring. Message is set instead of the numeric
// fields when there is nothing to aggregate.
type Stats struct {
	Message           string     `json:"message,omitempty"`
	TotalQueries      int        `json:"total_queries,omitempty"`
	SuccessfulQueries int        `json:"successful_queries,omitempty"`
	SuccessRate       float64    `json:"success_rate,omitempty"`
	AvgExecutionTime  float64    `json:"avg_execution_time,omitempty"`
	MaxExecutionTime  float64    `json:"max_execution_time,omitempty"`
	AvgRowCount       float64    `json:"avg_row_count,omitempty"`
	MaxRowCount       int        `json:"max_row_count,omitempty"`
	RecentQueries     []LogEntry `json:"recent_queries,omitempty"`
}

// Monitor keeps a bounded in-memory history of executions for the stats
// endpoint and flags slow queries.
type Monitor struct {
	mu            sync.Mutex
	history       []LogEntry
	slowThreshold time.Duration
	logger        *slog.Logger
}

func NewMonitor(slowThreshold time.Duration, logger *slog.Logger) *Monitor {
	if slowThreshold <= 0 {
		slowThreshold = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{slowThreshold: slowThreshold, logger: logger}
}

// Log records one execution, trimming the ring to the most recent hundred.
func (m *Monitor) Log(result Result) {
	complexity := "unknown"
	if result.Metadata != nil {
		complexity = result.Metadata.EstimatedComplexity
	}
	entry := LogEntry{
		Timestamp:     time.Now().Format(time.RFC3339),
		SQL:           result.SQL,
		ExecutionTime: result.ExecutionTime,
		RowCount:      result.RowCount,
		Success:       result.Success,
		Complexity:    complexity,
	}

	slow := result.ExecutionTime > m.slowThreshold.Seconds()

	m.mu.Lock()
	m.history = append(m.history, entry)
	if len(m.history) > monitorCapacity {
		m.history = m.history[len(m.history)-monitorCapacity:]
	}
	m.mu.Unlock()

	metricResult := "ok"
	if !result.Success {
		metricResult = result.ErrorType
		if metricResult == "" {
			metricResult = ErrorTypeExecution
		}
	}
	observability.ObserveQueryExecution(metricResult, time.Duration(result.ExecutionTime*float64(time.Second)), slow)

	if slow {
		m.logger.Warn("slow query detected",
			"execution_time", result.ExecutionTime, "sql", clip(result.SQL, 100))
	}
}

// Stats aggregates the recorded history.
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.history) == 0 {
		return Stats{Message: "No query history available"}
	}

	successful := make([]LogEntry, 0, len(m.history))
	for _, entry := range m.history {
		if entry.Success {
			successful = append(successful, entry)
		}
	}
	if len(successful) == 0 {
		return Stats{Message: "No successful queries in history"}
	}

	var timeSum, maxTime float64
	var rowSum, maxRows int
	for _, entry := range successful {
		timeSum += entry.ExecutionTime
		if entry.ExecutionTime > maxTime {
			maxTime = entry.ExecutionTime
		}
		rowSum += entry.RowCount
		if entry.RowCount > maxRows {
			maxRows = entry.RowCount
		}
	}

	recent := m.history
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	recentCopy := make([]LogEntry, len(recent))
	copy(recentCopy, recent)

	return Stats{
		TotalQueries:      len(m.history),
		SuccessfulQueries: len(successful),
		SuccessRate:       math.Round(float64(len(successful))/float64(len(m.history))*1000) / 10,
		AvgExecutionTime:  round3(timeSum / float64(len(successful))),
		MaxExecutionTime:  maxTime,
		AvgRowCount:       math.Round(float64(rowSum)/float64(len(successful))*10) / 10,
		MaxRowCount:       maxRows,
		RecentQueries:     recentCopy,
	}
}
