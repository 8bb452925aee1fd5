// Package session tracks conversational query history so follow-up
// questions can be translated with the context of what a caller already
// asked. Storage is pluggable: an in-process map for single-node
// deployments and a Redis backend when sessions must survive restarts.
package session

import (
	"context"
	"time"

	"github.com/trackpulse/trackpulse/internal/schemactx"
)

// HistoryLimit caps how many entries a session retains. Older entries are
// discarded oldest-first.
const HistoryLimit = 10

// Entry records one processed question within a session.
type Entry struct {
	Timestamp     string  `json:"timestamp"`
	Question      string  `json:"question"`
	SQLQuery      string  `json:"sql_query,omitempty"`
	SQLSuccess    bool    `json:"sql_success"`
	RowCount      int     `json:"row_count"`
	ExecutionTime float64 `json:"execution_time"`
	Error         string  `json:"error,omitempty"`
}

// Session is a bounded history of entries for one caller-supplied id.
type Session struct {
	ID        string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	History   []Entry   `json:"history"`
}

// RecentSuccessful returns up to limit question/SQL pairs from the most
// recent entries that both succeeded and carry SQL, newest first. These
// feed the translator's few-shot context.
func (s *Session) RecentSuccessful(limit int) []schemactx.Example {
	if s == nil || limit <= 0 {
		return nil
	}
	recent := make([]schemactx.Example, 0, limit)
	for i := len(s.History) - 1; i >= 0; i-- {
		entry := s.History[i]
		if !entry.SQLSuccess || entry.SQLQuery == "" {
			continue
		}
		recent = append(recent, schemactx.Example{Question: entry.Question, SQL: entry.SQLQuery})
		if len(recent) >= limit {
			break
		}
	}
	return recent
}

// SuccessfulCount reports how many entries completed with usable SQL.
func (s *Session) SuccessfulCount() int {
	if s == nil {
		return 0
	}
	count := 0
	for _, entry := range s.History {
		if entry.SQLSuccess {
			count++
		}
	}
	return count
}

// Stats aggregates a store for the system-stats endpoint.
type Stats struct {
	TotalSessions     int `json:"total_sessions"`
	ActiveSessions    int `json:"active_sessions"`
	TotalQueries      int `json:"total_queries"`
	SuccessfulQueries int `json:"successful_queries"`
}

// Store persists session histories. Get returns nil without error when the
// session does not exist.
type Store interface {
	Append(ctx context.Context, sessionID string, entry Entry) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Stats(ctx context.Context) (Stats, error)
}
