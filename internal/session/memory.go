package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in a process-local map. Suitable for
// single-node deployments and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (m *MemoryStore) Append(_ context.Context, sessionID string, entry Entry) error {
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().Format(time.RFC3339)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		sess = &Session{ID: sessionID, CreatedAt: time.Now()}
		m.sessions[sessionID] = sess
	}
	sess.History = append(sess.History, entry)
	if len(sess.History) > HistoryLimit {
		sess.History = sess.History[len(sess.History)-HistoryLimit:]
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	copied := &Session{ID: sess.ID, CreatedAt: sess.CreatedAt, History: make([]Entry, len(sess.History))}
	copy(copied.History, sess.History)
	return copied, nil
}

func (m *MemoryStore) Stats(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{TotalSessions: len(m.sessions)}
	for _, sess := range m.sessions {
		if len(sess.History) > 0 {
			stats.ActiveSessions++
		}
		stats.TotalQueries += len(sess.History)
		stats.SuccessfulQueries += sess.SuccessfulCount()
	}
	return stats, nil
}
