// Package bridge implements the Observability Bridge (C5): an attached
// collector that rides the live event stream and an autonomous collector
// that polls the persistent store independently, so dashboards survive an
// agent crash or a detach. Nothing in this package may block or panic its
// way into the orchestration path it observes.
package bridge

import (
	"context"
	"sync"
	"time"
)

// ExecutionRecord is one persisted observation of a tool or task execution,
// per SPEC_FULL.md §3. Write-only from the agent's perspective; the Bridge
// owns retries and batching.
type ExecutionRecord struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	ProjectID    string    `json:"project_id,omitempty"`
	Type         string    `json:"type"`
	ToolName     string    `json:"tool_name,omitempty"`
	Input        string    `json:"input,omitempty"`
	Output       string    `json:"output,omitempty"`
	Success      bool      `json:"success"`
	DurationMS   int64     `json:"duration_ms,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// SessionStatus is a Session's lifecycle state.
type SessionStatus string

const (
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// Session tracks one orchestration run for dashboard consumption.
type Session struct {
	ID         string        `json:"id"`
	Mode       string        `json:"mode,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	EndedAt    time.Time     `json:"ended_at,omitempty"`
	TurnCount  int           `json:"turn_count"`
	TokensUsed int           `json:"tokens_used"`
	Status     SessionStatus `json:"status"`
}

// Store persists ExecutionRecords and Sessions. A persistence failure must
// never propagate past the Bridge - callers degrade to in-memory only.
type Store interface {
	CreateRecord(ctx context.Context, rec *ExecutionRecord) error
	ListRecords(ctx context.Context, limit, offset int) ([]*ExecutionRecord, error)
	UpsertSession(ctx context.Context, sess *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	ListSessions(ctx context.Context, limit, offset int) ([]*Session, error)
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// MemoryStore keeps records and sessions in memory. It is the default for
// tests and non-durable runs, and the fallback the attached collector
// writes to when the persistent Store errors.
type MemoryStore struct {
	mu         sync.RWMutex
	records    map[string]*ExecutionRecord
	recordKeys []string
	sessions   map[string]*Session
}

// NewMemoryStore returns an empty in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[string]*ExecutionRecord),
		sessions: make(map[string]*Session),
	}
}

func (s *MemoryStore) CreateRecord(ctx context.Context, rec *ExecutionRecord) error {
	if rec == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.ID]; !exists {
		s.recordKeys = append(s.recordKeys, rec.ID)
	}
	clone := *rec
	s.records[rec.ID] = &clone
	return nil
}

func (s *MemoryStore) ListRecords(ctx context.Context, limit, offset int) ([]*ExecutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > len(s.recordKeys) {
		limit = len(s.recordKeys)
	}
	if offset >= len(s.recordKeys) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.recordKeys) {
		end = len(s.recordKeys)
	}
	out := make([]*ExecutionRecord, 0, end-offset)
	for _, id := range s.recordKeys[offset:end] {
		if rec, ok := s.records[id]; ok {
			clone := *rec
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *MemoryStore) UpsertSession(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *sess
	s.sessions[sess.ID] = &clone
	return nil
}

func (s *MemoryStore) GetSession(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	clone := *sess
	return &clone, nil
}

func (s *MemoryStore) ListSessions(ctx context.Context, limit, offset int) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		clone := *sess
		out = append(out, &clone)
	}
	if offset >= len(out) {
		return nil, nil
	}
	end := len(out)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}

func (s *MemoryStore) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	var pruned int64
	var kept []string
	for _, id := range s.recordKeys {
		rec, ok := s.records[id]
		if !ok {
			continue
		}
		if rec.CreatedAt.Before(cutoff) {
			delete(s.records, id)
			pruned++
		} else {
			kept = append(kept, id)
		}
	}
	s.recordKeys = kept
	return pruned, nil
}
