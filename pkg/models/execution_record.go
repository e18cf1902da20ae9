package models

import "time"

// ExecutionRecord is a single persisted observation emitted by the
// Observability Bridge. It is write-only from the agent's perspective: the
// Bridge owns retries and batching onto the persistent store.
type ExecutionRecord struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	ProjectID     string    `json:"project_id,omitempty"`
	Type          string    `json:"type"` // e.g. "tool_execute", "planning", "orchestration"
	ToolName      string    `json:"tool_name,omitempty"`
	Input         string    `json:"input,omitempty"`
	Output        string    `json:"output,omitempty"`
	Success       bool      `json:"success"`
	DurationMs    int64     `json:"duration_ms"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// SessionStatus is the lifecycle state of a persisted Session row.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusFailed    SessionStatus = "failed"
)

// Session is the Bridge's persisted counterpart to an in-memory
// Conversation: one row per orchestration session, tracking aggregate
// usage independent of the agent process's lifetime.
type Session struct {
	ID         string        `json:"id"`
	Mode       string        `json:"mode"` // interactive | auto_edit | yolo
	StartedAt  time.Time     `json:"started_at"`
	EndedAt    *time.Time    `json:"ended_at,omitempty"`
	TurnCount  int           `json:"turn_count"`
	TokensUsed int           `json:"tokens_used"`
	Status     SessionStatus `json:"status"`
}
