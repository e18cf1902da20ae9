package models

import "time"

// AgentEvent is the unified event envelope emitted by every trio component
// and consumed by the Observability Bridge. It mirrors a single versioned
// event stream rather than a family of component-specific channels.
//
// Design principles:
//   - Versioned and forward-compatible (add fields, don't rename/remove)
//   - Single Type discriminator with optional payload pointers
//   - Monotonic Sequence for ordering guarantees across goroutines
type AgentEvent struct {
	// Version for forward compatibility. Current version: 1.
	Version int `json:"version"`

	// Type identifies the kind of event.
	Type AgentEventType `json:"type"`

	// Time is when the event occurred.
	Time time.Time `json:"time"`

	// Sequence is monotonic within a run for ordering guarantees.
	Sequence uint64 `json:"seq"`

	// RunID identifies the orchestration run (Orchestrator.execute call).
	RunID string `json:"run_id,omitempty"`

	// TaskID identifies the Task this event concerns, when applicable.
	TaskID string `json:"task_id,omitempty"`

	// Exactly one payload should be non-nil for a given Type.
	Text     *TextEventPayload     `json:"text,omitempty"`
	Tool     *ToolEventPayload     `json:"tool,omitempty"`
	Plan     *PlanEventPayload     `json:"plan,omitempty"`
	Trio     *TrioEventPayload     `json:"trio,omitempty"`
	Error    *ErrorEventPayload    `json:"error,omitempty"`
	Stats    *StatsEventPayload    `json:"stats,omitempty"`
	Health   *HealthEventPayload   `json:"health,omitempty"`
}

// AgentEventType identifies the kind of agent event. The set is the
// minimum event surface named by §6: orchestration/planning/task/tool
// lifecycle, trio coordination, token usage, and health alerts.
type AgentEventType string

const (
	// Orchestration lifecycle
	AgentEventOrchestrationStart    AgentEventType = "orchestration_start"
	AgentEventOrchestrationComplete AgentEventType = "orchestration_complete"
	AgentEventOrchestrationError    AgentEventType = "orchestration_error"

	// Planning lifecycle
	AgentEventPlanningStart    AgentEventType = "planning_start"
	AgentEventPlanningComplete AgentEventType = "planning_complete"

	// Task lifecycle
	AgentEventTaskStart    AgentEventType = "task_start"
	AgentEventTaskComplete AgentEventType = "task_complete"
	AgentEventTaskError    AgentEventType = "task_error"

	// Tool execution
	AgentEventToolExecute AgentEventType = "tool_execute"
	AgentEventToolResult  AgentEventType = "tool_result"

	// Trio coordination (observational only)
	AgentEventTrioMessage AgentEventType = "trio_message"

	// Status / misc
	AgentEventStatus     AgentEventType = "status"
	AgentEventTokenUsage AgentEventType = "token_usage"
	AgentEventHealthAlert AgentEventType = "health_alert"
)

// TextEventPayload is generic human-readable text (logs, status messages).
type TextEventPayload struct {
	Text string `json:"text"`
}

// ToolEventPayload describes a tool call and its result.
type ToolEventPayload struct {
	CallID   string `json:"call_id,omitempty"`
	ToolName string `json:"tool_name,omitempty"`
	ArgsJSON []byte `json:"args_json,omitempty"`

	Success    bool   `json:"success,omitempty"`
	ResultJSON []byte `json:"result_json,omitempty"`
	Elapsed    time.Duration `json:"elapsed,omitempty"`
	Recovered  bool   `json:"recovered,omitempty"`
}

// PlanEventPayload accompanies planning_start/planning_complete events.
type PlanEventPayload struct {
	Prompt     string     `json:"prompt,omitempty"`
	Kind       PlanKind   `json:"kind,omitempty"`
	Complexity Complexity `json:"complexity,omitempty"`
	TaskCount  int        `json:"task_count,omitempty"`
}

// TrioEventPayload mirrors a TrioMessage onto the event stream.
type TrioEventPayload struct {
	From    TrioParticipant `json:"from"`
	To      TrioParticipant `json:"to"`
	Kind    TrioMessageKind `json:"kind"`
	Content string          `json:"content,omitempty"`
}

// ErrorEventPayload standardizes errors for the event stream.
type ErrorEventPayload struct {
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	Retriable bool   `json:"retriable,omitempty"`
	Err       error  `json:"-"`
}

// StatsEventPayload carries run statistics and token usage as an event.
type StatsEventPayload struct {
	Run *RunStats `json:"run,omitempty"`
}

// RunStats is an aggregated summary of an orchestration run, derived from
// replaying the event stream - the same reconstruction the Bridge performs
// live must be reproducible offline from a recorded stream.
type RunStats struct {
	RunID string `json:"run_id,omitempty"`

	StartedAt  time.Time     `json:"started_at,omitempty"`
	FinishedAt time.Time     `json:"finished_at,omitempty"`
	WallTime   time.Duration `json:"wall_time,omitempty"`

	TasksTotal     int `json:"tasks_total,omitempty"`
	TasksSucceeded int `json:"tasks_succeeded,omitempty"`
	TasksFailed    int `json:"tasks_failed,omitempty"`

	ToolCalls    int           `json:"tool_calls,omitempty"`
	ToolWallTime time.Duration `json:"tool_wall_time,omitempty"`
	ToolTimeouts int           `json:"tool_timeouts,omitempty"`

	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`

	Cancelled     bool `json:"cancelled,omitempty"`
	DroppedEvents int  `json:"dropped_events,omitempty"`
	Errors        int  `json:"errors,omitempty"`
}

// HealthEventPayload accompanies health_alert events emitted by the
// Executor's watchdog when no task has made progress for the configured
// stall window, while at least one task remains in-flight.
type HealthEventPayload struct {
	Message        string `json:"message"`
	InFlightCount  int    `json:"in_flight_count"`
	StalledSeconds int    `json:"stalled_seconds"`
}
