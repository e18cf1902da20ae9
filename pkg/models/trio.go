package models

import "time"

// TrioParticipant names one corner of the Orchestrator/Planner/Executor
// trio (or the user, for the initial request).
type TrioParticipant string

const (
	TrioOrchestrator TrioParticipant = "orchestrator"
	TrioPlanner      TrioParticipant = "planner"
	TrioExecutor     TrioParticipant = "executor"
)

// TrioMessageKind classifies a message exchanged between trio members.
type TrioMessageKind string

const (
	TrioKindQuestion   TrioMessageKind = "question"
	TrioKindResponse   TrioMessageKind = "response"
	TrioKindAdjustment TrioMessageKind = "adjustment"
	TrioKindStatus     TrioMessageKind = "status"
	TrioKindError      TrioMessageKind = "error"
)

// TrioMessage is a purely observational record of trio coordination; it
// never drives control flow itself, only informs the Bridge and the
// Orchestrator's own bookkeeping. The log is append-only within a single
// orchestration and cleared at the start of the next.
type TrioMessage struct {
	From      TrioParticipant `json:"from"`
	To        TrioParticipant `json:"to"`
	Kind      TrioMessageKind `json:"kind"`
	Content   string          `json:"content"`
	Payload   any             `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
