// Package orchestrator implements the Orchestrator (C4): the only
// component spec §4.4 lets own the conversation, the trio message log, and
// the decision of what the user sees. It never calls a tool handler
// directly - it hands a Plan to the Executor and narrates the result.
package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agentcore/agentcore/internal/approval"
	"github.com/agentcore/agentcore/internal/executor"
	"github.com/agentcore/agentcore/internal/llm"
	"github.com/agentcore/agentcore/internal/planner"
	"github.com/agentcore/agentcore/internal/registry"
	"github.com/agentcore/agentcore/pkg/models"
)

// EventSink receives every event the Orchestrator emits, including the
// Executor's task/tool events forwarded verbatim. The Observability
// Bridge's attached collector is the canonical implementation.
type EventSink interface {
	Emit(event models.AgentEvent)
}

// Approver resolves a Pending approval request synchronously - a CLI
// prompt, or an automation hook. If nil, any Pending request that
// AutoApprove doesn't resolve is treated as denied (see DESIGN.md).
type Approver interface {
	Decide(ctx context.Context, req *approval.Request) approval.Decision
}

// ExecutionResult is the Orchestrator's single public-op return value
// (§4.4 "execute(prompt)").
type ExecutionResult struct {
	RunID     string
	Success   bool
	Response  string
	ToolsUsed []string
	Error     error
}

// Progress is the snapshot returned by status().
type Progress struct {
	RunID      string
	Phase      string
	TasksTotal int
	TasksDone  int
}

// Config bounds an Orchestrator instance.
type Config struct {
	Model            string
	WorkingDirectory string
	Environment      map[string]string
	ApprovalPolicy   approval.Policy
	ExecutorConfig   executor.Config
}

// Orchestrator coordinates the Planner, Executor, and approval gate across
// one conversation.
type Orchestrator struct {
	registry *registry.Registry
	planner  *planner.Planner
	exec     *executor.Executor
	provider llm.Provider
	model    string

	workDir string
	env     map[string]string

	approvalPolicy approval.Policy
	approver       Approver

	conversation *models.Conversation
	sink         EventSink
	logger       *slog.Logger

	mu       sync.Mutex
	seq      uint64
	runID    string
	cancel   context.CancelFunc
	progress Progress
	trioLog  []models.TrioMessage
}

// New wires an Orchestrator around a Registry already populated with
// Tools. It builds its own Executor bound to reg and cfg.ExecutorConfig;
// callers register tool Handlers via Executor() after New returns.
func New(reg *registry.Registry, provider llm.Provider, cfg Config, sink EventSink, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		registry:       reg,
		planner:        planner.New(reg, provider, cfg.Model),
		provider:       provider,
		model:          cfg.Model,
		workDir:        cfg.WorkingDirectory,
		env:            cfg.Environment,
		approvalPolicy: cfg.ApprovalPolicy,
		conversation:   &models.Conversation{SessionID: "", Messages: nil},
		sink:           sink,
		logger:         logger,
	}
	o.exec = executor.New(reg, provider, cfg.ExecutorConfig, asExecutorSink{o}, logger)
	return o
}

// Executor returns the Executor this Orchestrator drives, for registering
// tool Handlers after construction.
func (o *Orchestrator) Executor() *executor.Executor {
	return o.exec
}

// SetApprover installs a synchronous approval resolver, e.g. a CLI prompt.
func (o *Orchestrator) SetApprover(a Approver) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.approver = a
}

// Status returns a snapshot of the current or most recent run.
func (o *Orchestrator) Status() Progress {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.progress
}

// ClearConversation discards all conversation history. It does not affect
// a run currently in flight.
func (o *Orchestrator) ClearConversation() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.conversation.Clear()
}

// Abort cancels the currently in-flight run, if any.
func (o *Orchestrator) Abort() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
	}
}

func (o *Orchestrator) nextSeq() uint64 {
	return atomic.AddUint64(&o.seq, 1)
}

func (o *Orchestrator) emit(event models.AgentEvent) {
	event.Version = 1
	event.Time = time.Now()
	event.RunID = o.runID
	event.Sequence = o.nextSeq()
	if o.sink != nil {
		o.sink.Emit(event)
	}
}

// asExecutorSink adapts the Orchestrator as an executor.EventSink,
// stamping RunID/Sequence consistently with every other event the run
// produces rather than letting the Executor mint its own envelope fields.
type asExecutorSink struct{ o *Orchestrator }

func (s asExecutorSink) Emit(event models.AgentEvent) { s.o.emit(event) }
