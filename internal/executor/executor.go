// Package executor implements the Executor (C3): a bounded-concurrency,
// dependency-aware scheduler that runs a Plan's Tasks, dispatching each
// Task's ToolCalls against registered Handlers and aggregating results.
package executor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/agentcore/agentcore/internal/llm"
	"github.com/agentcore/agentcore/internal/registry"
	"github.com/agentcore/agentcore/pkg/models"
)

// Config bounds the Executor's resource usage.
type Config struct {
	// MaxConcurrency is the ceiling on simultaneously running tasks.
	MaxConcurrency int

	// WatchdogInterval is how often the stall/stuck-task watchdog polls
	// in-flight tasks (§4.3 "Stuck detection").
	WatchdogInterval time.Duration

	// StallThreshold is how long with no task completing, while tasks
	// remain in-flight, before a health_alert event fires.
	StallThreshold time.Duration
}

// DefaultConfig returns the Executor defaults named in §4.3/§5.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency:   3,
		WatchdogInterval: 10 * time.Second,
		StallThreshold:   60 * time.Second,
	}
}

// EventSink receives lifecycle events emitted during execution. The
// Orchestrator and Observability Bridge both implement it (directly or via
// an adapter); a nil sink is valid and simply discards events.
type EventSink interface {
	Emit(event models.AgentEvent)
}

// Executor runs Plans against a Registry of tool Handlers.
type Executor struct {
	registry *registry.Registry
	handlers map[string]Handler
	config   Config
	sink     EventSink
	logger   *slog.Logger

	// provider grounds content synthesis for dependent writes (§4.3) in an
	// LLM completion when wired; nil falls back to heuristic extraction.
	provider llm.Provider

	mu sync.RWMutex
}

// New builds an Executor. sink and provider may both be nil - a nil
// provider means content synthesis for dependent writes falls back to
// heuristic extraction instead of an LLM completion.
func New(reg *registry.Registry, provider llm.Provider, config Config, sink EventSink, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = DefaultConfig().MaxConcurrency
	}
	return &Executor{
		registry: reg,
		handlers: make(map[string]Handler),
		config:   config,
		sink:     sink,
		provider: provider,
		logger:   logger,
	}
}

// RegisterHandler wires a tool name to its execution Handler. Startup-only.
func (e *Executor) RegisterHandler(name string, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[name] = h
}

func (e *Executor) handlerFor(name string) (Handler, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	h, ok := e.handlers[name]
	return h, ok
}

// runState tracks the live scheduling state for one ExecutePlan call.
type runState struct {
	mu        sync.Mutex
	byID      map[string]*models.Task
	status    map[string]models.TaskStatus
	inFlight  map[string]context.CancelFunc
	lastDone  time.Time
}

// ExecutePlan runs every Task in plan to completion (success, terminal
// failure, or abort), respecting dependency order and MaxConcurrency, and
// returns once every task has reached a terminal status.
func (e *Executor) ExecutePlan(ctx context.Context, plan *models.Plan, execCtx *models.ExecutionContext) []*models.Task {
	if len(plan.Tasks) == 0 {
		return nil
	}

	state := &runState{
		byID:     make(map[string]*models.Task, len(plan.Tasks)),
		status:   make(map[string]models.TaskStatus, len(plan.Tasks)),
		inFlight: make(map[string]context.CancelFunc),
		lastDone: time.Now(),
	}
	for _, t := range plan.Tasks {
		state.byID[t.ID] = t
		state.status[t.ID] = models.TaskPending
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	watchdogDone := make(chan struct{})
	go e.watchdog(runCtx, state, watchdogDone)
	defer func() { <-watchdogDone }()

	sem := make(chan struct{}, e.config.MaxConcurrency)
	var wg sync.WaitGroup

	// schedule finds every task newly ready to run and dispatches it. It
	// never holds state.mu across the blocking sem send: readyTasks and the
	// TaskReady mark happen atomically under one state.mu critical section
	// (so two concurrent calls can't both claim the same task), and the
	// semaphore slot is released before a dispatched task recurses back
	// into schedule - holding it across the recursive call would deadlock
	// the moment the ready queue exceeds MaxConcurrency in one pass.
	var schedule func()
	schedule = func() {
		state.mu.Lock()
		ready := e.readyTasks(plan.Tasks, state)
		for _, task := range ready {
			state.status[task.ID] = models.TaskReady
		}
		state.mu.Unlock()

		for _, task := range ready {
			task := task

			select {
			case sem <- struct{}{}:
			case <-runCtx.Done():
				return
			}

			state.mu.Lock()
			state.status[task.ID] = models.TaskRunning
			state.mu.Unlock()

			wg.Add(1)
			go func() {
				defer wg.Done()
				e.runTask(runCtx, task, execCtx, state)

				state.mu.Lock()
				state.lastDone = time.Now()
				state.mu.Unlock()

				<-sem
				schedule()
			}()
		}
	}

	schedule()
	wg.Wait()
	cancel()

	e.blockDependents(plan.Tasks, state)

	return plan.Tasks
}

// readyTasks returns every still-pending task whose dependencies have all
// succeeded, per the §4.3 scheduler design. Caller holds state.mu.
func (e *Executor) readyTasks(tasks []*models.Task, state *runState) []*models.Task {
	var ready []*models.Task
	for _, task := range tasks {
		if state.status[task.ID] != models.TaskPending {
			continue
		}
		if task.Ready(state.status) {
			ready = append(ready, task)
		}
	}
	return ready
}

// blockDependents marks any task still pending (because an ancestor
// terminally failed and never reached TaskReady) as TaskBlocked.
func (e *Executor) blockDependents(tasks []*models.Task, state *runState) {
	state.mu.Lock()
	defer state.mu.Unlock()
	for _, task := range tasks {
		if state.status[task.ID] == models.TaskPending && task.Blocked(state.status) {
			task.Status = models.TaskBlocked
			state.status[task.ID] = models.TaskBlocked
		}
	}
}

// Abort cancels every in-flight task immediately.
func (e *Executor) Abort(state *runState) {
	state.mu.Lock()
	defer state.mu.Unlock()
	for _, cancel := range state.inFlight {
		cancel()
	}
}

func (e *Executor) emit(event models.AgentEvent) {
	if e.sink == nil {
		return
	}
	event.Time = time.Now()
	e.sink.Emit(event)
}
