package bridge

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/agentcore/agentcore/pkg/models"
)

// AttachedCollector subscribes to a live AgentEvent stream and writes
// ExecutionRecords synchronously: in-memory always, persistent store
// best-effort. It implements orchestrator.EventSink structurally (an
// Emit(models.AgentEvent) method) without importing that package, so the
// Bridge has no dependency on the Orchestrator's internals.
//
// Every callback is wrapped in a recover so a monitoring failure - a panic
// in a handler, a persistence error - can never propagate into the agent's
// own call stack. Detaching clears the subscription but never blocks on
// in-flight work.
type AttachedCollector struct {
	store   Store
	mem     *MemoryStore
	metrics *Metrics
	logger  *slog.Logger

	attached atomic.Bool

	writeTimeout time.Duration

	mu      sync.Mutex
	runs    map[string]*StatsCollector
	session map[string]*Session
}

// NewAttachedCollector wires a collector against the persistent store.
// store may be a *MemoryStore if no durable backend is configured.
func NewAttachedCollector(store Store, metrics *Metrics, logger *slog.Logger) *AttachedCollector {
	if logger == nil {
		logger = slog.Default()
	}
	c := &AttachedCollector{
		store:        store,
		mem:          NewMemoryStore(),
		metrics:      metrics,
		logger:       logger,
		writeTimeout: 500 * time.Millisecond,
		runs:         make(map[string]*StatsCollector),
		session:      make(map[string]*Session),
	}
	c.attached.Store(true)
	return c
}

// Attach resumes processing. Idempotent.
func (c *AttachedCollector) Attach() { c.attached.Store(true) }

// Detach stops processing new events without touching the autonomous
// collector. Idempotent.
func (c *AttachedCollector) Detach() { c.attached.Store(false) }

// Attached reports whether the collector is currently subscribed.
func (c *AttachedCollector) Attached() bool { return c.attached.Load() }

// Emit processes one event. It never panics and never blocks the caller
// for more than writeTimeout.
func (c *AttachedCollector) Emit(event models.AgentEvent) {
	if !c.attached.Load() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("bridge: recovered from panic processing event", "panic", r, "event_type", event.Type)
			if c.metrics != nil {
				c.metrics.MonitoringErrors.Inc()
			}
		}
	}()
	c.process(event)
}

func (c *AttachedCollector) process(event models.AgentEvent) {
	c.mu.Lock()
	collector, ok := c.runs[event.RunID]
	if !ok && event.RunID != "" {
		collector = NewStatsCollector(event.RunID)
		c.runs[event.RunID] = collector
		c.session[event.RunID] = &Session{ID: event.RunID, Mode: "agent", StartedAt: event.Time, Status: SessionRunning}
	}
	c.mu.Unlock()
	if collector != nil {
		collector.OnEvent(event)
	}

	switch event.Type {
	case models.AgentEventTaskComplete, models.AgentEventTaskError:
		c.recordTask(event)
	case models.AgentEventToolResult:
		c.recordToolResult(event)
	case models.AgentEventHealthAlert:
		if c.metrics != nil {
			c.metrics.HealthAlerts.Inc()
		}
	case models.AgentEventOrchestrationComplete, models.AgentEventOrchestrationError:
		c.finalizeSession(event)
	}
}

func (c *AttachedCollector) recordTask(event models.AgentEvent) {
	status := "succeeded"
	if event.Type == models.AgentEventTaskError {
		status = "failed"
	}
	if c.metrics != nil {
		c.metrics.TaskCounter.WithLabelValues(status).Inc()
	}
}

func (c *AttachedCollector) recordToolResult(event models.AgentEvent) {
	if event.Tool == nil {
		return
	}
	rec := &ExecutionRecord{
		ID:         uuid.NewString(),
		SessionID:  event.RunID,
		Type:       "tool",
		ToolName:   event.Tool.ToolName,
		Output:     string(event.Tool.ResultJSON),
		Success:    event.Tool.Success,
		DurationMS: event.Tool.Elapsed.Milliseconds(),
		CreatedAt:  event.Time,
	}
	if event.Error != nil {
		rec.ErrorMessage = event.Error.Message
	}

	if c.metrics != nil {
		c.metrics.ExecutionCounter.WithLabelValues(rec.Type, rec.ToolName, boolLabel(rec.Success)).Inc()
		c.metrics.ExecutionDuration.WithLabelValues(rec.Type, rec.ToolName).Observe(time.Duration(rec.DurationMS * int64(time.Millisecond)).Seconds())
	}

	c.persist(rec)
}

func (c *AttachedCollector) persist(rec *ExecutionRecord) {
	_ = c.mem.CreateRecord(context.Background(), rec)

	if c.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.writeTimeout)
	defer cancel()
	if err := c.store.CreateRecord(ctx, rec); err != nil {
		c.logger.Warn("bridge: persistent store write failed, record kept in memory only", "error", err)
		if c.metrics != nil {
			c.metrics.MonitoringErrors.Inc()
		}
	}
}

func (c *AttachedCollector) finalizeSession(event models.AgentEvent) {
	c.mu.Lock()
	sess, ok := c.session[event.RunID]
	collector := c.runs[event.RunID]
	c.mu.Unlock()
	if !ok {
		return
	}

	sess.EndedAt = event.Time
	sess.Status = SessionCompleted
	if event.Type == models.AgentEventOrchestrationError {
		sess.Status = SessionFailed
	}
	if collector != nil {
		stats := collector.Stats()
		sess.TokensUsed = stats.InputTokens + stats.OutputTokens
		sess.TurnCount = stats.TasksTotal
	}

	_ = c.mem.UpsertSession(context.Background(), sess)
	if c.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), c.writeTimeout)
		defer cancel()
		if err := c.store.UpsertSession(ctx, sess); err != nil {
			c.logger.Warn("bridge: persistent session upsert failed", "error", err)
			if c.metrics != nil {
				c.metrics.MonitoringErrors.Inc()
			}
		}
	}

	c.mu.Lock()
	delete(c.runs, event.RunID)
	delete(c.session, event.RunID)
	c.mu.Unlock()
}

// RunStats returns the in-flight statistics for a run still being
// collected, or nil once the run has finalized and been evicted.
func (c *AttachedCollector) RunStats(runID string) *models.RunStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	collector, ok := c.runs[runID]
	if !ok {
		return nil
	}
	return collector.Stats()
}
