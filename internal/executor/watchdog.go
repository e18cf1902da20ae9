package executor

import (
	"context"
	"time"

	"github.com/agentcore/agentcore/pkg/models"
)

// watchdog polls in-flight tasks at config.WatchdogInterval: any task
// exceeding 1.5x its timeout is force-cancelled (TaskTimedOut), and a
// health_alert event fires if no task has completed for StallThreshold
// while at least one remains in-flight (§4.3 "Stuck detection").
func (e *Executor) watchdog(ctx context.Context, state *runState, done chan<- struct{}) {
	defer close(done)

	interval := e.config.WatchdogInterval
	if interval <= 0 {
		interval = DefaultConfig().WatchdogInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.sweepStuckTasks(state)
			e.checkStall(state)
		}
	}
}

func (e *Executor) sweepStuckTasks(state *runState) {
	state.mu.Lock()
	defer state.mu.Unlock()

	now := time.Now()
	for id, cancel := range state.inFlight {
		task := state.byID[id]
		if task == nil || task.StartedAt == nil {
			continue
		}
		limit := time.Duration(float64(timeoutOrDefault(task.Timeout)) * 1.5)
		if now.Sub(*task.StartedAt) > limit {
			cancel()
			e.emit(models.AgentEvent{Type: models.AgentEventToolResult, TaskID: id, Error: &models.ErrorEventPayload{Message: "force-cancelled by watchdog", Code: string(models.ToolErrTimeout)}})
			delete(state.inFlight, id)
		}
	}
}

func (e *Executor) checkStall(state *runState) {
	state.mu.Lock()
	inFlightCount := len(state.inFlight)
	stalledFor := time.Since(state.lastDone)
	state.mu.Unlock()

	if inFlightCount == 0 {
		return
	}
	if stalledFor < e.stallThreshold() {
		return
	}

	e.emit(models.AgentEvent{
		Type: models.AgentEventHealthAlert,
		Health: &models.HealthEventPayload{
			Message:        "no task has completed recently while tasks remain in-flight",
			InFlightCount:  inFlightCount,
			StalledSeconds: int(stalledFor.Seconds()),
		},
	})
}

func (e *Executor) stallThreshold() time.Duration {
	if e.config.StallThreshold <= 0 {
		return DefaultConfig().StallThreshold
	}
	return e.config.StallThreshold
}
