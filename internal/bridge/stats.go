package bridge

import (
	"time"

	"github.com/agentcore/agentcore/pkg/models"
)

// StatsCollector accumulates a RunStats by processing one run's AgentEvent
// stream in order. It holds the invariant the Bridge is built around:
// replaying a recorded stream through a fresh StatsCollector reproduces the
// same aggregate the live collector computed, so offline recomputation from
// a recorded event stream never drifts from what was observed live.
type StatsCollector struct {
	stats      models.RunStats
	toolStarts map[string]time.Time
}

// NewStatsCollector starts a fresh accumulator for one RunID.
func NewStatsCollector(runID string) *StatsCollector {
	return &StatsCollector{
		stats:      models.RunStats{RunID: runID},
		toolStarts: make(map[string]time.Time),
	}
}

// OnEvent folds one event into the accumulated statistics. Events outside
// this run's RunID are ignored so a shared stream can be demultiplexed by
// giving every RunID its own collector.
func (c *StatsCollector) OnEvent(e models.AgentEvent) {
	if e.RunID != "" && c.stats.RunID != "" && e.RunID != c.stats.RunID {
		return
	}

	switch e.Type {
	case models.AgentEventOrchestrationStart:
		c.stats.StartedAt = e.Time

	case models.AgentEventOrchestrationComplete:
		c.stats.FinishedAt = e.Time
		c.stats.WallTime = e.Time.Sub(c.stats.StartedAt)

	case models.AgentEventOrchestrationError:
		c.stats.Errors++
		c.stats.FinishedAt = e.Time
		c.stats.WallTime = e.Time.Sub(c.stats.StartedAt)

	case models.AgentEventTaskStart:
		c.stats.TasksTotal++

	case models.AgentEventTaskComplete:
		c.stats.TasksSucceeded++

	case models.AgentEventTaskError:
		c.stats.TasksFailed++
		c.stats.Errors++

	case models.AgentEventToolExecute:
		c.stats.ToolCalls++
		if e.Tool != nil {
			c.toolStarts[e.Tool.CallID] = e.Time
		}

	case models.AgentEventToolResult:
		if e.Tool != nil {
			if e.Tool.Elapsed > 0 {
				c.stats.ToolWallTime += e.Tool.Elapsed
			} else if start, ok := c.toolStarts[e.Tool.CallID]; ok {
				c.stats.ToolWallTime += e.Time.Sub(start)
			}
			delete(c.toolStarts, e.Tool.CallID)
			if !e.Tool.Success {
				c.stats.Errors++
			}
		}
		if e.Error != nil && e.Error.Code == string(models.ToolErrTimeout) {
			c.stats.ToolTimeouts++
		}

	case models.AgentEventHealthAlert:
		// Advisory only - does not bend TasksFailed/Errors, which are
		// derived strictly from task/tool outcomes.

	case models.AgentEventTokenUsage:
		if e.Stats != nil && e.Stats.Run != nil {
			c.stats.InputTokens += e.Stats.Run.InputTokens
			c.stats.OutputTokens += e.Stats.Run.OutputTokens
		}
	}
}

// Stats returns a copy of the accumulated statistics. If the run hasn't
// produced an orchestration_complete/error event yet, FinishedAt/WallTime
// are computed as of now so an in-flight run still has a usable snapshot.
func (c *StatsCollector) Stats() *models.RunStats {
	stats := c.stats
	if stats.FinishedAt.IsZero() && !stats.StartedAt.IsZero() {
		stats.FinishedAt = time.Now()
		stats.WallTime = stats.FinishedAt.Sub(stats.StartedAt)
	}
	return &stats
}
