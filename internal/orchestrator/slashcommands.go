package orchestrator

import (
	"fmt"
	"strings"

	"github.com/agentcore/agentcore/pkg/models"
)

// handleSlashCommand implements §4.4 step 2's slash-command surface.
// Unknown commands fall through to a help hint rather than an error -
// the surface is meant for quick operator commands, not a strict CLI.
func (o *Orchestrator) handleSlashCommand(cmd string) string {
	switch cmd {
	case "/help":
		return "Available commands: /help, /status, /tools, /clear, /quit"
	case "/status":
		p := o.Status()
		return fmt.Sprintf("phase=%s tasks=%d/%d", p.Phase, p.TasksDone, p.TasksTotal)
	case "/tools":
		return formatToolList(o.registry.Enumerate())
	case "/clear":
		o.ClearConversation()
		return "conversation cleared"
	case "/quit":
		o.Abort()
		return "aborting current run"
	default:
		return "unknown command: " + cmd + " (try /help)"
	}
}

func formatToolList(tools []models.Tool) string {
	if len(tools) == 0 {
		return "no tools registered"
	}
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name)
	}
	return strings.Join(names, ", ")
}
