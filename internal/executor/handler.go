package executor

import (
	"context"
	"encoding/json"

	"github.com/agentcore/agentcore/pkg/models"
)

// Handler is the tool handler interface consumed per §6: the Executor
// looks one up from the Registry by name, validates arguments against the
// registered schema, then invokes it. Handlers must honor ctx cancellation
// promptly and must not panic on malformed arguments - the Executor
// validates first, but a handler is the last line of defense.
type Handler interface {
	Execute(ctx context.Context, args json.RawMessage, previous map[string]any) (*models.ToolResult, error)
}

// HandlerFunc adapts a function to a Handler.
type HandlerFunc func(ctx context.Context, args json.RawMessage, previous map[string]any) (*models.ToolResult, error)

func (f HandlerFunc) Execute(ctx context.Context, args json.RawMessage, previous map[string]any) (*models.ToolResult, error) {
	return f(ctx, args, previous)
}
