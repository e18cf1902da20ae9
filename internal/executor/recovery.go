package executor

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/agentcore/agentcore/pkg/models"
)

// tryRecover applies the §4.3 recovery table for a failed ToolCall before
// the task is retried or marked terminally failed. It returns true if the
// failure was recovered in place (the task should be treated as
// succeeded), synthesizing a best-effort ToolResult flagged Recovered.
//
// Only NotFound and BadPath are handled here as true in-place recoveries;
// Timeout/BadArguments/PermissionDenied require Planner or Executor-level
// structural changes (decomposition, resynthesis, tool substitution) that
// the Orchestrator's advisory failure-recovery step handles instead (see
// DESIGN.md Open Question #1) - this function only covers recoveries that
// don't require re-entering planning.
func (e *Executor) tryRecover(ctx context.Context, task *models.Task, execCtx *models.ExecutionContext, toolErr *models.ToolError) bool {
	if toolErr == nil || len(task.ToolCalls) == 0 {
		return false
	}
	call := &task.ToolCalls[len(task.ToolCalls)-1]

	switch toolErr.Code {
	case models.ToolErrBadPath:
		return e.recoverBadPath(ctx, task, call, execCtx)
	case models.ToolErrNotFound:
		return e.recoverNotFound(ctx, task, call, execCtx)
	default:
		return false
	}
}

// recoverBadPath resolves a non-absolute path against the working
// directory and retries the call exactly once.
func (e *Executor) recoverBadPath(ctx context.Context, task *models.Task, call *models.ToolCall, execCtx *models.ExecutionContext) bool {
	path := extractPath(call.Arguments)
	if path == "" || filepath.IsAbs(path) {
		return false
	}

	resolved := filepath.Join(execCtx.WorkingDirectory, path)
	newArgs, ok := withPath(call.Arguments, resolved)
	if !ok {
		return false
	}

	handler, ok := e.handlerFor(call.ToolName)
	if !ok {
		return false
	}

	result, err := handler.Execute(ctx, newArgs, execCtx.Outputs(task.Dependencies))
	if err != nil || result == nil || !result.Success {
		return false
	}

	call.Arguments = newArgs
	call.Result = result
	result.Recovered = true
	execCtx.RecordOutput(task.ID, result.Output)
	task.Output = result.Output
	return true
}

// recoverNotFound retries the call with the path joined onto the working
// directory, then with the cleaned path; other file extensions are not
// tried.
func (e *Executor) recoverNotFound(ctx context.Context, task *models.Task, call *models.ToolCall, execCtx *models.ExecutionContext) bool {
	path := extractPath(call.Arguments)
	if path == "" {
		return false
	}

	candidates := []string{
		filepath.Join(execCtx.WorkingDirectory, path),
		filepath.Clean(path),
	}

	handler, ok := e.handlerFor(call.ToolName)
	if !ok {
		return false
	}

	for _, candidate := range candidates {
		newArgs, ok := withPath(call.Arguments, candidate)
		if !ok {
			continue
		}
		result, err := handler.Execute(ctx, newArgs, execCtx.Outputs(task.Dependencies))
		if err != nil || result == nil || !result.Success {
			continue
		}
		call.Arguments = newArgs
		call.Result = result
		result.Recovered = true
		execCtx.RecordOutput(task.ID, result.Output)
		task.Output = result.Output
		return true
	}
	return false
}

func extractPath(args []byte) string {
	decoded := map[string]any{}
	if err := json.Unmarshal(args, &decoded); err != nil {
		return ""
	}
	for _, key := range []string{"path", "file", "filename", "file_path"} {
		if v, ok := decoded[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

func withPath(args []byte, path string) ([]byte, bool) {
	decoded := map[string]any{}
	if err := json.Unmarshal(args, &decoded); err != nil {
		return nil, false
	}
	for _, key := range []string{"path", "file", "filename", "file_path"} {
		if _, ok := decoded[key]; ok {
			decoded[key] = path
			out, err := json.Marshal(decoded)
			return out, err == nil
		}
	}
	return nil, false
}

// DecomposeDescription splits a task description on natural connectives,
// used by the Orchestrator's advisory recovery step when a Timeout
// suggests the task tried to do too much in one tool call (§4.3 recovery
// table: "Decompose the description... run sequentially").
func DecomposeDescription(description string) []string {
	normalized := strings.ReplaceAll(description, " and ", ",")
	parts := strings.FieldsFunc(normalized, func(r rune) bool {
		return r == ','
	})
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
