package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/agentcore/agentcore/internal/backoff"
	"github.com/agentcore/agentcore/internal/llm"
	"github.com/agentcore/agentcore/internal/validate"
	"github.com/agentcore/agentcore/pkg/models"
)

// runTask drives one Task from ready to a terminal status: dispatching its
// ToolCalls sequentially (parallelism is strictly across tasks, §5),
// retrying on a retryable ToolError up to MaxAttempts, and applying the
// recovery table (recovery.go) before giving up.
func (e *Executor) runTask(ctx context.Context, task *models.Task, execCtx *models.ExecutionContext, state *runState) {
	now := time.Now()
	task.StartedAt = &now
	e.emit(models.AgentEvent{Type: models.AgentEventTaskStart, TaskID: task.ID})

	for {
		task.Attempt++
		taskCtx, cancel := context.WithTimeout(ctx, timeoutOrDefault(task.Timeout))

		state.mu.Lock()
		state.inFlight[task.ID] = cancel
		state.status[task.ID] = models.TaskRunning
		state.mu.Unlock()

		err := e.dispatchToolCalls(taskCtx, task, execCtx)
		cancel()

		state.mu.Lock()
		delete(state.inFlight, task.ID)
		state.mu.Unlock()

		if err == nil {
			e.finishTask(task, state, models.TaskSucceeded, nil)
			return
		}

		toolErr := asToolError(err, task)

		if taskCtx.Err() == context.DeadlineExceeded {
			toolErr = &models.ToolError{Code: models.ToolErrTimeout, ToolName: primaryToolName(task), Message: "task exceeded its timeout", Cause: err}
		}

		if recovered := e.tryRecover(ctx, task, execCtx, toolErr); recovered {
			e.finishTask(task, state, models.TaskSucceeded, nil)
			return
		}

		if task.Attempt < task.MaxAttempts && toolErr.Retryable() {
			state.mu.Lock()
			state.status[task.ID] = models.TaskRetrying
			state.mu.Unlock()

			select {
			case <-time.After(backoff.Compute(backoff.ForToolError(toolErr), task.Attempt)):
				continue
			case <-ctx.Done():
				e.finishTask(task, state, models.TaskAborted, toolErr)
				return
			}
		}

		finalStatus := models.TaskFailed
		if toolErr.Code == models.ToolErrTimeout {
			finalStatus = models.TaskTimedOut
		}
		e.finishTask(task, state, finalStatus, toolErr)
		return
	}
}

func (e *Executor) finishTask(task *models.Task, state *runState, status models.TaskStatus, toolErr *models.ToolError) {
	now := time.Now()
	task.EndedAt = &now
	task.Status = status

	state.mu.Lock()
	state.status[task.ID] = status
	state.mu.Unlock()

	if toolErr != nil {
		task.Error = &models.TaskError{TaskID: task.ID, Attempt: task.Attempt, Last: toolErr}
		e.emit(models.AgentEvent{Type: models.AgentEventTaskError, TaskID: task.ID, Error: &models.ErrorEventPayload{Message: toolErr.Error(), Code: string(toolErr.Code)}})
		return
	}
	e.emit(models.AgentEvent{Type: models.AgentEventTaskComplete, TaskID: task.ID})
}

// dispatchToolCalls runs every ToolCall on task sequentially, per the
// dispatch contract in §4.3.
func (e *Executor) dispatchToolCalls(ctx context.Context, task *models.Task, execCtx *models.ExecutionContext) error {
	previous := execCtx.Outputs(task.Dependencies)

	if len(task.ToolCalls) == 1 {
		if tool, err := e.registry.Lookup(task.ToolCalls[0].ToolName); err == nil {
			e.synthesizeDependentContent(ctx, task, tool, &task.ToolCalls[0], previous)
		}
	}

	for i := range task.ToolCalls {
		call := &task.ToolCalls[i]

		tool, err := e.registry.Lookup(call.ToolName)
		if err != nil {
			return &models.ToolError{Code: models.ToolErrUnknown, ToolName: call.ToolName, Message: "tool not registered", Cause: err}
		}

		if err := validate.ValidateArguments(tool, call.Arguments); err != nil {
			return err
		}

		handler, ok := e.handlerFor(call.ToolName)
		if !ok {
			return &models.ToolError{Code: models.ToolErrUnknown, ToolName: call.ToolName, Message: "no handler registered for tool"}
		}

		e.emit(models.AgentEvent{Type: models.AgentEventToolExecute, TaskID: task.ID, Tool: &models.ToolEventPayload{CallID: call.ID, ToolName: call.ToolName, ArgsJSON: call.Arguments}})

		start := time.Now()
		result, err := handler.Execute(ctx, call.Arguments, previous)
		elapsed := time.Since(start)

		if err != nil {
			e.emit(models.AgentEvent{Type: models.AgentEventToolResult, TaskID: task.ID, Tool: &models.ToolEventPayload{CallID: call.ID, ToolName: call.ToolName, Success: false, Elapsed: elapsed}})
			return classifyHandlerError(call.ToolName, err)
		}

		call.Result = result
		execCtx.RecordOutput(task.ID, result.Output)
		if tool.Capabilities.Has(models.CapWritesFS) {
			execCtx.RecordFileModified(extractPath(call.Arguments))
		}
		if tool.Capabilities.Has(models.CapExecutesShell) {
			execCtx.RecordCommand(call.ToolName)
		}

		resultJSON, _ := json.Marshal(result)
		e.emit(models.AgentEvent{Type: models.AgentEventToolResult, TaskID: task.ID, Tool: &models.ToolEventPayload{CallID: call.ID, ToolName: call.ToolName, Success: result.Success, ResultJSON: resultJSON, Elapsed: elapsed}})

		task.Output = result.Output
	}
	return nil
}

func classifyHandlerError(toolName string, err error) *models.ToolError {
	if te, ok := err.(*models.ToolError); ok {
		return te
	}
	return &models.ToolError{Code: models.ToolErrRuntime, ToolName: toolName, Message: err.Error(), Cause: err}
}

func asToolError(err error, task *models.Task) *models.ToolError {
	if te, ok := err.(*models.ToolError); ok {
		return te
	}
	return &models.ToolError{Code: models.ToolErrRuntime, ToolName: primaryToolName(task), Message: err.Error(), Cause: err}
}

func primaryToolName(task *models.Task) string {
	if len(task.ToolCalls) == 0 {
		return ""
	}
	return task.ToolCalls[0].ToolName
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}

var (
	contentHeadingRe = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
	contentURLRe     = regexp.MustCompile(`https?://[^\s"'<>]+`)
	contentNumberRe  = regexp.MustCompile(`-?\d+(?:\.\d+)?%?`)
)

// synthesizeDependentContent implements the §4.3 "content synthesis for
// dependent writes" operation: when task's single ToolCall targets a
// file-write tool and at least one of its dependencies produced an output,
// it enriches a missing/blank "content" argument from those outputs -
// grounded in an LLM completion when a provider is wired, or extracted
// headings/URLs/numbers otherwise. The target path is left untouched and
// no additional ToolCalls are introduced; the enriched argument is
// dispatched and observed exactly like any other tool invocation.
func (e *Executor) synthesizeDependentContent(ctx context.Context, task *models.Task, tool models.Tool, call *models.ToolCall, previous map[string]any) {
	if len(task.ToolCalls) != 1 || len(previous) == 0 {
		return
	}
	if !tool.Capabilities.Has(models.CapWritesFS) {
		return
	}
	if _, ok := tool.Schema.Lookup("content"); !ok {
		return
	}

	var args map[string]json.RawMessage
	if err := json.Unmarshal(call.Arguments, &args); err != nil {
		return
	}
	if raw, ok := args["content"]; ok {
		var existing string
		if json.Unmarshal(raw, &existing) == nil && strings.TrimSpace(existing) != "" {
			return
		}
	}

	content := e.synthesizeContent(ctx, task, previous)
	if strings.TrimSpace(content) == "" {
		return
	}

	encoded, err := json.Marshal(content)
	if err != nil {
		return
	}
	if args == nil {
		args = make(map[string]json.RawMessage)
	}
	args["content"] = encoded

	merged, err := json.Marshal(args)
	if err != nil {
		return
	}
	call.Arguments = merged
}

// synthesizeContent grounds the report in an LLM completion when a
// provider is wired, falling back to heuristic extraction otherwise.
func (e *Executor) synthesizeContent(ctx context.Context, task *models.Task, previous map[string]any) string {
	if e.provider != nil {
		if content := e.synthesizeContentViaLLM(ctx, task, previous); content != "" {
			return content
		}
	}
	return synthesizeContentHeuristically(task.Dependencies, previous)
}

func (e *Executor) synthesizeContentViaLLM(ctx context.Context, task *models.Task, previous map[string]any) string {
	var sources strings.Builder
	for _, depID := range task.Dependencies {
		raw, ok := previous[depID]
		if !ok {
			continue
		}
		fmt.Fprintf(&sources, "Output of %s:\n%s\n\n", depID, stringifyOutput(raw))
	}
	if sources.Len() == 0 {
		return ""
	}

	req := &llm.CompletionRequest{
		System: "Write a short report grounded strictly in the task outputs provided below. " +
			"Do not invent facts that aren't present in those outputs.",
		Messages: []llm.CompletionMessage{{Role: models.RoleUser, Content: sources.String()}},
	}
	chunks, err := e.provider.Complete(ctx, req)
	if err != nil {
		return ""
	}

	var text strings.Builder
	for chunk := range chunks {
		if chunk.Error != nil {
			return ""
		}
		text.WriteString(chunk.Text)
	}
	return strings.TrimSpace(text.String())
}

// synthesizeContentHeuristically extracts headings, URLs, and numbers from
// each dependency's output and appends a truncated excerpt of the raw
// output, so the composed report always carries at least one token from
// the source even when none of those patterns match.
func synthesizeContentHeuristically(dependencies []string, previous map[string]any) string {
	var report strings.Builder
	report.WriteString("Report synthesized from dependent task output.\n")

	for _, depID := range dependencies {
		raw, ok := previous[depID]
		if !ok {
			continue
		}
		text := stringifyOutput(raw)
		if strings.TrimSpace(text) == "" {
			continue
		}

		fmt.Fprintf(&report, "\nFrom %s:\n", depID)
		if headings := dedupeStrings(contentHeadingRe.FindAllString(text, -1)); len(headings) > 0 {
			fmt.Fprintf(&report, "Headings: %s\n", strings.Join(headings, "; "))
		}
		if urls := dedupeStrings(contentURLRe.FindAllString(text, -1)); len(urls) > 0 {
			fmt.Fprintf(&report, "URLs: %s\n", strings.Join(urls, ", "))
		}
		if numbers := dedupeStrings(contentNumberRe.FindAllString(text, -1)); len(numbers) > 0 {
			fmt.Fprintf(&report, "Numbers: %s\n", strings.Join(numbers, ", "))
		}
		report.WriteString(truncateText(text, 400))
		report.WriteString("\n")
	}

	return strings.TrimSpace(report.String())
}

func stringifyOutput(output any) string {
	switch v := output.(type) {
	case json.RawMessage:
		var s string
		if json.Unmarshal(v, &s) == nil {
			return s
		}
		return string(v)
	case string:
		return v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

func dedupeStrings(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
