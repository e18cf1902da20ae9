package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentcore/agentcore/internal/executor"
	"github.com/agentcore/agentcore/internal/llm"
	"github.com/agentcore/agentcore/pkg/models"
)

// adviseRecovery asks the LLM for an alternative strategy per failed task
// and forwards it as a trio adjustment. Per DESIGN.md Open Question #1
// this is advisory only: it never re-enters the Executor.
func (o *Orchestrator) adviseRecovery(ctx context.Context, failed []*models.Task) {
	for _, task := range failed {
		prompt := recoveryPrompt(task)
		suggestion, err := o.completeText(ctx, prompt)
		if err != nil {
			o.logger.Warn("recovery advisory failed", "task_id", task.ID, "error", err)
			continue
		}
		o.sendTrio(models.TrioOrchestrator, models.TrioPlanner, models.TrioKindAdjustment, suggestion)
	}
}

func recoveryPrompt(task *models.Task) string {
	reason := "unknown error"
	if task.Error != nil && task.Error.Last != nil {
		reason = task.Error.Last.Error()
	}
	steps := executor.DecomposeDescription(task.Description)
	hint := ""
	if len(steps) > 1 {
		hint = " The task may have tried to do too much in one step: " + strings.Join(steps, "; ") + "."
	}
	return fmt.Sprintf("A task failed: %q. Error: %s.%s Suggest a different approach for a future attempt in one or two sentences.", task.Description, reason, hint)
}

// synthesizeResponse assembles the user-facing reply per §4.4 step 7: a
// terse acknowledgement when the run had file effects, otherwise an
// LLM-synthesized answer grounded in the tasks' outputs.
func (o *Orchestrator) synthesizeResponse(ctx context.Context, prompt string, plan *models.Plan, results []*models.Task, execCtx *models.ExecutionContext) string {
	if execCtx.HasFileEffects() {
		return "Done."
	}

	var failedCount int
	var outputs strings.Builder
	for _, task := range results {
		if task.Status == models.TaskFailed || task.Status == models.TaskTimedOut || task.Status == models.TaskBlocked {
			failedCount++
			continue
		}
		if task.Output != nil {
			fmt.Fprintf(&outputs, "- %s: %s\n", task.Description, task.Output)
		}
	}

	if outputs.Len() == 0 {
		if failedCount == len(results) {
			return "I wasn't able to complete this request."
		}
		return "Done."
	}

	answer, err := o.completeText(ctx, fmt.Sprintf(
		"The user asked: %q\n\nHere is what was produced:\n%s\nAnswer the user's question using only this information, concisely.",
		prompt, outputs.String(),
	))
	if err != nil {
		o.logger.Warn("response synthesis failed", "error", err)
		return "Done."
	}
	return answer
}

// completeText runs a single non-tool completion request and collects the
// streamed text into one string.
func (o *Orchestrator) completeText(ctx context.Context, prompt string) (string, error) {
	chunks, err := o.provider.Complete(ctx, &llm.CompletionRequest{
		Model:    o.model,
		Messages: []llm.CompletionMessage{{Role: models.RoleUser, Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	var out strings.Builder
	for chunk := range chunks {
		if chunk.Error != nil {
			return "", chunk.Error
		}
		out.WriteString(chunk.Text)
	}
	return out.String(), nil
}
