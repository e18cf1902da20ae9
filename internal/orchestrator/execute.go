package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/agentcore/agentcore/internal/approval"
	"github.com/agentcore/agentcore/pkg/models"
)

// Execute runs the full request lifecycle for one user prompt (§4.4
// "Request lifecycle", steps 1-8).
func (o *Orchestrator) Execute(ctx context.Context, prompt string) ExecutionResult {
	runCtx, cancel := context.WithCancel(ctx)

	o.mu.Lock()
	o.runID = uuid.NewString()
	o.cancel = cancel
	o.trioLog = nil
	o.progress = Progress{RunID: o.runID, Phase: "planning"}
	runID := o.runID
	o.mu.Unlock()
	defer cancel()

	// Step 1: orchestration_start, per-run scratch already reset above.
	o.emit(models.AgentEvent{Type: models.AgentEventOrchestrationStart})

	// Step 2: slash-command routing.
	if strings.HasPrefix(strings.TrimSpace(prompt), "/") {
		response := o.handleSlashCommand(strings.TrimSpace(prompt))
		o.emit(models.AgentEvent{Type: models.AgentEventOrchestrationComplete, Text: &models.TextEventPayload{Text: response}})
		o.setPhase("idle")
		return ExecutionResult{RunID: runID, Success: true, Response: response}
	}

	// Step 3: ask the Planner for a Plan.
	o.sendTrio(models.TrioOrchestrator, models.TrioPlanner, models.TrioKindQuestion, "please plan: "+prompt)
	o.emit(models.AgentEvent{Type: models.AgentEventPlanningStart, Plan: &models.PlanEventPayload{Prompt: prompt}})

	plan, err := o.planner.CreatePlan(runCtx, prompt)
	if err != nil {
		return o.fail(runID, err)
	}
	o.sendTrio(models.TrioPlanner, models.TrioOrchestrator, models.TrioKindResponse, "plan ready")
	o.emit(models.AgentEvent{Type: models.AgentEventPlanningComplete, Plan: &models.PlanEventPayload{Kind: plan.Kind, Complexity: plan.Complexity, TaskCount: len(plan.Tasks)}})

	// Step 4: conversation-kind plans never touch the Executor.
	if plan.Kind == models.PlanKindConversation {
		o.appendConversationTurn(prompt, plan.ConversationResponse)
		o.emit(models.AgentEvent{Type: models.AgentEventOrchestrationComplete, Text: &models.TextEventPayload{Text: plan.ConversationResponse}})
		o.setPhase("idle")
		return ExecutionResult{RunID: runID, Success: true, Response: plan.ConversationResponse}
	}

	// Approval gate: deny capability-flagged tools the policy doesn't
	// clear, before a single Task reaches the Executor.
	denied := o.gateApprovals(runCtx, plan)

	o.setPhase("executing")
	o.sendTrio(models.TrioOrchestrator, models.TrioExecutor, models.TrioKindQuestion, "execute plan")

	execCtx := models.NewExecutionContext(o.workDir, o.env)
	runnable := excludeTasks(plan.Tasks, denied)
	results := o.exec.ExecutePlan(runCtx, &models.Plan{ID: plan.ID, Tasks: runnable}, execCtx)
	results = append(results, denied...)
	o.sendTrio(models.TrioExecutor, models.TrioOrchestrator, models.TrioKindResponse, "execution complete")

	o.mu.Lock()
	o.progress.TasksTotal = len(plan.Tasks)
	o.progress.TasksDone = len(results)
	o.mu.Unlock()

	// Step 6: advisory-only failure recovery (Open Question #1).
	var failed []*models.Task
	for _, task := range results {
		if task.Status == models.TaskFailed || task.Status == models.TaskTimedOut {
			failed = append(failed, task)
		}
	}
	if len(failed) > 0 {
		o.adviseRecovery(runCtx, failed)
	}

	// Step 7: assemble and persist the final response.
	response := o.synthesizeResponse(runCtx, prompt, plan, results, execCtx)
	o.appendConversationTurn(prompt, response)

	toolsUsed := toolsUsedIn(results)
	success := len(failed) == 0
	var resultErr error
	if !success {
		resultErr = fmt.Errorf("%d of %d tasks failed", len(failed), len(results))
	}

	// Step 8: orchestration_complete.
	o.emit(models.AgentEvent{Type: models.AgentEventOrchestrationComplete, Text: &models.TextEventPayload{Text: response}})
	o.setPhase("idle")

	return ExecutionResult{RunID: runID, Success: success, Response: response, ToolsUsed: toolsUsed, Error: resultErr}
}

func (o *Orchestrator) fail(runID string, err error) ExecutionResult {
	o.emit(models.AgentEvent{Type: models.AgentEventOrchestrationError, Error: &models.ErrorEventPayload{Message: err.Error()}})
	o.setPhase("idle")
	return ExecutionResult{RunID: runID, Success: false, Error: err}
}

func (o *Orchestrator) setPhase(phase string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress.Phase = phase
}

// gateApprovals evaluates every ToolCall's tool against the approval
// policy before the plan reaches the Executor. Denied tasks (and anything
// that transitively depends on one) are returned as pre-failed/blocked
// Tasks and excluded from the slice handed to Executor.ExecutePlan.
func (o *Orchestrator) gateApprovals(ctx context.Context, plan *models.Plan) []*models.Task {
	mgr := approval.New(o.approvalPolicy, o.runID)

	deniedIDs := map[string]bool{}
	var deniedTasks []*models.Task

	for _, task := range plan.Tasks {
		var taskDenied bool
		for _, call := range task.ToolCalls {
			tool, err := o.registry.Lookup(call.ToolName)
			if err != nil {
				continue
			}
			decision, req := mgr.Check(tool, task.ID)
			if decision == approval.Pending && req != nil {
				decision = o.resolvePending(ctx, mgr, req)
			}
			if decision == approval.Denied {
				taskDenied = true
			}
		}
		if taskDenied {
			deniedIDs[task.ID] = true
			task.Status = models.TaskFailed
			task.Error = &models.TaskError{TaskID: task.ID, Last: &models.ToolError{Code: models.ToolErrPermissionDenied, Message: "denied by approval policy"}}
			deniedTasks = append(deniedTasks, task)
		}
	}

	// Transitive closure: anything depending on a denied task is blocked.
	changed := true
	for changed {
		changed = false
		for _, task := range plan.Tasks {
			if deniedIDs[task.ID] {
				continue
			}
			for _, dep := range task.Dependencies {
				if deniedIDs[dep] {
					task.Status = models.TaskBlocked
					deniedIDs[task.ID] = true
					deniedTasks = append(deniedTasks, task)
					changed = true
					break
				}
			}
		}
	}

	return deniedTasks
}

// resolvePending consults the configured Approver, if any; with none
// configured, an unresolved Pending request is treated as a denial rather
// than blocking the run indefinitely.
func (o *Orchestrator) resolvePending(ctx context.Context, mgr *approval.Manager, req *approval.Request) approval.Decision {
	o.mu.Lock()
	approver := o.approver
	o.mu.Unlock()

	if approver == nil {
		return approval.Denied
	}
	decision := approver.Decide(ctx, req)
	switch decision {
	case approval.Allowed:
		_ = mgr.Approve(req.ID, "approver")
	default:
		_ = mgr.Deny(req.ID, "approver")
	}
	return decision
}

func excludeTasks(tasks []*models.Task, excluded []*models.Task) []*models.Task {
	skip := map[string]bool{}
	for _, t := range excluded {
		skip[t.ID] = true
	}
	var out []*models.Task
	for _, t := range tasks {
		if !skip[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

// toolsUsedIn lists tools the Executor actually dispatched - tasks the
// approval gate denied or blocked before ExecutePlan ever saw them never
// incremented Attempt and are excluded.
func toolsUsedIn(tasks []*models.Task) []string {
	seen := map[string]bool{}
	var out []string
	for _, task := range tasks {
		if task.Attempt == 0 {
			continue
		}
		for _, call := range task.ToolCalls {
			if !seen[call.ToolName] {
				seen[call.ToolName] = true
				out = append(out, call.ToolName)
			}
		}
	}
	return out
}

func (o *Orchestrator) appendConversationTurn(prompt, response string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.conversation.Append(models.ConversationMessage{Role: models.RoleUser, Content: prompt})
	o.conversation.Append(models.ConversationMessage{Role: models.RoleAssistant, Content: response})
}

func (o *Orchestrator) sendTrio(from, to models.TrioParticipant, kind models.TrioMessageKind, content string) {
	msg := models.TrioMessage{From: from, To: to, Kind: kind, Content: content}
	o.mu.Lock()
	o.trioLog = append(o.trioLog, msg)
	o.mu.Unlock()
	o.emit(models.AgentEvent{Type: models.AgentEventTrioMessage, Trio: &models.TrioEventPayload{From: from, To: to, Kind: kind, Content: content}})
}
