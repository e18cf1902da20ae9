// Package planner implements the Planner (C2): turns a user prompt into
// either a direct conversational answer or a dependency-ordered Plan of
// Tasks, consulting the Tool Registry and an LLM Provider.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agentcore/agentcore/internal/llm"
	"github.com/agentcore/agentcore/internal/registry"
	"github.com/agentcore/agentcore/internal/validate"
	"github.com/agentcore/agentcore/pkg/models"
)

// defaultTimeoutsByClass gives each tool timeout class a concrete duration,
// per §4.2 step 5.
var defaultTimeoutsByClass = map[models.TimeoutClass]int{}

func init() {
	defaultTimeoutsByClass[models.TimeoutClassSearch] = 15
	defaultTimeoutsByClass[models.TimeoutClassFile] = 8
	defaultTimeoutsByClass[models.TimeoutClassShell] = 20
	defaultTimeoutsByClass[models.TimeoutClassTest] = 30
	defaultTimeoutsByClass[models.TimeoutClassDeploy] = 60
}

// defaultTimeoutSeconds is used when a tool carries no TimeoutClass.
const defaultTimeoutSeconds = 10

// rawStep is the shape of one element of the "tasks" plan response.
type rawStep struct {
	ID              string          `json:"id"`
	Description     string          `json:"description"`
	Tool            string          `json:"tool"`
	Arguments       json.RawMessage `json:"arguments"`
	Dependencies    []string        `json:"dependencies"`
	SuccessCriteria string          `json:"success_criteria"`
}

// rawPlan is the structured-output contract the LLM must return: either a
// direct conversational response, or an ordered list of steps.
type rawPlan struct {
	Type     string    `json:"type"`
	Response string    `json:"response"`
	Plan     []rawStep `json:"plan"`
}

// Planner builds Plans against a Tool Registry and an LLM Provider.
type Planner struct {
	registry *registry.Registry
	provider llm.Provider
	model    string
}

// New constructs a Planner.
func New(reg *registry.Registry, provider llm.Provider, model string) *Planner {
	return &Planner{registry: reg, provider: provider, model: model}
}

// CreatePlan is the Planner's single public operation (§4.2).
func (p *Planner) CreatePlan(ctx context.Context, prompt string) (*models.Plan, error) {
	raw, err := p.requestPlan(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if raw.Type == "conversation" {
		return &models.Plan{
			ID:                   uuid.NewString(),
			OriginalPrompt:       prompt,
			Kind:                 models.PlanKindConversation,
			ConversationResponse: raw.Response,
			Complexity:           ClassifyPrompt(prompt),
		}, nil
	}

	tasks, err := p.materializeTasks(raw.Plan)
	if err != nil {
		return nil, err
	}

	applyDependencyHeuristics(tasks)

	sorted, err := topologicalSort(tasks)
	if err != nil {
		return nil, err
	}

	return &models.Plan{
		ID:             uuid.NewString(),
		OriginalPrompt: prompt,
		Kind:           models.PlanKindTasks,
		Tasks:          sorted,
		Complexity:     ClassifyPrompt(prompt),
		Parallelizable: models.ComputeParallelizable(sorted),
	}, nil
}

// requestPlan invokes the LLM with the force-JSON planning contract,
// retrying once with a simplified prompt on a parse failure (§4.2 step 3).
func (p *Planner) requestPlan(ctx context.Context, prompt string) (*rawPlan, error) {
	raw, err := p.completeAndParse(ctx, p.planningPrompt(prompt, false))
	if err == nil {
		return raw, nil
	}

	raw, err2 := p.completeAndParse(ctx, p.planningPrompt(prompt, true))
	if err2 == nil {
		return raw, nil
	}

	return nil, &models.PlannerError{
		Code:    models.PlannerErrUnparseable,
		Message: "LLM did not return a parseable plan after one retry",
		Cause:   err2,
	}
}

func (p *Planner) completeAndParse(ctx context.Context, system string) (*rawPlan, error) {
	req := &llm.CompletionRequest{
		Model:     p.model,
		System:    system,
		Messages:  []llm.CompletionMessage{{Role: models.RoleUser, Content: "Produce the plan now."}},
		ForceJSON: true,
	}
	chunks, err := p.provider.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("planner: completion request: %w", err)
	}

	var text strings.Builder
	for chunk := range chunks {
		if chunk.Error != nil {
			return nil, chunk.Error
		}
		text.WriteString(chunk.Text)
	}

	var raw rawPlan
	if err := json.Unmarshal([]byte(extractJSON(text.String())), &raw); err != nil {
		return nil, fmt.Errorf("planner: parsing plan response: %w", err)
	}
	if raw.Type != "conversation" && raw.Type != "tasks" {
		return nil, fmt.Errorf("planner: unrecognized plan type %q", raw.Type)
	}
	return &raw, nil
}

// extractJSON trims any leading/trailing prose a model adds despite the
// force-JSON instruction, keeping only the outermost {...} span.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

// planningPrompt formats the tool manifest and instructions into the
// system prompt sent to the LLM. simplified drops the narrative framing on
// retry, keeping only the hard contract.
func (p *Planner) planningPrompt(userPrompt string, simplified bool) string {
	var b strings.Builder

	if !simplified {
		b.WriteString("You are the planning stage of an autonomous agent. ")
		b.WriteString("Given a user request, decide whether it can be answered directly ")
		b.WriteString("in conversation, or whether it requires executing tools.\n\n")
	}

	b.WriteString("Available tools:\n")
	for _, tool := range p.registry.Enumerate() {
		b.WriteString(fmt.Sprintf("- %s: %s (params: %s)\n", tool.Name, tool.Description, paramSummary(tool.Schema)))
	}

	b.WriteString("\nRespond with exactly one JSON object, no prose, matching one of:\n")
	b.WriteString(`{"type":"conversation","response":"..."}` + "\n")
	b.WriteString(`{"type":"tasks","plan":[{"id":"t1","description":"...","tool":"...","arguments":{...},"dependencies":[],"success_criteria":"..."}]}` + "\n")
	b.WriteString("Rules: one tool per task. Earlier tasks satisfy later tasks' prerequisites. ")
	b.WriteString("Give each task an explicit success_criteria. Use at most 8 tasks.\n\n")
	b.WriteString("User request: ")
	b.WriteString(userPrompt)

	return b.String()
}

func paramSummary(schema models.Schema) string {
	if len(schema.Params) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(schema.Params))
	for _, param := range schema.Params {
		marker := ""
		if param.Required {
			marker = "*"
		}
		parts = append(parts, fmt.Sprintf("%s%s:%s", param.Name, marker, param.Type))
	}
	return strings.Join(parts, ", ")
}

// materializeTasks resolves each rawStep against the registry and
// validates its arguments, per §4.2 steps 5.
func (p *Planner) materializeTasks(steps []rawStep) ([]*models.Task, error) {
	tasks := make([]*models.Task, 0, len(steps))

	for _, step := range steps {
		tool, err := p.registry.Lookup(step.Tool)
		if err != nil {
			return nil, &models.PlannerError{Code: models.PlannerErrUnknownTool, Message: step.Tool, Cause: err}
		}

		if err := validate.ValidateArguments(tool, step.Arguments); err != nil {
			return nil, &models.PlannerError{Code: models.PlannerErrBadArguments, Message: step.ID, Cause: err}
		}

		id := step.ID
		if id == "" {
			id = uuid.NewString()
		}

		tasks = append(tasks, &models.Task{
			ID:           id,
			Description:  step.Description,
			Dependencies: append([]string{}, step.Dependencies...),
			Status:       models.TaskPending,
			MaxAttempts:  defaultMaxAttempts(tool),
			Timeout:      defaultTimeout(tool),
			ToolCalls: []models.ToolCall{{
				ID:        uuid.NewString(),
				ToolName:  tool.Name,
				Arguments: step.Arguments,
			}},
		})
	}

	return tasks, nil
}

func defaultMaxAttempts(tool models.Tool) int {
	if tool.Capabilities.Has(models.CapExecutesShell) || tool.Capabilities.Has(models.CapMutatesVCS) {
		return 2
	}
	return 3
}

func defaultTimeout(tool models.Tool) time.Duration {
	seconds, ok := defaultTimeoutsByClass[tool.TimeoutClass]
	if !ok {
		seconds = defaultTimeoutSeconds
	}
	return time.Duration(seconds) * time.Second
}
