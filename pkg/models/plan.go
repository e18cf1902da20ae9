package models

// PlanKind distinguishes a direct conversational answer from a task graph.
type PlanKind string

const (
	PlanKindConversation PlanKind = "conversation"
	PlanKindTasks        PlanKind = "tasks"
)

// Complexity is the Planner's advisory classification of a request. It may
// be used by the Orchestrator to pick a fast path but must never alter task
// semantics.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// Plan is the Planner's output for a single user prompt.
type Plan struct {
	ID              string     `json:"id"`
	OriginalPrompt  string     `json:"original_prompt"`
	Kind            PlanKind   `json:"kind"`
	Tasks           []*Task    `json:"tasks,omitempty"`
	Complexity      Complexity `json:"complexity,omitempty"`
	Parallelizable  bool       `json:"parallelizable,omitempty"`

	// ConversationResponse carries the final answer when Kind ==
	// PlanKindConversation; Tasks is empty in that case.
	ConversationResponse string `json:"conversation_response,omitempty"`
}

// ComputeParallelizable reports whether at least two tasks have no
// dependencies, matching the §3 Plan invariant.
func ComputeParallelizable(tasks []*Task) bool {
	roots := 0
	for _, t := range tasks {
		if len(t.Dependencies) == 0 {
			roots++
			if roots >= 2 {
				return true
			}
		}
	}
	return false
}

// ClassifyComplexity scores a prompt per §4.2 step 8. It is advisory only.
func ClassifyComplexity(score int) Complexity {
	switch {
	case score >= 6:
		return ComplexityComplex
	case score >= 3:
		return ComplexityModerate
	default:
		return ComplexitySimple
	}
}
