package planner

import (
	"encoding/json"
	"strings"

	"github.com/agentcore/agentcore/pkg/models"
)

// applyDependencyHeuristics augments the LLM's declared dependencies with
// the derivations named in §4.2 step 6: a write depends on the latest read
// of the same file; a test-like task depends on preceding create/implement
// tasks; a deploy-like task depends on preceding test tasks.
func applyDependencyHeuristics(tasks []*models.Task) {
	lastReadOfPath := map[string]string{}
	var testTaskIDs []string
	var createTaskIDs []string

	for _, task := range tasks {
		tc := primaryToolCall(task)
		if tc == nil {
			continue
		}

		path := extractPathArg(tc.Arguments)
		verb := strings.ToLower(task.Description)

		switch {
		case path != "" && isReadLike(tc.ToolName):
			lastReadOfPath[path] = task.ID
		case path != "" && isWriteLike(tc.ToolName):
			if dep, ok := lastReadOfPath[path]; ok {
				addDependency(task, dep)
			}
		}

		if containsAny(verb, "test", "verify", "check") {
			testTaskIDs = append(testTaskIDs, task.ID)
			for _, createID := range createTaskIDs {
				addDependency(task, createID)
			}
		}
		if containsAny(verb, "create", "implement", "write", "add") {
			createTaskIDs = append(createTaskIDs, task.ID)
		}
		if containsAny(verb, "deploy", "release", "publish") {
			for _, testID := range testTaskIDs {
				addDependency(task, testID)
			}
		}
	}
}

func primaryToolCall(task *models.Task) *models.ToolCall {
	if len(task.ToolCalls) == 0 {
		return nil
	}
	return &task.ToolCalls[0]
}

func addDependency(task *models.Task, dep string) {
	if dep == "" || dep == task.ID {
		return
	}
	for _, existing := range task.Dependencies {
		if existing == dep {
			return
		}
	}
	task.Dependencies = append(task.Dependencies, dep)
}

func isReadLike(toolName string) bool {
	return containsAny(strings.ToLower(toolName), "read", "search", "grep", "list")
}

func isWriteLike(toolName string) bool {
	return containsAny(strings.ToLower(toolName), "write", "edit", "delete", "create")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func extractPathArg(args json.RawMessage) string {
	if len(args) == 0 {
		return ""
	}
	var decoded map[string]any
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

// topologicalSort orders tasks by dependency using Kahn's algorithm,
// returning models.PlannerError{Code: CyclicDependencies} if a cycle
// remains after every resolvable node is removed.
func topologicalSort(tasks []*models.Task) ([]*models.Task, error) {
	byID := make(map[string]*models.Task, len(tasks))
	inDegree := make(map[string]int, len(tasks))
	dependents := make(map[string][]string, len(tasks))

	for _, t := range tasks {
		byID[t.ID] = t
		if _, ok := inDegree[t.ID]; !ok {
			inDegree[t.ID] = 0
		}
	}
	for _, t := range tasks {
		for _, dep := range t.Dependencies {
			if _, ok := byID[dep]; !ok {
				continue // dependency outside this plan is ignored, not an error
			}
			inDegree[t.ID]++
			dependents[dep] = append(dependents[dep], t.ID)
		}
	}

	var queue []string
	for _, t := range tasks {
		if inDegree[t.ID] == 0 {
			queue = append(queue, t.ID)
		}
	}

	sorted := make([]*models.Task, 0, len(tasks))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		sorted = append(sorted, byID[id])

		for _, child := range dependents[id] {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if len(sorted) != len(tasks) {
		return nil, &models.PlannerError{Code: models.PlannerErrCyclicDependencies, Message: "task dependency graph contains a cycle"}
	}
	return sorted, nil
}
