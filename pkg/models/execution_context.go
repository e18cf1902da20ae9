package models

import "sync"

// ExecutionContext is the per-run side-effect ledger shared across a
// Plan's execution: the working directory and environment for tool
// dispatch, the effects tools have produced so far, and each task's
// output so dependents can read it. One ExecutionContext is created per
// Orchestrator.execute call and discarded at the end of the run.
type ExecutionContext struct {
	mu sync.RWMutex

	WorkingDirectory string
	Environment      map[string]string

	CreatedFiles  []string
	ModifiedFiles []string
	DeletedFiles  []string
	Commands      []string
	WebQueries    []string

	outputs map[string]any
}

// NewExecutionContext builds an empty ExecutionContext rooted at dir.
func NewExecutionContext(dir string, env map[string]string) *ExecutionContext {
	return &ExecutionContext{
		WorkingDirectory: dir,
		Environment:      env,
		outputs:          make(map[string]any),
	}
}

// RecordOutput stores a completed task's output for dependents to read.
func (c *ExecutionContext) RecordOutput(taskID string, output any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outputs[taskID] = output
}

// Output returns a previously recorded task's output, read-only.
func (c *ExecutionContext) Output(taskID string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out, ok := c.outputs[taskID]
	return out, ok
}

// Outputs returns a read-only snapshot of outputs for the given task ids,
// the "previous_results" view a Tool handler receives.
func (c *ExecutionContext) Outputs(taskIDs []string) map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(taskIDs))
	for _, id := range taskIDs {
		if v, ok := c.outputs[id]; ok {
			out[id] = v
		}
	}
	return out
}

// RecordFileCreated appends to the created-files ledger.
func (c *ExecutionContext) RecordFileCreated(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CreatedFiles = append(c.CreatedFiles, path)
}

// RecordFileModified appends to the modified-files ledger.
func (c *ExecutionContext) RecordFileModified(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ModifiedFiles = append(c.ModifiedFiles, path)
}

// RecordCommand appends to the executed-commands ledger.
func (c *ExecutionContext) RecordCommand(cmd string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Commands = append(c.Commands, cmd)
}

// HasFileEffects reports whether any tool in this run wrote, modified, or
// deleted a file - the Orchestrator uses this to decide between a terse
// "Done." response and a synthesized answer (§4.4 step 7).
func (c *ExecutionContext) HasFileEffects() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.CreatedFiles) > 0 || len(c.ModifiedFiles) > 0 || len(c.DeletedFiles) > 0
}
