// Package registry implements the Tool Registry (C1): an immutable-after-
// startup name -> descriptor mapping consulted by the Planner when building
// a plan and by the Executor when dispatching a ToolCall.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/agentcore/agentcore/pkg/models"
)

// ErrDuplicateTool is returned by Register when a tool with the same name
// is already registered. Unlike the teacher's ToolRegistry, which silently
// replaces on re-registration, this registry treats re-registration as a
// startup configuration error - §4.1 requires Register to fail rather than
// overwrite.
type ErrDuplicateTool struct {
	Name string
}

func (e *ErrDuplicateTool) Error() string {
	return fmt.Sprintf("registry: tool %q already registered", e.Name)
}

// ErrUnknownTool is returned by Lookup when no tool with the given name has
// been registered.
type ErrUnknownTool struct {
	Name string
}

func (e *ErrUnknownTool) Error() string {
	return fmt.Sprintf("registry: unknown tool %q", e.Name)
}

// Registry holds Tool descriptors registered once at startup and consulted
// read-only for the remainder of the process's life. It is safe for
// concurrent Lookup/Enumerate from many goroutines; Register is intended to
// be called only during startup wiring, but is still synchronized.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]models.Tool
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{tools: make(map[string]models.Tool)}
}

// Register adds a Tool descriptor. It fails with ErrDuplicateTool if a tool
// with the same name is already present.
func (r *Registry) Register(tool models.Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name]; exists {
		return &ErrDuplicateTool{Name: tool.Name}
	}
	r.tools[tool.Name] = tool
	return nil
}

// Lookup resolves a tool by name.
func (r *Registry) Lookup(name string) (models.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	if !ok {
		return models.Tool{}, &ErrUnknownTool{Name: name}
	}
	return tool, nil
}

// Enumerate returns every registered Tool in stable (name-sorted) order, for
// use when the Planner formats the tool manifest into a planning prompt.
func (r *Registry) Enumerate() []models.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]models.Tool, 0, len(names))
	for _, name := range names {
		out = append(out, r.tools[name])
	}
	return out
}

// Len reports the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
