// Package llm abstracts over concrete LLM backends (Anthropic, OpenAI,
// AWS Bedrock) behind a single streaming completion interface consumed by
// the Planner (structured-output plans) and the Executor (content
// synthesis for dependent writes).
package llm

import (
	"context"
	"time"

	"github.com/agentcore/agentcore/pkg/models"
)

// Provider is the external LLM client interface named in §6. Every
// concrete backend streams response chunks on the returned channel; the
// channel is closed when the response completes, errors, or ctx is
// cancelled.
type Provider interface {
	// Complete starts a completion request and streams chunks back.
	Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error)

	// Name identifies the provider ("anthropic", "openai", "bedrock").
	Name() string

	// Models lists the models this provider can serve.
	Models() []Model

	// SupportsTools reports whether this provider can accept tool
	// definitions and emit tool_use/function_call chunks.
	SupportsTools() bool
}

// CompletionRequest is a provider-agnostic request for a single completion.
type CompletionRequest struct {
	Model     string
	System    string
	Messages  []CompletionMessage
	Tools     []ToolDefinition
	MaxTokens int

	// ForceJSON instructs the backend to constrain output to a single
	// JSON value, per the Planner's structured-output contract (§4.2).
	ForceJSON bool
}

// CompletionMessage is one turn of conversation sent to the provider.
type CompletionMessage struct {
	Role        models.Role
	Content     string
	ToolCalls   []models.ToolCall
	ToolResults []models.ToolResult
}

// ToolDefinition is the provider-facing shape of a registered models.Tool,
// built by translating its models.Schema into the wire format each backend
// expects (JSON Schema for OpenAI/Bedrock, Anthropic's input_schema).
type ToolDefinition struct {
	Name        string
	Description string
	Schema      models.Schema
}

// CompletionChunk is one unit of a streamed completion.
type CompletionChunk struct {
	Text     string
	ToolCall *models.ToolCall
	Done     bool
	Error    error

	InputTokens  int
	OutputTokens int
}

// Model describes a model a Provider can serve.
type Model struct {
	ID            string
	Name          string
	ContextWindow int
}

// DefaultTimeout bounds a single non-streaming provider call when the
// caller does not set its own context deadline.
const DefaultTimeout = 2 * time.Minute
