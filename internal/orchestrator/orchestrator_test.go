package orchestrator

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/agentcore/agentcore/internal/approval"
	"github.com/agentcore/agentcore/internal/executor"
	"github.com/agentcore/agentcore/internal/llm"
	"github.com/agentcore/agentcore/internal/registry"
	"github.com/agentcore/agentcore/pkg/models"
)

type fakeProvider struct {
	responses []string
	calls     int
}

func (f *fakeProvider) Complete(ctx context.Context, req *llm.CompletionRequest) (<-chan *llm.CompletionChunk, error) {
	idx := f.calls
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	f.calls++
	out := make(chan *llm.CompletionChunk, 1)
	out <- &llm.CompletionChunk{Text: f.responses[idx], Done: true}
	close(out)
	return out, nil
}

func (f *fakeProvider) Name() string        { return "fake" }
func (f *fakeProvider) Models() []llm.Model { return nil }
func (f *fakeProvider) SupportsTools() bool { return true }

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	must := func(err error) {
		if err != nil {
			t.Fatalf("registering tool: %v", err)
		}
	}
	must(r.Register(models.Tool{
		Name:         "read_file",
		Capabilities: models.NewCapabilitySet(models.CapReadsFS),
		Schema:       models.Schema{Params: []models.Param{{Name: "path", Type: models.ParamString, Required: true}}},
	}))
	must(r.Register(models.Tool{
		Name:         "write_file",
		Capabilities: models.NewCapabilitySet(models.CapWritesFS),
		Schema: models.Schema{Params: []models.Param{
			{Name: "path", Type: models.ParamString, Required: true},
			{Name: "content", Type: models.ParamString, Required: true},
		}},
	}))
	return r
}

func newTestOrchestrator(t *testing.T, fake *fakeProvider, autoApprove bool) *Orchestrator {
	t.Helper()
	reg := testRegistry(t)
	cfg := Config{
		Model:            "test-model",
		WorkingDirectory: "/work",
		ApprovalPolicy:   approval.Policy{AutoApprove: autoApprove},
		ExecutorConfig:   executor.DefaultConfig(),
	}
	o := New(reg, fake, cfg, nil, nil)
	o.Executor().RegisterHandler("read_file", executor.HandlerFunc(func(ctx context.Context, args json.RawMessage, previous map[string]any) (*models.ToolResult, error) {
		return &models.ToolResult{Success: true, Output: json.RawMessage(`"file contents"`)}, nil
	}))
	o.Executor().RegisterHandler("write_file", executor.HandlerFunc(func(ctx context.Context, args json.RawMessage, previous map[string]any) (*models.ToolResult, error) {
		return &models.ToolResult{Success: true, Output: json.RawMessage(`"written"`)}, nil
	}))
	return o
}

func TestExecuteSlashCommandNeverConsultsPlanner(t *testing.T) {
	fake := &fakeProvider{responses: []string{"should never be used"}}
	o := newTestOrchestrator(t, fake, true)

	result := o.Execute(context.Background(), "/help")
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if fake.calls != 0 {
		t.Fatalf("expected no LLM calls for a slash command, got %d", fake.calls)
	}
}

func TestExecuteConversationPlanAppendsConversationTurn(t *testing.T) {
	fake := &fakeProvider{responses: []string{`{"type":"conversation","response":"Paris is the capital of France."}`}}
	o := newTestOrchestrator(t, fake, true)

	result := o.Execute(context.Background(), "What is the capital of France?")
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.Response != "Paris is the capital of France." {
		t.Fatalf("unexpected response: %q", result.Response)
	}
	if o.conversation.Len() != 2 {
		t.Fatalf("expected 2 conversation turns, got %d", o.conversation.Len())
	}
}

func TestExecuteTasksPlanWithFileWriteReturnsDone(t *testing.T) {
	resp := `{"type":"tasks","plan":[
		{"id":"t1","description":"write notes.txt","tool":"write_file","arguments":{"path":"notes.txt","content":"hi"}}
	]}`
	fake := &fakeProvider{responses: []string{resp}}
	o := newTestOrchestrator(t, fake, true)

	result := o.Execute(context.Background(), "write hi to notes.txt")
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.Response != "Done." {
		t.Fatalf("expected terse Done. response, got %q", result.Response)
	}
	if len(result.ToolsUsed) != 1 || result.ToolsUsed[0] != "write_file" {
		t.Fatalf("expected write_file in tools used, got %v", result.ToolsUsed)
	}
	if fake.calls != 1 {
		t.Fatalf("expected only the planning call (no response synthesis for file effects), got %d", fake.calls)
	}
}

func TestExecuteDeniesApprovalAndBlocksDependents(t *testing.T) {
	resp := `{"type":"tasks","plan":[
		{"id":"t1","description":"write notes.txt","tool":"write_file","arguments":{"path":"notes.txt","content":"hi"}},
		{"id":"t2","description":"read notes.txt","tool":"read_file","arguments":{"path":"notes.txt"},"dependencies":["t1"]}
	]}`
	fake := &fakeProvider{responses: []string{resp}}
	o := newTestOrchestrator(t, fake, false)

	result := o.Execute(context.Background(), "write then read notes.txt")
	if result.Success {
		t.Fatal("expected failure when approval is denied")
	}
	if len(result.ToolsUsed) != 0 {
		t.Fatalf("expected no tools actually invoked, got %v", result.ToolsUsed)
	}
}

func TestExecuteRunsRecoveryAdvisoryOnTaskFailure(t *testing.T) {
	resp := `{"type":"tasks","plan":[
		{"id":"t1","description":"read missing.txt","tool":"read_file","arguments":{"path":"missing.txt"}}
	]}`
	fake := &fakeProvider{responses: []string{resp, "try reading a different file instead"}}
	o := newTestOrchestrator(t, fake, true)
	o.Executor().RegisterHandler("read_file", executor.HandlerFunc(func(ctx context.Context, args json.RawMessage, previous map[string]any) (*models.ToolResult, error) {
		return nil, &models.ToolError{Code: models.ToolErrPermissionDenied, ToolName: "read_file", Message: "denied"}
	}))

	result := o.Execute(context.Background(), "read missing.txt")
	if result.Success {
		t.Fatal("expected failure")
	}
	if fake.calls != 2 {
		t.Fatalf("expected a planning call plus one recovery advisory call, got %d", fake.calls)
	}

	found := false
	for _, msg := range o.trioLog {
		if msg.Kind == models.TrioKindAdjustment {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a trio adjustment message from the recovery advisory")
	}
}

func TestStatusReflectsPhaseAfterRun(t *testing.T) {
	fake := &fakeProvider{responses: []string{`{"type":"conversation","response":"ok"}`}}
	o := newTestOrchestrator(t, fake, true)
	o.Execute(context.Background(), "hello")

	if o.Status().Phase != "idle" {
		t.Fatalf("expected idle phase after completion, got %s", o.Status().Phase)
	}
}

func TestClearConversationEmptiesHistory(t *testing.T) {
	fake := &fakeProvider{responses: []string{`{"type":"conversation","response":"ok"}`}}
	o := newTestOrchestrator(t, fake, true)
	o.Execute(context.Background(), "hello")

	if o.conversation.Len() == 0 {
		t.Fatal("expected conversation to have turns before clearing")
	}
	o.ClearConversation()
	if o.conversation.Len() != 0 {
		t.Fatal("expected conversation to be empty after clear")
	}
}
