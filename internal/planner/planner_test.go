package planner

import (
	"context"
	"testing"

	"github.com/agentcore/agentcore/internal/llm"
	"github.com/agentcore/agentcore/internal/registry"
	"github.com/agentcore/agentcore/pkg/models"
)

// fakeProvider returns its canned text responses in order (repeating the
// last one once they run out), matching the
// llm.Provider interface just enough for CreatePlan to exercise the
// parse-once-retry-once contract.
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

func (f *fakeProvider) Name() string          { return "fake" }
func (f *fakeProvider) Models() []llm.Model   { return nil }
func (f *fakeProvider) SupportsTools() bool   { return true }

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

func TestCreatePlanConversation(t *testing.T) {
	r := testRegistry(t)
	fake := &fakeProvider{responses: []string{`{"type":"conversation","response":"Paris is the capital of France."}`}}
	p := New(r, fake, "test-model")

	plan, err := p.CreatePlan(context.Background(), "What is the capital of France?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Kind != models.PlanKindConversation {
		t.Fatalf("expected conversation plan, got %s", plan.Kind)
	}
	if len(plan.Tasks) != 0 {
		t.Fatalf("expected no tasks for a conversation plan, got %d", len(plan.Tasks))
	}
}

func TestCreatePlanTasksWithDependencyHeuristic(t *testing.T) {
	r := testRegistry(t)
	resp := `{"type":"tasks","plan":[
		{"id":"t1","description":"read the file notes.txt","tool":"read_file","arguments":{"path":"notes.txt"}},
		{"id":"t2","description":"write the file notes.txt","tool":"write_file","arguments":{"path":"notes.txt","content":"hi"}}
	]}`
	fake := &fakeProvider{responses: []string{resp}}
	p := New(r, fake, "test-model")

	plan, err := p.CreatePlan(context.Background(), "read notes.txt then update it")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Kind != models.PlanKindTasks {
		t.Fatalf("expected tasks plan, got %s", plan.Kind)
	}
	if len(plan.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(plan.Tasks))
	}
	if plan.Tasks[0].ID != "t1" || plan.Tasks[1].ID != "t2" {
		t.Fatalf("expected topologically sorted [t1, t2], got order %v", taskIDs(plan.Tasks))
	}
	if len(plan.Tasks[1].Dependencies) != 1 || plan.Tasks[1].Dependencies[0] != "t1" {
		t.Fatalf("expected write task to depend on the read task, got %v", plan.Tasks[1].Dependencies)
	}
}

func TestCreatePlanRetriesOnceOnUnparseableResponse(t *testing.T) {
	r := testRegistry(t)
	fake := &fakeProvider{responses: []string{
		"not json at all",
		`{"type":"conversation","response":"recovered"}`,
	}}
	p := New(r, fake, "test-model")

	plan, err := p.CreatePlan(context.Background(), "hello")
	if err != nil {
		t.Fatalf("expected retry to succeed, got error: %v", err)
	}
	if plan.ConversationResponse != "recovered" {
		t.Fatalf("expected recovered response, got %q", plan.ConversationResponse)
	}
	if fake.calls != 2 {
		t.Fatalf("expected exactly 2 calls (initial + one retry), got %d", fake.calls)
	}
}

func TestCreatePlanFailsAfterRetryExhausted(t *testing.T) {
	r := testRegistry(t)
	fake := &fakeProvider{responses: []string{"garbage", "still garbage"}}
	p := New(r, fake, "test-model")

	_, err := p.CreatePlan(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error after exhausting retry")
	}
	var perr *models.PlannerError
	if !asPlannerError(err, &perr) {
		t.Fatalf("expected PlannerError, got %T: %v", err, err)
	}
	if perr.Code != models.PlannerErrUnparseable {
		t.Fatalf("expected Unparseable, got %s", perr.Code)
	}
}

func TestCreatePlanUnknownToolRejected(t *testing.T) {
	r := testRegistry(t)
	resp := `{"type":"tasks","plan":[{"id":"t1","description":"do a thing","tool":"nonexistent_tool","arguments":{}}]}`
	fake := &fakeProvider{responses: []string{resp}}
	p := New(r, fake, "test-model")

	_, err := p.CreatePlan(context.Background(), "do something")
	var perr *models.PlannerError
	if !asPlannerError(err, &perr) || perr.Code != models.PlannerErrUnknownTool {
		t.Fatalf("expected UnknownTool PlannerError, got %T: %v", err, err)
	}
}

func TestTopologicalSortDetectsCycle(t *testing.T) {
	tasks := []*models.Task{
		{ID: "a", Dependencies: []string{"b"}},
		{ID: "b", Dependencies: []string{"a"}},
	}
	_, err := topologicalSort(tasks)
	if err == nil {
		t.Fatal("expected cycle detection error")
	}
	var perr *models.PlannerError
	if !asPlannerError(err, &perr) || perr.Code != models.PlannerErrCyclicDependencies {
		t.Fatalf("expected CyclicDependencies, got %T: %v", err, err)
	}
}

func TestTopologicalSortOrdersByDependency(t *testing.T) {
	tasks := []*models.Task{
		{ID: "c", Dependencies: []string{"a", "b"}},
		{ID: "a"},
		{ID: "b", Dependencies: []string{"a"}},
	}
	sorted, err := topologicalSort(tasks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pos := map[string]int{}
	for i, t := range sorted {
		pos[t.ID] = i
	}
	if pos["a"] > pos["b"] || pos["b"] > pos["c"] {
		t.Fatalf("expected order a,b,c; got %v", taskIDs(sorted))
	}
}

func TestClassifyPromptThresholds(t *testing.T) {
	simple := ClassifyPrompt("what is the capital of France")
	if simple != models.ComplexitySimple {
		t.Fatalf("expected simple, got %s", simple)
	}

	complex := ClassifyPrompt("First refactor the database migration schema, then deploy it, then run a regression check.\n1. write the file of results\n2. step two")
	if complex != models.ComplexityComplex {
		t.Fatalf("expected complex, got %s", complex)
	}
}

func taskIDs(tasks []*models.Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

func asPlannerError(err error, target **models.PlannerError) bool {
	if pe, ok := err.(*models.PlannerError); ok {
		*target = pe
		return true
	}
	return false
}
