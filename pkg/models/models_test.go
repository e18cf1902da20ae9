package models

import (
	"errors"
	"testing"
)

func TestTaskReadyAndBlocked(t *testing.T) {
	task := &Task{ID: "t2", Dependencies: []string{"t1"}}

	done := map[string]TaskStatus{"t1": TaskRunning}
	if task.Ready(done) {
		t.Fatal("expected not ready while dependency is running")
	}
	if task.Blocked(done) {
		t.Fatal("expected not blocked while dependency is running")
	}

	done["t1"] = TaskSucceeded
	if !task.Ready(done) {
		t.Fatal("expected ready once dependency succeeded")
	}

	done["t1"] = TaskFailed
	if !task.Blocked(done) {
		t.Fatal("expected blocked once dependency failed terminally")
	}
}

func TestTaskCanRetry(t *testing.T) {
	task := &Task{Status: TaskFailed, Attempt: 1, MaxAttempts: 3}
	if !task.CanRetry() {
		t.Fatal("expected retry allowed below max attempts")
	}
	task.Attempt = 3
	if task.CanRetry() {
		t.Fatal("expected no retry at max attempts")
	}
}

func TestTaskStatusTerminal(t *testing.T) {
	terminal := []TaskStatus{TaskSucceeded, TaskFailed, TaskTimedOut, TaskAborted, TaskBlocked}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	nonTerminal := []TaskStatus{TaskPending, TaskReady, TaskRunning, TaskRetrying}
	for _, s := range nonTerminal {
		if s.Terminal() {
			t.Errorf("expected %s to be non-terminal", s)
		}
	}
}

func TestComputeParallelizable(t *testing.T) {
	single := []*Task{{ID: "a"}, {ID: "b", Dependencies: []string{"a"}}}
	if ComputeParallelizable(single) {
		t.Fatal("expected not parallelizable with a single root")
	}

	multi := []*Task{{ID: "a"}, {ID: "b"}, {ID: "c", Dependencies: []string{"a", "b"}}}
	if !ComputeParallelizable(multi) {
		t.Fatal("expected parallelizable with two roots")
	}
}

func TestClassifyComplexity(t *testing.T) {
	cases := map[int]Complexity{
		0: ComplexitySimple,
		2: ComplexitySimple,
		3: ComplexityModerate,
		5: ComplexityModerate,
		6: ComplexityComplex,
		9: ComplexityComplex,
	}
	for score, want := range cases {
		if got := ClassifyComplexity(score); got != want {
			t.Errorf("ClassifyComplexity(%d) = %s, want %s", score, got, want)
		}
	}
}

func TestCapabilitySetRequiresApproval(t *testing.T) {
	readOnly := NewCapabilitySet(CapReadsFS, CapAccessNetwork)
	if readOnly.RequiresApproval() {
		t.Fatal("expected read-only capabilities to not require approval")
	}

	writer := NewCapabilitySet(CapWritesFS)
	if !writer.RequiresApproval() {
		t.Fatal("expected writes_fs to require approval")
	}

	shell := NewCapabilitySet(CapExecutesShell)
	if !shell.RequiresApproval() {
		t.Fatal("expected executes_shell to require approval")
	}
}

func TestSchemaRequiredNamesAndLookup(t *testing.T) {
	schema := Schema{Params: []Param{
		{Name: "path", Type: ParamString, Required: true},
		{Name: "recursive", Type: ParamBoolean},
	}}

	required := schema.RequiredNames()
	if len(required) != 1 || required[0] != "path" {
		t.Fatalf("unexpected required names: %v", required)
	}

	if _, ok := schema.Lookup("missing"); ok {
		t.Fatal("expected lookup miss for unknown param")
	}
	if p, ok := schema.Lookup("recursive"); !ok || p.Type != ParamBoolean {
		t.Fatalf("unexpected lookup result: %+v", p)
	}
}

func TestToolErrorRetryable(t *testing.T) {
	retryable := &ToolError{Code: ToolErrTimeout}
	if !retryable.Retryable() {
		t.Fatal("expected timeout to be retryable")
	}
	nonRetryable := &ToolError{Code: ToolErrPermissionDenied}
	if nonRetryable.Retryable() {
		t.Fatal("expected permission_denied to not be retryable")
	}
}

func TestTaskErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	toolErr := &ToolError{Code: ToolErrRuntime, ToolName: "shell", Cause: cause}
	taskErr := &TaskError{TaskID: "t1", Attempt: 2, Last: toolErr}

	if !errors.Is(taskErr, cause) {
		t.Fatal("expected errors.Is to unwrap through TaskError and ToolError to the cause")
	}
}

func TestConversationAppendAndClear(t *testing.T) {
	conv := &Conversation{SessionID: "s1"}
	conv.Append(ConversationMessage{Role: RoleUser, Content: "hi"})
	conv.Append(ConversationMessage{Role: RoleAssistant, Content: "hello"})

	if conv.Len() != 2 {
		t.Fatalf("expected 2 messages, got %d", conv.Len())
	}

	conv.Clear()
	if conv.Len() != 0 {
		t.Fatalf("expected 0 messages after clear, got %d", conv.Len())
	}
}
