package approval

import (
	"testing"
	"time"

	"github.com/agentcore/agentcore/pkg/models"
)

func toolWithCaps(name string, caps ...models.Capability) models.Tool {
	return models.Tool{Name: name, Capabilities: models.NewCapabilitySet(caps...)}
}

func TestEvaluateReadOnlyToolAllowedByDefault(t *testing.T) {
	decision, _ := Evaluate(DefaultPolicy(), toolWithCaps("read_file", models.CapReadsFS))
	if decision != Allowed {
		t.Fatalf("expected Allowed, got %s", decision)
	}
}

func TestEvaluateWritesFSRequiresApproval(t *testing.T) {
	decision, _ := Evaluate(DefaultPolicy(), toolWithCaps("write_file", models.CapWritesFS))
	if decision != Pending {
		t.Fatalf("expected Pending, got %s", decision)
	}
}

func TestEvaluateExecutesShellRequiresApproval(t *testing.T) {
	decision, _ := Evaluate(DefaultPolicy(), toolWithCaps("run_shell", models.CapExecutesShell))
	if decision != Pending {
		t.Fatalf("expected Pending, got %s", decision)
	}
}

func TestEvaluateDenylistOverridesCapabilities(t *testing.T) {
	policy := DefaultPolicy()
	policy.Denylist = []string{"rm_rf"}
	decision, _ := Evaluate(policy, toolWithCaps("rm_rf", models.CapReadsFS))
	if decision != Denied {
		t.Fatalf("expected Denied, got %s", decision)
	}
}

func TestEvaluateAllowlistOverridesCapabilities(t *testing.T) {
	policy := DefaultPolicy()
	policy.Allowlist = []string{"write_file"}
	decision, _ := Evaluate(policy, toolWithCaps("write_file", models.CapWritesFS))
	if decision != Allowed {
		t.Fatalf("expected Allowed, got %s", decision)
	}
}

func TestEvaluateWildcardAllowlist(t *testing.T) {
	policy := DefaultPolicy()
	policy.Allowlist = []string{"git_*"}
	decision, _ := Evaluate(policy, toolWithCaps("git_commit", models.CapMutatesVCS))
	if decision != Allowed {
		t.Fatalf("expected Allowed, got %s", decision)
	}
}

func TestManagerCheckAutoApproveResolvesPendingImmediately(t *testing.T) {
	policy := DefaultPolicy()
	policy.AutoApprove = true
	mgr := New(policy, "run-1")

	decision, req := mgr.Check(toolWithCaps("write_file", models.CapWritesFS), "t1")
	if decision != Allowed {
		t.Fatalf("expected Allowed under auto-approve, got %s", decision)
	}
	if req != nil {
		t.Fatal("expected no pending request under auto-approve")
	}
}

func TestManagerCheckCreatesPendingRequest(t *testing.T) {
	mgr := New(DefaultPolicy(), "run-1")

	decision, req := mgr.Check(toolWithCaps("write_file", models.CapWritesFS), "t1")
	if decision != Pending {
		t.Fatalf("expected Pending, got %s", decision)
	}
	if req == nil {
		t.Fatal("expected a pending request")
	}
	pending := mgr.Pending()
	if len(pending) != 1 || pending[0].ID != req.ID {
		t.Fatalf("expected request to be listed pending, got %+v", pending)
	}
}

func TestManagerApproveResolvesRequest(t *testing.T) {
	mgr := New(DefaultPolicy(), "run-1")
	_, req := mgr.Check(toolWithCaps("write_file", models.CapWritesFS), "t1")

	if err := mgr.Approve(req.ID, "operator"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if len(mgr.Pending()) != 0 {
		t.Fatal("expected no pending requests after approval")
	}
	if err := mgr.Approve(req.ID, "operator"); err != ErrAlreadyDecided {
		t.Fatalf("expected ErrAlreadyDecided on re-approve, got %v", err)
	}
}

func TestManagerDenyResolvesRequest(t *testing.T) {
	mgr := New(DefaultPolicy(), "run-1")
	_, req := mgr.Check(toolWithCaps("run_shell", models.CapExecutesShell), "t1")

	if err := mgr.Deny(req.ID, "operator"); err != nil {
		t.Fatalf("deny: %v", err)
	}
	decision, err := mgr.Await(req.ID, time.Second, time.Millisecond)
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if decision != Denied {
		t.Fatalf("expected Denied, got %s", decision)
	}
}

func TestManagerAwaitTimesOutOnUnresolvedRequest(t *testing.T) {
	mgr := New(DefaultPolicy(), "run-1")
	_, req := mgr.Check(toolWithCaps("write_file", models.CapWritesFS), "t1")

	_, err := mgr.Await(req.ID, 20*time.Millisecond, time.Millisecond)
	if err != ErrRequestExpired {
		t.Fatalf("expected ErrRequestExpired on timeout, got %v", err)
	}
}

func TestManagerApproveUnknownRequestFails(t *testing.T) {
	mgr := New(DefaultPolicy(), "run-1")
	if err := mgr.Approve("nonexistent", "operator"); err != ErrRequestNotFound {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
}
