// Package approval implements the Orchestrator's approval gate (C4):
// deciding whether a capability-bearing ToolCall may dispatch immediately,
// must be denied outright, or must wait on an explicit approve/deny
// decision before the Executor ever sees it.
package approval

import (
	"strings"
	"time"

	"github.com/agentcore/agentcore/pkg/models"
)

// Decision is the outcome of evaluating a ToolCall against a Policy.
type Decision string

const (
	Allowed Decision = "allowed"
	Denied  Decision = "denied"
	Pending Decision = "pending"
)

// Policy configures approval behavior. The default decision for a
// capability-bearing tool is derived from models.CapabilitySet.RequiresApproval
// (§4.4's approval policy, Open Question #3) rather than from name patterns;
// Allowlist/Denylist/RequireApproval remain available as operator overrides
// layered on top of that default.
type Policy struct {
	// Allowlist tools are always allowed regardless of capability flags.
	// Supports exact names, "prefix*", "*suffix", and "*" (match all).
	Allowlist []string

	// Denylist tools are always denied regardless of capability flags.
	Denylist []string

	// RequireApproval forces Pending for tools that would otherwise be
	// allowed by capability flags alone (e.g. a read-only tool an operator
	// wants gated anyway).
	RequireApproval []string

	// AutoApprove, when true, resolves every Pending decision to Allowed
	// without waiting on an external approver - the non-interactive
	// escape hatch named in §4.4 ("batch mode", "emergency override").
	AutoApprove bool

	// RequestTTL bounds how long a Pending request remains valid.
	RequestTTL time.Duration
}

// DefaultPolicy returns the capability-flag-driven default named in §4.4:
// no overrides, interactive approval required for any writes_fs,
// executes_shell, or mutates_vcs tool.
func DefaultPolicy() Policy {
	return Policy{RequestTTL: 5 * time.Minute}
}

// Evaluate decides a ToolCall's Decision against tool's declared
// Capabilities and policy's override lists. It never consults any pending
// request state - that lifecycle lives in Manager.
func Evaluate(policy Policy, tool models.Tool) (Decision, string) {
	if matchesPattern(policy.Denylist, tool.Name) {
		return Denied, "tool in denylist"
	}
	if matchesPattern(policy.Allowlist, tool.Name) {
		return Allowed, "tool in allowlist"
	}
	if matchesPattern(policy.RequireApproval, tool.Name) {
		return Pending, "tool explicitly requires approval"
	}
	if tool.Capabilities.RequiresApproval() {
		return Pending, "tool capabilities require approval: " + capabilityReason(tool.Capabilities)
	}
	return Allowed, "no capability requires approval"
}

func capabilityReason(caps models.CapabilitySet) string {
	var flagged []string
	for _, c := range []models.Capability{models.CapWritesFS, models.CapExecutesShell, models.CapMutatesVCS} {
		if caps.Has(c) {
			flagged = append(flagged, string(c))
		}
	}
	return strings.Join(flagged, ",")
}

// matchesPattern reports whether name matches any pattern in patterns.
// Supports exact match, "prefix*", "*suffix", and the catch-all "*".
func matchesPattern(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		if pattern == "*" || pattern == name {
			return true
		}
		if strings.HasSuffix(pattern, "*") && strings.HasPrefix(name, pattern[:len(pattern)-1]) {
			return true
		}
		if strings.HasPrefix(pattern, "*") && strings.HasSuffix(name, pattern[1:]) {
			return true
		}
	}
	return false
}
