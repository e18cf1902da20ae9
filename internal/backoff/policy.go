// Package backoff computes the exponential-backoff delay between retry
// attempts for the Executor (task retries, §4.3) and the llm providers
// (completion-request retries).
package backoff

import (
	"math"
	"math/rand"
	"time"

	"github.com/agentcore/agentcore/pkg/models"
)

// Policy is the exponential-backoff schedule: delay(attempt) = min(MaxMs,
// InitialMs*Factor^(attempt-1) + jitter), jitter in [0, that*Jitter).
type Policy struct {
	InitialMs float64
	MaxMs     float64
	Factor    float64
	Jitter    float64
}

// Default is the Policy applied to a task retry absent any more specific
// classification of what failed.
func Default() Policy {
	return Policy{InitialMs: 100, MaxMs: 30_000, Factor: 2, Jitter: 0.1}
}

// networkPolicy backs off harder than Default: a ToolErrNetwork failure is
// more likely transient congestion than a bug, and a longer initial delay
// gives the far end room to recover before the next attempt lands on it.
func networkPolicy() Policy {
	return Policy{InitialMs: 250, MaxMs: 30_000, Factor: 2, Jitter: 0.2}
}

// ForToolError picks the retry schedule for a task's next attempt based on
// how its last attempt failed. Only meaningful when err.Retryable() is true.
func ForToolError(err *models.ToolError) Policy {
	if err != nil && err.Code == models.ToolErrNetwork {
		return networkPolicy()
	}
	return Default()
}

// Compute returns the delay before the given attempt (1-indexed), drawing
// its own jitter from math/rand.
func Compute(policy Policy, attempt int) time.Duration {
	return ComputeWithRand(policy, attempt, rand.Float64()) // #nosec G404 -- jitter does not need cryptographic randomness
}

// ComputeWithRand is Compute with an injected random source in [0.0, 1.0),
// for deterministic tests.
func ComputeWithRand(policy Policy, attempt int, randomValue float64) time.Duration {
	exp := math.Max(float64(attempt-1), 0)
	base := policy.InitialMs * math.Pow(policy.Factor, exp)
	jitter := base * policy.Jitter * randomValue
	total := math.Min(policy.MaxMs, base+jitter)
	return time.Duration(math.Round(total)) * time.Millisecond
}
