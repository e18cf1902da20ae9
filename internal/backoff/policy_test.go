package backoff

import (
	"testing"
	"time"

	"github.com/agentcore/agentcore/pkg/models"
)

func TestComputeWithRand(t *testing.T) {
	tests := []struct {
		name        string
		policy      Policy
		attempt     int
		randomValue float64
		expected    time.Duration
	}{
		{
			name:        "first attempt with no jitter",
			policy:      Policy{InitialMs: 100, MaxMs: 10000, Factor: 2, Jitter: 0},
			attempt:     1,
			randomValue: 0.5,
			expected:    100 * time.Millisecond,
		},
		{
			name:        "second attempt doubles",
			policy:      Policy{InitialMs: 100, MaxMs: 10000, Factor: 2, Jitter: 0},
			attempt:     2,
			randomValue: 0.5,
			expected:    200 * time.Millisecond,
		},
		{
			name:        "fifth attempt with factor 2",
			policy:      Policy{InitialMs: 100, MaxMs: 10000, Factor: 2, Jitter: 0},
			attempt:     5,
			randomValue: 0.5,
			expected:    1600 * time.Millisecond,
		},
		{
			name:        "clamped to max",
			policy:      Policy{InitialMs: 100, MaxMs: 500, Factor: 2, Jitter: 0},
			attempt:     10,
			randomValue: 0.5,
			expected:    500 * time.Millisecond,
		},
		{
			name:        "jitter at max random",
			policy:      Policy{InitialMs: 100, MaxMs: 10000, Factor: 2, Jitter: 0.1},
			attempt:     1,
			randomValue: 1.0,
			// base = 100, jitter = 100 * 0.1 * 1.0 = 10, total = 110
			expected: 110 * time.Millisecond,
		},
		{
			name:        "jitter at zero random",
			policy:      Policy{InitialMs: 100, MaxMs: 10000, Factor: 2, Jitter: 0.1},
			attempt:     1,
			randomValue: 0.0,
			expected:    100 * time.Millisecond,
		},
		{
			name:        "attempt 0 treated as 1",
			policy:      Policy{InitialMs: 100, MaxMs: 10000, Factor: 2, Jitter: 0},
			attempt:     0,
			randomValue: 0.5,
			expected:    100 * time.Millisecond,
		},
		{
			name:        "negative attempt treated as 1",
			policy:      Policy{InitialMs: 100, MaxMs: 10000, Factor: 2, Jitter: 0},
			attempt:     -5,
			randomValue: 0.5,
			expected:    100 * time.Millisecond,
		},
		{
			name:        "factor 1.5",
			policy:      Policy{InitialMs: 100, MaxMs: 10000, Factor: 1.5, Jitter: 0},
			attempt:     3,
			randomValue: 0.5,
			// base = 100 * 1.5^2 = 225
			expected: 225 * time.Millisecond,
		},
		{
			name:        "jitter causes max clamping",
			policy:      Policy{InitialMs: 100, MaxMs: 105, Factor: 1, Jitter: 0.5},
			attempt:     1,
			randomValue: 1.0,
			// base = 100, jitter = 100 * 0.5 * 1.0 = 50, total would be 150, clamped to 105
			expected: 105 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeWithRand(tt.policy, tt.attempt, tt.randomValue)
			if got != tt.expected {
				t.Errorf("ComputeWithRand() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestComputeJitterRange(t *testing.T) {
	policy := Policy{InitialMs: 100, MaxMs: 10000, Factor: 2, Jitter: 0.2}

	minExpected := 100 * time.Millisecond
	maxExpected := 120 * time.Millisecond

	for i := 0; i < 100; i++ {
		got := Compute(policy, 1)
		if got < minExpected || got > maxExpected {
			t.Errorf("Compute() = %v, want in range [%v, %v]", got, minExpected, maxExpected)
		}
	}
}

func TestDefault(t *testing.T) {
	policy := Default()
	if policy.InitialMs != 100 {
		t.Errorf("InitialMs = %v, want 100", policy.InitialMs)
	}
	if policy.MaxMs != 30000 {
		t.Errorf("MaxMs = %v, want 30000", policy.MaxMs)
	}
	if policy.Factor != 2 {
		t.Errorf("Factor = %v, want 2", policy.Factor)
	}
	if policy.Jitter != 0.1 {
		t.Errorf("Jitter = %v, want 0.1", policy.Jitter)
	}
}

func TestForToolErrorPicksNetworkPolicyForNetworkErrors(t *testing.T) {
	netPolicy := ForToolError(&models.ToolError{Code: models.ToolErrNetwork})
	defPolicy := ForToolError(&models.ToolError{Code: models.ToolErrRuntime})

	if netPolicy.InitialMs <= defPolicy.InitialMs {
		t.Errorf("network policy InitialMs %v should be > default InitialMs %v", netPolicy.InitialMs, defPolicy.InitialMs)
	}

	// Deterministic comparison with zero jitter random.
	netDelay := ComputeWithRand(netPolicy, 1, 0)
	defDelay := ComputeWithRand(defPolicy, 1, 0)
	if netDelay <= defDelay {
		t.Errorf("network backoff %v should be > default backoff %v at attempt 1", netDelay, defDelay)
	}
}

func TestForToolErrorNilFallsBackToDefault(t *testing.T) {
	if ForToolError(nil) != Default() {
		t.Error("ForToolError(nil) should equal Default()")
	}
}
