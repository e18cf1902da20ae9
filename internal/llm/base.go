package llm

import (
	"context"
	"time"

	"github.com/agentcore/agentcore/internal/backoff"
)

// BaseProvider carries the retry policy shared by every concrete backend.
// Embedding it gives a Provider a Retry helper without duplicating the
// backoff loop in each implementation.
type BaseProvider struct {
	name        string
	policy      backoff.Policy
	maxAttempts int
}

// NewBaseProvider builds a BaseProvider with the given name and retry
// budget. maxAttempts <= 0 disables retrying (a single attempt only).
func NewBaseProvider(name string, maxAttempts int, policy backoff.Policy) BaseProvider {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return BaseProvider{name: name, policy: policy, maxAttempts: maxAttempts}
}

// Name returns the provider's name.
func (b *BaseProvider) Name() string { return b.name }

// Retry runs op, retrying with exponential backoff while isRetryable(err)
// is true and the attempt budget remains. It returns the first success or
// the last error observed.
func (b *BaseProvider) Retry(ctx context.Context, isRetryable func(error) bool, op func(attempt int) error) error {
	var lastErr error
	for attempt := 0; attempt < b.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoff.Compute(b.policy, attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := op(attempt)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryable(err) {
			return err
		}
	}
	return lastErr
}
