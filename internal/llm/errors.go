package llm

import "fmt"

// FailoverReason classifies why a provider call failed, so a caller
// chaining a fallback provider list can decide whether to retry the same
// provider, move to the next one, or give up.
type FailoverReason string

const (
	FailoverBilling          FailoverReason = "billing"
	FailoverRateLimit        FailoverReason = "rate_limit"
	FailoverAuth             FailoverReason = "auth"
	FailoverTimeout          FailoverReason = "timeout"
	FailoverServerError      FailoverReason = "server_error"
	FailoverInvalidRequest   FailoverReason = "invalid_request"
	FailoverModelUnavailable FailoverReason = "model_unavailable"
	FailoverContentFilter    FailoverReason = "content_filter"
	FailoverUnknown          FailoverReason = "unknown"
)

// IsRetryable reports whether the same provider/model is worth retrying
// (as opposed to failing over to the next provider in the chain).
func (r FailoverReason) IsRetryable() bool {
	switch r {
	case FailoverRateLimit, FailoverTimeout, FailoverServerError:
		return true
	default:
		return false
	}
}

// ShouldFailover reports whether a fallback provider should be tried.
func (r FailoverReason) ShouldFailover() bool {
	switch r {
	case FailoverBilling, FailoverAuth, FailoverModelUnavailable, FailoverContentFilter:
		return true
	default:
		return false
	}
}

// ProviderError is the error type every concrete Provider returns for a
// failed call, carrying enough detail for both retry and failover
// decisions and for surfacing a ToolError-equivalent classification to the
// Planner/Executor.
type ProviderError struct {
	Reason    FailoverReason
	Provider  string
	Model     string
	Status    int
	Code      string
	Message   string
	RequestID string
	Cause     error
}

func (e *ProviderError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%s: %s (status=%d request_id=%s): %s", e.Provider, e.Reason, e.Status, e.RequestID, e.Message)
	}
	return fmt.Sprintf("%s: %s (status=%d): %s", e.Provider, e.Reason, e.Status, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Cause }
