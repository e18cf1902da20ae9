package approval

import (
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/agentcore/agentcore/pkg/models"
)

var (
	ErrRequestNotFound = errors.New("approval: request not found")
	ErrRequestExpired  = errors.New("approval: request expired")
	ErrAlreadyDecided  = errors.New("approval: request already decided")
)

// Request is a single pending approval awaiting a human decision.
type Request struct {
	ID        string
	RunID     string
	TaskID    string
	ToolName  string
	Reason    string
	CreatedAt time.Time
	ExpiresAt time.Time

	Decision  Decision
	DecidedAt time.Time
	DecidedBy string
}

func (r *Request) expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}

// Manager owns the Pending-request lifecycle: evaluating a ToolCall against
// a Policy, tracking requests awaiting a decision, and resolving them via
// Approve/Deny. One Manager serves an entire orchestration run.
type Manager struct {
	mu       sync.Mutex
	policy   Policy
	pending  map[string]*Request
	nextSeq  int
	runID    string
}

// New builds a Manager bound to one run's policy.
func New(policy Policy, runID string) *Manager {
	return &Manager{policy: policy, pending: make(map[string]*Request), runID: runID}
}

// Check evaluates tool against the Manager's policy. If the outcome is
// Pending and AutoApprove is off, a Request is created and returned
// alongside the Pending decision so the Orchestrator can surface it; if
// AutoApprove is on, Pending resolves immediately to Allowed.
func (m *Manager) Check(tool models.Tool, taskID string) (Decision, *Request) {
	decision, reason := Evaluate(m.policy, tool)
	if decision != Pending {
		return decision, nil
	}
	if m.policy.AutoApprove {
		return Allowed, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSeq++
	ttl := m.policy.RequestTTL
	if ttl <= 0 {
		ttl = DefaultPolicy().RequestTTL
	}
	now := time.Now()
	req := &Request{
		ID:        requestID(m.runID, m.nextSeq),
		RunID:     m.runID,
		TaskID:    taskID,
		ToolName:  tool.Name,
		Reason:    reason,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Decision:  Pending,
	}
	m.pending[req.ID] = req
	return Pending, req
}

// Approve resolves a pending Request to Allowed.
func (m *Manager) Approve(id, decidedBy string) error {
	return m.decide(id, Allowed, decidedBy)
}

// Deny resolves a pending Request to Denied.
func (m *Manager) Deny(id, decidedBy string) error {
	return m.decide(id, Denied, decidedBy)
}

func (m *Manager) decide(id string, decision Decision, decidedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.pending[id]
	if !ok {
		return ErrRequestNotFound
	}
	if req.Decision != Pending {
		return ErrAlreadyDecided
	}
	if req.expired(time.Now()) {
		delete(m.pending, id)
		return ErrRequestExpired
	}

	req.Decision = decision
	req.DecidedAt = time.Now()
	req.DecidedBy = decidedBy
	return nil
}

// Pending returns every still-undecided, unexpired Request, oldest first.
func (m *Manager) Pending() []*Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	var out []*Request
	for _, req := range m.pending {
		if req.Decision == Pending && !req.expired(now) {
			out = append(out, req)
		}
	}
	sortRequestsByCreatedAt(out)
	return out
}

// Await blocks until id is decided, the request's TTL expires, or deadline
// d elapses, polling at the given interval; both expiry cases return
// ErrRequestExpired. It is the synchronous interface a CLI approval prompt
// uses after a Request surfaces.
func (m *Manager) Await(id string, d, pollInterval time.Duration) (Decision, error) {
	deadline := time.Now().Add(d)
	for {
		m.mu.Lock()
		req, ok := m.pending[id]
		if ok && req.Decision != Pending {
			decision := req.Decision
			m.mu.Unlock()
			return decision, nil
		}
		if ok && req.expired(time.Now()) {
			delete(m.pending, id)
			m.mu.Unlock()
			return Denied, ErrRequestExpired
		}
		m.mu.Unlock()

		if time.Now().After(deadline) {
			return Denied, ErrRequestExpired
		}
		time.Sleep(pollInterval)
	}
}

func requestID(runID string, seq int) string {
	return runID + "-approval-" + strconv.Itoa(seq)
}

func sortRequestsByCreatedAt(reqs []*Request) {
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].CreatedAt.Before(reqs[j].CreatedAt) })
}
