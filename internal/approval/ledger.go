// Package approval implements the in-memory approval request ledger
// (spec.md §4.4) and the operation classifier that decides whether a
// tool call needs one (spec.md §4.5).
//
// Generalizes internal/safeguard/approval.go's ApprovalManager
// (tool-category → settings lookup) and internal/safeguard/manager.go's
// CheckPermission into a request-lifecycle ledger plus a flat
// Safe/Destructive classifier.
package approval

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relaybroker/broker/internal/classify"
	"github.com/relaybroker/broker/internal/errs"
)

// State is the lifecycle of one approval request. PENDING is the only
// non-terminal state.
type State string

const (
	Pending  State = "PENDING"
	Approved State = "APPROVED"
	Rejected State = "REJECTED"
	Timeout  State = "TIMEOUT"
)

// RequestTimeout is how long a PENDING request may sit before the
// sweeper moves it to TIMEOUT (spec.md §4.4).
const RequestTimeout = 10 * time.Minute

// Request is one approval ledger entry.
type Request struct {
	ID        string
	ToolCall  classify.Event
	Reason    string
	State     State
	Timestamp time.Time

	// ApprovedBulkBy records which thread issued an approve_all that
	// resolved this request. It is recorded on the request only: no reply
	// text reads it, and it never affects ledger semantics
	// (supplemented from original_source/, see SPEC_FULL.md §5
	// "Supplemented features").
	ApprovedBulkBy string
}

// Ledger is the single mutable in-memory map of approval requests.
// Single-threaded cooperative access is sufficient per spec.md §5, but
// a mutex is kept since the sweeper and request-handling goroutines
// both touch it.
type Ledger struct {
	mu       sync.Mutex
	requests map[string]*Request
}

// NewLedger constructs an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{requests: make(map[string]*Request)}
}

// Request creates a new PENDING entry with a fresh opaque id.
func (l *Ledger) Request(toolCall classify.Event, reason string) *Request {
	l.mu.Lock()
	defer l.mu.Unlock()
	r := &Request{
		ID:        uuid.New().String(),
		ToolCall:  toolCall,
		Reason:    reason,
		State:     Pending,
		Timestamp: time.Now().UTC(),
	}
	l.requests[r.ID] = r
	return r
}

// Get returns a copy of the request with the given full id.
func (l *Ledger) Get(id string) (Request, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.requests[id]
	if !ok {
		return Request{}, errs.New(errs.KindNotFound, fmt.Sprintf("approval request %s not found", id))
	}
	return *r, nil
}

// Approve moves a PENDING request to APPROVED. Already-terminal
// requests are a silent no-op (idempotent), per spec.md §7.
func (l *Ledger) Approve(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.requests[id]
	if !ok {
		return errs.New(errs.KindNotFound, fmt.Sprintf("approval request %s not found", id))
	}
	if r.State == Pending {
		r.State = Approved
	}
	return nil
}

// Reject moves a PENDING request to REJECTED. It must never override
// an existing terminal state — in particular a TIMEOUT is preserved,
// per spec.md §7's approval race edge case.
func (l *Ledger) Reject(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.requests[id]
	if !ok {
		return errs.New(errs.KindNotFound, fmt.Sprintf("approval request %s not found", id))
	}
	if r.State == Pending {
		r.State = Rejected
	}
	return nil
}

// CheckTimeouts moves every PENDING request older than RequestTimeout
// to TIMEOUT and returns how many were swept.
func (l *Ledger) CheckTimeouts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now().UTC()
	count := 0
	for _, r := range l.requests {
		if r.State == Pending && now.Sub(r.Timestamp) > RequestTimeout {
			r.State = Timeout
			count++
		}
	}
	return count
}

// ApproveAll approves every currently-PENDING request and returns the count.
func (l *Ledger) ApproveAll(byThread string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	count := 0
	for _, r := range l.requests {
		if r.State == Pending {
			r.State = Approved
			r.ApprovedBulkBy = byThread
			count++
		}
	}
	return count
}

// ListPending returns every currently-PENDING request.
func (l *Ledger) ListPending() []Request {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Request
	for _, r := range l.requests {
		if r.State == Pending {
			out = append(out, *r)
		}
	}
	return out
}

// SweepLoop runs CheckTimeouts on interval until stop is closed. It runs
// as one of the daemon's long-lived tasks (spec.md §5).
func (l *Ledger) SweepLoop(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			l.CheckTimeouts()
		}
	}
}
