package handlers

import (
	"context"

	"github.com/relaybroker/broker/internal/logging"
)

// Dispatcher runs a raw command against a thread's ACTIVE session,
// reporting whether one existed.
type Dispatcher interface {
	HasActive(threadID string) bool
	Dispatch(ctx context.Context, threadID, command string) (bool, error)
}

// Fallback is the router's last-resort handler (spec.md §4.8 step 8):
// forward to the Stream Orchestrator for the thread's ACTIVE session.
// The orchestrator streams its own replies, so Fallback never returns
// reply text of its own except the "no active session" case.
type Fallback struct {
	Registry Dispatcher
	log      *logging.Logger
}

// NewFallback constructs a Fallback bound to reg.
func NewFallback(reg Dispatcher) *Fallback {
	return &Fallback{Registry: reg, log: logging.New("fallback")}
}

func (h *Fallback) Handle(_ context.Context, threadID, text string) (string, bool, error) {
	if !h.Registry.HasActive(threadID) {
		return "no active session", true, nil
	}

	// A command can stream output far longer than one Router.Dispatch
	// call should block the inbound queue for, so the actual run gets
	// its own context, independent of this one.
	go func() {
		if _, err := h.Registry.Dispatch(context.Background(), threadID, text); err != nil {
			h.log.Warnf("orchestrator run for thread %s: %v", threadID, err)
		}
	}()
	return "", true, nil
}
