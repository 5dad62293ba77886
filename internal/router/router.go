// Package router implements the per-inbound-message dispatcher of
// spec.md §4.8: verify the single authorized sender, then try handlers
// in priority order until one claims the message, falling back to the
// Stream Orchestrator. Grounded on the teacher's handleMessage/
// handleCallback prefix checks (internal/telegram/bot.go), generalized
// from a single hardcoded "/start" check into an ordered handler list.
package router

import (
	"context"

	"github.com/relaybroker/broker/internal/logging"
)

// Handler claims a message by returning handled=true. A non-empty
// reply is sent via the transport; an empty reply with handled=true
// means the handler already produced its own output (the fallback
// orchestrator case).
type Handler interface {
	Handle(ctx context.Context, threadID, text string) (reply string, handled bool, err error)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, threadID, text string) (string, bool, error)

func (f HandlerFunc) Handle(ctx context.Context, threadID, text string) (string, bool, error) {
	return f(ctx, threadID, text)
}

// Sender is the router's outbound side for handler replies.
type Sender interface {
	SendMessage(ctx context.Context, threadID, text string) error
}

// Router holds the priority-ordered handler chain and the fallback
// dispatcher for messages no handler claims.
type Router struct {
	sender     Sender
	authorized func(threadID string) bool
	handlers   []Handler
	fallback   Handler
	log        *logging.Logger
}

// New constructs a Router. authorized reports whether threadID is the
// single authorized identity (spec.md §4.8 step 1); handlers are tried
// in the given order; fallback runs when none claim the message.
func New(sender Sender, authorized func(threadID string) bool, handlers []Handler, fallback Handler) *Router {
	return &Router{
		sender:     sender,
		authorized: authorized,
		handlers:   handlers,
		fallback:   fallback,
		log:        logging.New("router"),
	}
}

// Dispatch routes one (thread_id, text) inbound message. Unauthorized
// senders are dropped silently, per spec.md §4.8.
func (r *Router) Dispatch(ctx context.Context, threadID, text string) {
	if r.authorized != nil && !r.authorized(threadID) {
		r.log.Warnf("dropped message from unauthorized thread %s", threadID)
		return
	}

	for _, h := range r.handlers {
		reply, handled, err := h.Handle(ctx, threadID, text)
		if err != nil {
			r.log.Errorf("handler error for thread %s: %v", threadID, err)
			return
		}
		if handled {
			r.reply(ctx, threadID, reply)
			return
		}
	}

	if r.fallback == nil {
		r.reply(ctx, threadID, "no active session")
		return
	}
	reply, handled, err := r.fallback.Handle(ctx, threadID, text)
	if err != nil {
		r.log.Errorf("fallback error for thread %s: %v", threadID, err)
		return
	}
	if handled {
		r.reply(ctx, threadID, reply)
	}
}

func (r *Router) reply(ctx context.Context, threadID, text string) {
	if text == "" {
		return
	}
	if err := r.sender.SendMessage(ctx, threadID, text); err != nil {
		r.log.Errorf("reply to thread %s failed: %v", threadID, err)
	}
}
