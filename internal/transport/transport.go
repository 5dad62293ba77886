package transport

import (
	"context"
	"time"

	"github.com/relaybroker/broker/internal/errs"
	"github.com/relaybroker/broker/internal/logging"
	"github.com/relaybroker/broker/internal/ratelimit"
)

// Event is one inbound item from the provider: a user message or a
// button callback, surfaced on the same stream.
type Event struct {
	Recipient string
	Text      string
	Raw       any
}

// Provider is the concrete messaging backend a Transport drives
// (telegrambot.Bot implements this). Connect/Disconnect perform the
// actual dial; SendMessage performs one provider-level send; Receive
// returns the channel of inbound events, open for the provider's
// lifetime.
type Provider interface {
	Connect(ctx context.Context) error
	Disconnect() error
	SendMessage(ctx context.Context, recipient, text string) error
	Receive() <-chan Event
	HealthCheck(ctx context.Context) error
}

// Transport wires a Provider to the reconnection state machine, the
// bounded outbound buffer and the rate limiter, per spec.md §4.6.
type Transport struct {
	provider    Provider
	sm          *StateMachine
	buffer      *OutboundBuffer
	limiter     *ratelimit.Limiter
	log         *logging.Logger
	syncFn      func(ctx context.Context) error
	healthEvery time.Duration
}

// New constructs a Transport. syncOnReconnect, if non-nil, is invoked
// while the machine is in SYNCING (after a successful reconnect, before
// CONNECTED and before the outbound buffer drains) to generate
// catch-up summaries for active sessions.
func New(p Provider, limiterCfg ratelimit.Config, syncOnReconnect func(ctx context.Context) error) *Transport {
	t := &Transport{
		provider:    p,
		sm:          NewStateMachine(),
		limiter:     ratelimit.New(limiterCfg),
		log:         logging.New("transport"),
		syncFn:      syncOnReconnect,
		healthEvery: healthCheckInterval,
	}
	t.buffer = NewOutboundBuffer(defaultBufferSize, func(dropped OutboundMessage) {
		t.log.Warnf("outbound buffer full, dropped message to %s", dropped.Recipient)
	})
	return t
}

// SetHealthCheckInterval overrides the connection-state monitor's probe
// interval (default 30s). Exposed mainly so tests don't wait 30s.
func (t *Transport) SetHealthCheckInterval(d time.Duration) {
	if d > 0 {
		t.healthEvery = d
	}
}

// State returns the current connection state.
func (t *Transport) State() State {
	return t.sm.Current()
}

// IsConnected reports whether the transport is in CONNECTED.
func (t *Transport) IsConnected() bool {
	return t.sm.Current() == Connected
}

// Connect dials the provider and, on success, drains the outbound
// buffer via a SYNCING detour.
func (t *Transport) Connect(ctx context.Context) error {
	if t.sm.Current() == Disconnected {
		_ = t.sm.Transition(Reconnecting)
	}
	if err := t.provider.Connect(ctx); err != nil {
		_ = t.sm.Transition(Disconnected)
		return errs.Wrap(errs.KindTransportTransient, "transport connect failed", err)
	}
	if err := t.sm.Transition(Connected); err != nil {
		return err
	}
	t.runSync(ctx)
	return nil
}

// Disconnect tears down the provider connection.
func (t *Transport) Disconnect() error {
	err := t.provider.Disconnect()
	_ = t.sm.Transition(Disconnected)
	return err
}

// runSync transitions CONNECTED -> SYNCING -> CONNECTED, invoking
// syncFn and then draining the buffer in between.
func (t *Transport) runSync(ctx context.Context) {
	if err := t.sm.Transition(Syncing); err != nil {
		return
	}
	if t.syncFn != nil {
		if err := t.syncFn(ctx); err != nil {
			t.log.Errorf("catch-up sync failed: %v", err)
		}
	}
	t.drainBuffer(ctx)
	_ = t.sm.Transition(Connected)
}

// drainBuffer flushes buffered messages in FIFO order, continuing past
// individual send failures without re-enqueueing them.
func (t *Transport) drainBuffer(ctx context.Context) {
	for _, msg := range t.buffer.Drain() {
		if err := t.limiter.Acquire(ctx); err != nil {
			return
		}
		if err := t.provider.SendMessage(ctx, msg.Recipient, msg.Text); err != nil {
			t.log.Warnf("buffered send to %s failed, dropping: %v", msg.Recipient, err)
		}
	}
}

// SendMessage rate-limits and sends when CONNECTED; otherwise it
// enqueues onto the outbound buffer for the next reconnect drain.
func (t *Transport) SendMessage(ctx context.Context, recipient, text string) error {
	if !t.IsConnected() {
		t.buffer.Push(OutboundMessage{Recipient: recipient, Text: text})
		return nil
	}
	if err := t.limiter.Acquire(ctx); err != nil {
		return err
	}
	if err := t.provider.SendMessage(ctx, recipient, text); err != nil {
		t.buffer.Push(OutboundMessage{Recipient: recipient, Text: text})
		return errs.Wrap(errs.KindTransportTransient, "send failed, message buffered", err)
	}
	return nil
}

// Receive exposes the provider's inbound event stream.
func (t *Transport) Receive() <-chan Event {
	return t.provider.Receive()
}

// RunReconnectLoop blocks, redialing with the spec.md §4.6 backoff
// schedule whenever the transport is DISCONNECTED, until ctx is
// cancelled.
func (t *Transport) RunReconnectLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if t.sm.Current() != Disconnected {
			return
		}
		if err := t.sm.Transition(Reconnecting); err != nil {
			return
		}
		wait := Backoff(t.sm.Attempt())
		if wait > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
		}
		if err := t.provider.Connect(ctx); err != nil {
			t.log.Warnf("reconnect attempt %d failed: %v", t.sm.Attempt(), err)
			_ = t.sm.Transition(Disconnected)
			continue
		}
		_ = t.sm.Transition(Connected)
		t.runSync(ctx)
		return
	}
}

const healthCheckInterval = 30 * time.Second

// RunConnectionMonitor is the long-lived connection-state monitor task
// of spec.md §5 item (c): it periodically probes the provider while
// CONNECTED and, on a failed probe, drives CONNECTED -> DISCONNECTED
// and runs the reconnect loop back up to CONNECTED, for as long as ctx
// is live. The telegrambot provider has no push-style drop signal, so
// polling is the only way this transition ever fires outside tests.
func (t *Transport) RunConnectionMonitor(ctx context.Context) {
	ticker := time.NewTicker(t.healthEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !t.IsConnected() {
			continue
		}
		if err := t.provider.HealthCheck(ctx); err != nil {
			t.log.Warnf("health check failed, marking transport disconnected: %v", err)
			if err := t.sm.Transition(Disconnected); err != nil {
				continue
			}
			t.RunReconnectLoop(ctx)
		}
	}
}
