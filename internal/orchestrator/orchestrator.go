// Package orchestrator drives one command through a session's child
// process and streams its output back as mobile-formatted messages,
// per spec.md §4.7. It generalizes the teacher's Telegram-specific
// handleMessage/SendToSession flow (internal/telegram/bot.go) into a
// transport-agnostic pipeline: supervisor -> classify -> approval/
// emergency -> mobile -> batch/flush -> transport.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/relaybroker/broker/internal/approval"
	"github.com/relaybroker/broker/internal/classify"
	"github.com/relaybroker/broker/internal/emergency"
	"github.com/relaybroker/broker/internal/errs"
	"github.com/relaybroker/broker/internal/lifecycle"
	"github.com/relaybroker/broker/internal/logging"
	"github.com/relaybroker/broker/internal/mobile"
	"github.com/relaybroker/broker/internal/supervisor"
)

const (
	defaultBatchInterval  = 500 * time.Millisecond
	attachmentWarnBytes   = 10 * 1024 * 1024
	attachmentRejectBytes = 100 * 1024 * 1024
	approvalWaitTimeout   = 600 * time.Second
)

// Sender is the orchestrator's outbound side: every message is
// addressed by thread id, never session id, per spec.md §4.7's
// response routing rule.
type Sender interface {
	SendMessage(ctx context.Context, threadID, text string) error
}

// AttachmentStore materializes a payload that the mobile formatter
// tagged as needing an attachment, returning a path or name the
// caller can reference in a confirmation line.
type AttachmentStore interface {
	Materialize(sessionID string, payload string) (name string, size int, err error)
}

// CodeDisplay reports a thread's `/code full` preference (spec.md §6
// "Code-display controls"): when set, long output is sent inline
// instead of being routed to an attachment.
type CodeDisplay interface {
	WantsFullCode(threadID string) bool
}

// Notifier is the notification pipeline's entry point (spec.md §4.9),
// consulted for the "completion" and "error" events a run ends with.
type Notifier interface {
	Notify(ctx context.Context, eventType, details, threadID, sessionID string) (bool, error)
}

// Orchestrator wires one invocation's worth of supervisor output to the
// formatter, the approval ledger and the transport.
type Orchestrator struct {
	sender        Sender
	ledger        *approval.Ledger
	emergency     *emergency.Manager
	lifecycle     *lifecycle.Manager
	attachments   AttachmentStore
	codeDisplay   CodeDisplay
	notifier      Notifier
	batchInterval time.Duration
	log           *logging.Logger
}

// New constructs an Orchestrator. batchInterval <= 0 falls back to the
// spec default of 500ms.
func New(sender Sender, ledger *approval.Ledger, em *emergency.Manager, lc *lifecycle.Manager, attachments AttachmentStore, batchInterval time.Duration) *Orchestrator {
	if batchInterval <= 0 {
		batchInterval = defaultBatchInterval
	}
	return &Orchestrator{
		sender:        sender,
		ledger:        ledger,
		emergency:     em,
		lifecycle:     lc,
		attachments:   attachments,
		batchInterval: batchInterval,
		log:           logging.New("orchestrator"),
	}
}

// SetCodeDisplay wires the `/code full` preference lookup. Optional:
// a nil or never-called CodeDisplay means output is always routed to
// an attachment past mobile.NeedsAttachment's threshold.
func (o *Orchestrator) SetCodeDisplay(cd CodeDisplay) {
	o.codeDisplay = cd
}

// SetNotifier wires the notification pipeline (spec.md §4.9). Optional:
// with no Notifier set, Run falls back to sending "✅ Command completed."
// / the bridge error directly, bypassing categorize/preferences/format.
func (o *Orchestrator) SetNotifier(n Notifier) {
	o.notifier = n
}

// Run executes one command against sup for the given session/thread,
// streaming formatted output back via Sender as it arrives. It blocks
// until the command's output stream ends or ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context, sessionID, threadID string, sup *supervisor.Supervisor, command string) error {
	if sup == nil || !sup.IsRunning() {
		o.send(ctx, threadID, "❌ No coding-assistant process is running for this session.")
		return errs.New(errs.KindSubprocess, "no bridge wired for session "+sessionID)
	}

	if err := sup.SendCommand(command); err != nil {
		o.send(ctx, threadID, fmt.Sprintf("❌ Failed to send command: %v", err))
		return err
	}

	batch := newBatcher(o.batchInterval, func(text string) {
		o.send(ctx, threadID, text)
	})
	defer batch.flush()

	for line := range sup.ReadResponse() {
		event := classify.Line(line)

		if event.Kind == classify.KindToolCall {
			// Per spec.md §4.7: a rejection or timeout here is advisory
			// only — the child's own subsequent output still streams
			// normally; there is no special suppression of what follows.
			o.handleToolCall(ctx, threadID, event)
		}

		text := mobile.EventText(event)
		if o.shouldMaterialize(threadID, text) {
			text = o.materializeAttachment(sessionID, text)
		}
		batch.add(text)
		_ = o.lifecycle.TrackActivity(sessionID, eventActivityType(event), summaryFor(event))
	}

	batch.flush()

	if err := sup.Err(); err != nil {
		o.notifyOrSend(ctx, threadID, sessionID, "error", fmt.Sprintf("bridge read failed: %v", err), fmt.Sprintf("❌ Command failed: %v", err))
		return err
	}
	o.notifyOrSend(ctx, threadID, sessionID, "completion", "command finished", "✅ Command completed.")
	return nil
}

// notifyOrSend routes an event through the notification pipeline
// (categorize -> preferences -> format -> send) when one is wired; with
// no Notifier, it falls back to sending fallback directly so behavior
// is unchanged for callers that never call SetNotifier.
func (o *Orchestrator) notifyOrSend(ctx context.Context, threadID, sessionID, eventType, details, fallback string) {
	if o.notifier == nil {
		o.send(ctx, threadID, fallback)
		return
	}
	if _, err := o.notifier.Notify(ctx, eventType, details, threadID, sessionID); err != nil {
		o.log.Errorf("notify %s for thread %s failed: %v", eventType, threadID, err)
	}
}

// handleToolCall consults the operation classifier and emergency mode;
// if the call is destructive and not auto-approved it blocks on the
// approval wait and returns the resolved state.
func (o *Orchestrator) handleToolCall(ctx context.Context, threadID string, event classify.Event) approval.State {
	outcome, reason := approval.Classify(event.Tool)

	if outcome == approval.Safe {
		return approval.Approved
	}
	autoApprove, err := o.emergency.ShouldAutoApprove(outcome)
	if err != nil {
		o.log.Errorf("emergency status check failed: %v", err)
	}
	if autoApprove {
		return approval.Approved
	}

	req := o.ledger.Request(event, reason)
	o.send(ctx, threadID, fmt.Sprintf("⚠️ Approval needed: %s (%s) — reply `approve %s` or `reject %s`", event.Tool, reason, req.ID, req.ID))

	state, err := o.ledger.Wait(ctx, req.ID, approvalWaitTimeout)
	if err != nil {
		o.log.Warnf("approval wait for %s errored: %v", req.ID, err)
	}
	switch state {
	case approval.Approved:
		o.send(ctx, threadID, fmt.Sprintf("✅ %s approved.", event.Tool))
	default:
		o.send(ctx, threadID, fmt.Sprintf("⏭️ %s skipped (%s).", event.Tool, state))
	}
	return state
}

// shouldMaterialize reports whether text is long enough, and the
// thread hasn't opted into `/code full`, to route through the
// attachment store instead of going inline.
func (o *Orchestrator) shouldMaterialize(threadID, text string) bool {
	if o.attachments == nil || !mobile.NeedsAttachment(text) {
		return false
	}
	return o.codeDisplay == nil || !o.codeDisplay.WantsFullCode(threadID)
}

func (o *Orchestrator) materializeAttachment(sessionID, text string) string {
	name, size, err := o.attachments.Materialize(sessionID, text)
	if err != nil {
		return text + "\n(⚠️ attachment could not be materialized)"
	}
	switch {
	case size > attachmentRejectBytes:
		return fmt.Sprintf("❌ Output too large to send (%d bytes, limit %d).", size, attachmentRejectBytes)
	case size > attachmentWarnBytes:
		return fmt.Sprintf("📎 Attached %s (%d bytes — large attachment).", name, size)
	default:
		return fmt.Sprintf("📎 Attached %s.", name)
	}
}

func (o *Orchestrator) send(ctx context.Context, threadID, text string) {
	if text == "" {
		return
	}
	if err := o.sender.SendMessage(ctx, threadID, text); err != nil {
		o.log.Errorf("send to thread %s failed: %v", threadID, err)
	}
}

func eventActivityType(e classify.Event) string {
	switch e.Kind {
	case classify.KindToolCall:
		return "tool_call"
	case classify.KindError:
		return "error"
	case classify.KindProgress:
		return "progress"
	default:
		return "response"
	}
}

func summaryFor(e classify.Event) string {
	if e.Message != "" {
		return e.Message
	}
	if e.Command != "" {
		return e.Tool + " " + e.Command
	}
	if e.Target != "" {
		return e.Tool + " " + e.Target
	}
	return e.Text
}
