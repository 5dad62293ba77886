// Package notify implements the notification pipeline of spec.md §4.9:
// categorize an event, consult stored per-thread preferences, format a
// short mobile-sized message, and hand it to the transport. The
// formatting stage is grounded on the teacher's emoji-prefixed
// format.Format* helpers; preference persistence is internal/store.
package notify

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/relaybroker/broker/internal/store"
)

// Urgency is the notification priority tier.
type Urgency int

const (
	Urgent Urgency = iota
	Important
	Informational
	Silent
)

func (u Urgency) String() string {
	switch u {
	case Urgent:
		return "URGENT"
	case Important:
		return "IMPORTANT"
	case Informational:
		return "INFORMATIONAL"
	case Silent:
		return "SILENT"
	default:
		return "UNKNOWN"
	}
}

func (u Urgency) emoji() string {
	switch u {
	case Urgent:
		return "🚨"
	case Important:
		return "ℹ️"
	case Informational:
		return "💬"
	default:
		return "🔕"
	}
}

const maxMessageLen = 300

var categoryMap = map[string]Urgency{
	"error":           Urgent,
	"approval_needed": Urgent,
	"completion":      Important,
	"reconnection":    Important,
	"progress":        Informational,
}

// Categorize maps an event type to its urgency tier; unknown event
// types default to INFORMATIONAL.
func Categorize(eventType string) Urgency {
	if u, ok := categoryMap[eventType]; ok {
		return u
	}
	return Informational
}

// Sender is the outbound side the Manager delivers through.
type Sender interface {
	SendMessage(ctx context.Context, recipient, text string) error
}

// Manager wires the categorizer, stored preferences and formatter into
// the notify(...) entry point.
type Manager struct {
	db     *store.DB
	sender Sender
}

// New constructs a Manager.
func New(db *store.DB, sender Sender) *Manager {
	return &Manager{db: db, sender: sender}
}

// ShouldNotify applies the preference rule of spec.md §4.9: URGENT is
// always true, SILENT is always false, otherwise the stored
// preference wins, defaulting to true for IMPORTANT and false for
// INFORMATIONAL when no preference row exists.
func (m *Manager) ShouldNotify(threadID, eventType string, urgency Urgency) (bool, error) {
	switch urgency {
	case Urgent:
		return true, nil
	case Silent:
		return false, nil
	}

	enabled, found, err := m.db.GetNotificationPref(threadID, eventType)
	if err != nil {
		return false, err
	}
	if found {
		return enabled, nil
	}
	return urgency == Important, nil
}

// Format produces the mobile-optimized message: urgency emoji, typed
// header, and a short summary extracted from details, truncated to
// 300 bytes on a rune boundary. SILENT produces an empty string.
func Format(eventType string, urgency Urgency, details string) string {
	if urgency == Silent {
		return ""
	}
	summary := summarize(eventType, details)
	msg := fmt.Sprintf("%s %s: %s", urgency.emoji(), strings.ToUpper(eventType), summary)
	if len(msg) > maxMessageLen {
		msg = truncateToRune(msg, maxMessageLen-len("…")) + "…"
	}
	return msg
}

// truncateToRune cuts s to at most n bytes without splitting a
// multi-byte rune, backing off byte by byte to the nearest rune start.
func truncateToRune(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.RuneStart(s[len(s)-1]) {
		s = s[:len(s)-1]
	}
	return s
}

func summarize(eventType, details string) string {
	details = strings.TrimSpace(details)
	if details == "" {
		return eventType + " event"
	}
	return details
}

// Notify categorizes, checks preferences, formats and sends. sessionID
// is optional context folded into the message when an event is tied to
// a specific session rather than the daemon as a whole. It returns true
// iff a message was actually sent.
func (m *Manager) Notify(ctx context.Context, eventType, details, threadID string, sessionID string) (bool, error) {
	urgency := Categorize(eventType)
	ok, err := m.ShouldNotify(threadID, eventType, urgency)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	text := Format(eventType, urgency, details)
	if text == "" {
		return false, nil
	}
	if sessionID != "" {
		text = fmt.Sprintf("%s\n(session %s)", text, sessionID)
	}
	if err := m.sender.SendMessage(ctx, threadID, text); err != nil {
		return false, err
	}
	return true, nil
}
