package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/relaybroker/broker/internal/errs"
	"github.com/relaybroker/broker/internal/lifecycle"
)

const sessionHelp = "/session start [<path>] | list | resume <id> | stop <id>"

const truncatedIDLen = 8

// SessionManager is the subset of *registry.Registry the Session
// handler needs: spawning and tearing down child processes.
type SessionManager interface {
	Start(threadID, path string) (lifecycle.Session, error)
	Resume(id string) (lifecycle.Session, error)
	Stop(id string) (lifecycle.Session, error)
}

// Session claims `/session ...`.
type Session struct {
	Manager SessionManager
	Life    *lifecycle.Manager
}

func (h *Session) Handle(_ context.Context, threadID, text string) (string, bool, error) {
	if !strings.HasPrefix(text, "/session") {
		return "", false, nil
	}
	fields := strings.Fields(strings.TrimPrefix(text, "/session"))
	if len(fields) == 0 {
		return sessionHelp, true, nil
	}

	switch strings.ToLower(fields[0]) {
	case "start":
		path := ""
		if len(fields) > 1 {
			path = fields[1]
		}
		s, err := h.Manager.Start(threadID, path)
		if err != nil {
			return errs.UserMessage(err), true, nil
		}
		return fmt.Sprintf("🚀 Started session %s in %s.", truncate(s.ID), s.ProjectPath), true, nil
	case "list":
		sessions, err := h.Life.List()
		if err != nil {
			return errs.UserMessage(err), true, nil
		}
		if len(sessions) == 0 {
			return "No sessions.", true, nil
		}
		var sb strings.Builder
		for _, s := range sessions {
			fmt.Fprintf(&sb, "- %s [%s] %s — last active %s\n", truncate(s.ID), s.Status, s.ProjectPath, relativeTime(s.UpdatedAt))
		}
		return strings.TrimRight(sb.String(), "\n"), true, nil
	case "resume":
		if len(fields) != 2 {
			return "usage: /session resume <id>", true, nil
		}
		s, err := h.Manager.Resume(fields[1])
		if err != nil {
			return errs.UserMessage(err), true, nil
		}
		return fmt.Sprintf("▶️ Resumed session %s.", truncate(s.ID)), true, nil
	case "stop":
		if len(fields) != 2 {
			return "usage: /session stop <id>", true, nil
		}
		s, err := h.Manager.Stop(fields[1])
		if err != nil {
			return errs.UserMessage(err), true, nil
		}
		return fmt.Sprintf("⏹️ Stopped session %s.", truncate(s.ID)), true, nil
	case "help":
		return sessionHelp, true, nil
	default:
		return sessionHelp, true, nil
	}
}

func truncate(id string) string {
	if len(id) <= truncatedIDLen {
		return id
	}
	return id[:truncatedIDLen]
}

// relativeTime renders a coarse "last active" hint for /session list,
// per SPEC_FULL.md's supplemented session-listing behavior.
func relativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
