package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/relaybroker/broker/internal/emergency"
	"github.com/relaybroker/broker/internal/errs"
)

const emergencyHelp = "/emergency activate | deactivate | status | help"

// Emergency claims `/emergency ...`.
type Emergency struct {
	Manager *emergency.Manager
}

func (h *Emergency) Handle(_ context.Context, threadID, text string) (string, bool, error) {
	if !strings.HasPrefix(text, "/emergency") {
		return "", false, nil
	}
	arg := strings.TrimSpace(strings.TrimPrefix(text, "/emergency"))

	switch strings.ToLower(arg) {
	case "activate":
		if err := h.Manager.Activate(threadID); err != nil {
			return errs.UserMessage(err), true, nil
		}
		return "🚨 Emergency mode activated. Safe tool calls auto-approve.", true, nil
	case "deactivate":
		if err := h.Manager.Deactivate(); err != nil {
			return errs.UserMessage(err), true, nil
		}
		return "✅ Emergency mode deactivated.", true, nil
	case "status":
		status, err := h.Manager.Status()
		if err != nil {
			return errs.UserMessage(err), true, nil
		}
		if status.Active {
			return fmt.Sprintf("🚨 EMERGENCY active since %s (activated by %s).", status.ActivatedAt, deref(status.ActivatedByThread)), true, nil
		}
		return "✅ NORMAL — no emergency active.", true, nil
	case "help", "":
		return emergencyHelp, true, nil
	default:
		return emergencyHelp, true, nil
	}
}

func deref(s *string) string {
	if s == nil {
		return "unknown"
	}
	return *s
}
