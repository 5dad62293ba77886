package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/relaybroker/broker/internal/errs"
	"github.com/relaybroker/broker/internal/store"
)

const notifyHelp = "/notify list | enable <type> | disable <type> | help"

// Notify claims `/notify ...`.
type Notify struct {
	DB *store.DB
}

func (h *Notify) Handle(_ context.Context, threadID, text string) (string, bool, error) {
	if !strings.HasPrefix(text, "/notify") {
		return "", false, nil
	}
	fields := strings.Fields(strings.TrimPrefix(text, "/notify"))
	if len(fields) == 0 {
		return notifyHelp, true, nil
	}

	switch strings.ToLower(fields[0]) {
	case "list":
		prefs, err := h.DB.ListNotificationPrefs(threadID)
		if err != nil {
			return errs.UserMessage(err), true, nil
		}
		if len(prefs) == 0 {
			return "No explicit notification preferences set (defaults apply).", true, nil
		}
		var sb strings.Builder
		sb.WriteString("Notification preferences:\n")
		for eventType, enabled := range prefs {
			fmt.Fprintf(&sb, "- %s: %v\n", eventType, enabled)
		}
		return strings.TrimRight(sb.String(), "\n"), true, nil
	case "enable":
		if len(fields) != 2 {
			return "usage: /notify enable <type>", true, nil
		}
		if err := h.DB.SetNotificationPref(threadID, fields[1], true); err != nil {
			return errs.UserMessage(err), true, nil
		}
		return fmt.Sprintf("🔔 Enabled notifications for %s.", fields[1]), true, nil
	case "disable":
		if len(fields) != 2 {
			return "usage: /notify disable <type>", true, nil
		}
		if err := h.DB.SetNotificationPref(threadID, fields[1], false); err != nil {
			return errs.UserMessage(err), true, nil
		}
		return fmt.Sprintf("🔕 Disabled notifications for %s.", fields[1]), true, nil
	case "help":
		return notifyHelp, true, nil
	default:
		return notifyHelp, true, nil
	}
}
