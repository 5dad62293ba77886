// Package handlers implements the thin per-surface command handlers
// spec.md §4.8/§6 describes, each a router.Handler claiming one
// command family. Grounded on the teacher's short, single-purpose
// command dispatch in internal/telegram/bot.go's handleMessage.
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/relaybroker/broker/internal/approval"
	"github.com/relaybroker/broker/internal/errs"
)

// Approval claims `approve <id>`, `reject <id>` and `approve all`.
type Approval struct {
	Ledger *approval.Ledger
}

func (h *Approval) Handle(_ context.Context, threadID, text string) (string, bool, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", false, nil
	}

	switch strings.ToLower(fields[0]) {
	case "approve":
		if len(fields) >= 2 && strings.ToLower(fields[1]) == "all" {
			n := h.Ledger.ApproveAll(threadID)
			return fmt.Sprintf("✅ Approved %d pending request(s).", n), true, nil
		}
		if len(fields) != 2 {
			return "usage: approve <id>", true, nil
		}
		if err := h.Ledger.Approve(fields[1]); err != nil {
			return errs.UserMessage(err), true, nil
		}
		return fmt.Sprintf("✅ Approved %s.", fields[1]), true, nil
	case "reject":
		if len(fields) != 2 {
			return "usage: reject <id>", true, nil
		}
		if err := h.Ledger.Reject(fields[1]); err != nil {
			return errs.UserMessage(err), true, nil
		}
		return fmt.Sprintf("❌ Rejected %s.", fields[1]), true, nil
	default:
		return "", false, nil
	}
}
