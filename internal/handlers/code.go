package handlers

import (
	"context"
	"strings"
	"sync"
)

const codeHelp = "/code full | help"

// Code claims `/code ...`, toggling whether a thread receives long
// output inline instead of as an attachment (spec.md §6 "Code-display
// controls").
type Code struct {
	mu   sync.Mutex
	full map[string]bool
}

func (h *Code) Handle(_ context.Context, threadID, text string) (string, bool, error) {
	if !strings.HasPrefix(text, "/code") {
		return "", false, nil
	}
	arg := strings.TrimSpace(strings.TrimPrefix(text, "/code"))

	switch strings.ToLower(arg) {
	case "full":
		h.mu.Lock()
		if h.full == nil {
			h.full = map[string]bool{}
		}
		h.full[threadID] = !h.full[threadID]
		enabled := h.full[threadID]
		h.mu.Unlock()
		if enabled {
			return "📄 Full code display enabled for this thread.", true, nil
		}
		return "📄 Full code display disabled; long output goes to attachments again.", true, nil
	case "help", "":
		return codeHelp, true, nil
	default:
		return codeHelp, true, nil
	}
}

// WantsFullCode reports whether threadID has opted into receiving long
// output inline, for the orchestrator's attachment decision.
func (h *Code) WantsFullCode(threadID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.full[threadID]
}
