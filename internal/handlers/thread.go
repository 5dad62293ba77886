package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/relaybroker/broker/internal/errs"
	"github.com/relaybroker/broker/internal/store"
)

const threadHelp = "/thread map <path> | list | unmap | help"

// Thread claims `/thread ...`, managing the thread_id <-> project_path
// bijection (spec.md §3 "Thread mapping").
type Thread struct {
	DB *store.DB
}

func (h *Thread) Handle(_ context.Context, threadID, text string) (string, bool, error) {
	if !strings.HasPrefix(text, "/thread") {
		return "", false, nil
	}
	fields := strings.Fields(strings.TrimPrefix(text, "/thread"))
	if len(fields) == 0 {
		return threadHelp, true, nil
	}

	switch strings.ToLower(fields[0]) {
	case "map":
		if len(fields) != 2 {
			return "usage: /thread map <path>", true, nil
		}
		path := fields[1]
		if _, err := h.DB.GetThreadMappingByThread(threadID); err == nil {
			return "this thread is already mapped; /thread unmap first", true, nil
		}
		if _, err := h.DB.GetThreadMappingByPath(path); err == nil {
			return "that path is already mapped to another thread", true, nil
		}
		now := time.Now().UTC()
		if err := h.DB.InsertThreadMapping(store.ThreadMapping{ThreadID: threadID, ProjectPath: path, CreatedAt: now, UpdatedAt: now}); err != nil {
			return errs.UserMessage(err), true, nil
		}
		return fmt.Sprintf("🔗 Mapped this thread to %s.", path), true, nil
	case "list":
		mappings, err := h.DB.ListThreadMappings()
		if err != nil {
			return errs.UserMessage(err), true, nil
		}
		if len(mappings) == 0 {
			return "No thread mappings.", true, nil
		}
		var sb strings.Builder
		for _, m := range mappings {
			fmt.Fprintf(&sb, "- %s -> %s\n", m.ThreadID, m.ProjectPath)
		}
		return strings.TrimRight(sb.String(), "\n"), true, nil
	case "unmap":
		if err := h.DB.DeleteThreadMapping(threadID); err != nil {
			return errs.UserMessage(err), true, nil
		}
		return "🔗 Thread mapping removed.", true, nil
	case "help":
		return threadHelp, true, nil
	default:
		return threadHelp, true, nil
	}
}
