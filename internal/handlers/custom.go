package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/relaybroker/broker/internal/commands"
	"github.com/relaybroker/broker/internal/errs"
)

const customHelp = "/custom list | show <name> | invoke <name> [args] | help"

// Invoker is implemented by whatever can send a custom command, by name
// with its args, to the thread's active session (typically the orchestrator).
type Invoker interface {
	InvokeCustomCommand(ctx context.Context, threadID, name, args string) error
}

// Custom claims `/custom ...`.
type Custom struct {
	Catalog *commands.Catalog
	Invoker Invoker
}

func (h *Custom) Handle(ctx context.Context, threadID, text string) (string, bool, error) {
	if !strings.HasPrefix(text, "/custom") {
		return "", false, nil
	}
	fields := strings.Fields(strings.TrimPrefix(text, "/custom"))
	if len(fields) == 0 {
		return customHelp, true, nil
	}

	switch strings.ToLower(fields[0]) {
	case "list":
		cmds, err := h.Catalog.List()
		if err != nil {
			return errs.UserMessage(err), true, nil
		}
		if len(cmds) == 0 {
			return "No custom commands cataloged.", true, nil
		}
		var sb strings.Builder
		sb.WriteString("Custom commands:\n")
		for _, c := range cmds {
			fmt.Fprintf(&sb, "- %s\n", c.Name)
		}
		return strings.TrimRight(sb.String(), "\n"), true, nil
	case "show":
		if len(fields) != 2 {
			return "usage: /custom show <name>", true, nil
		}
		cmd, err := h.Catalog.Get(fields[1])
		if err != nil {
			return errs.UserMessage(err), true, nil
		}
		return fmt.Sprintf("%s\n%s", cmd.Name, cmd.FilePath), true, nil
	case "invoke":
		if len(fields) < 2 {
			return "usage: /custom invoke <name> [args]", true, nil
		}
		name := fields[1]
		args := strings.Join(fields[2:], " ")
		if _, err := h.Catalog.Get(name); err != nil {
			return errs.UserMessage(err), true, nil
		}
		if err := h.Invoker.InvokeCustomCommand(ctx, threadID, name, args); err != nil {
			return errs.UserMessage(err), true, nil
		}
		return "", true, nil
	case "help":
		return customHelp, true, nil
	default:
		return customHelp, true, nil
	}
}
