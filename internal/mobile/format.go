// Package mobile renders classified events as mobile-optimized text,
// per spec.md §4.10. Event-to-text formatting is adapted from
// internal/format/format.go; control-character collapsing
// is internal/format/terminal.go's processLine, kept verbatim as
// collapseControlChars.
package mobile

import (
	"fmt"
	"strings"

	"github.com/relaybroker/broker/internal/classify"
)

var toolEmoji = map[string]string{
	"read":  "📖",
	"grep":  "🔍",
	"glob":  "🗂️",
	"edit":  "✏️",
	"write": "📝",
	"bash":  "⚙️",
}

const (
	attachmentThresholdLines = 100
	inlineThresholdLines     = 20
)

// NeedsAttachment reports whether rendered text is long enough that the
// orchestrator should materialize it as an attachment rather than send
// it inline. Output with ≤20 lines is always inline; >100 lines always
// routes to attachment; the mid-range defaults to inline.
func NeedsAttachment(text string) bool {
	return strings.Count(text, "\n")+1 > attachmentThresholdLines
}

// EventText renders a classified event as display text. Tool calls get
// a per-tool emoji prefix; progress/error events get their own prefix;
// plain responses pass through after control-character collapsing only.
// EventText applies no code or diff formatting; code blocks and diffs
// are returned as plain text.
func EventText(e classify.Event) string {
	switch e.Kind {
	case classify.KindToolCall:
		emoji := toolEmoji[strings.ToLower(e.Tool)]
		if emoji == "" {
			emoji = "🔧"
		}
		if e.Command != "" {
			return fmt.Sprintf("%s %s `%s`", emoji, e.Tool, e.Command)
		}
		if e.Target != "" {
			return fmt.Sprintf("%s %s `%s`", emoji, e.Tool, e.Target)
		}
		return fmt.Sprintf("%s %s", emoji, e.Tool)
	case classify.KindProgress:
		return fmt.Sprintf("🔄 %s", e.Message)
	case classify.KindError:
		return fmt.Sprintf("❌ %s", e.Message)
	default:
		return collapseControlChars(e.Text)
	}
}

// IsCodeOrDiff reports whether text contains a fenced code block or a
// git-style diff header, triggering code/diff-aware formatting.
func IsCodeOrDiff(text string) bool {
	if strings.Contains(text, "```") {
		return true
	}
	return strings.HasPrefix(text, "diff --git") || strings.Contains(text, "\n--- a/") || strings.Contains(text, "\n+++ b/")
}

// collapseControlChars simplifies \r/\b progress-bar redraws into their
// final rendered line, adapted verbatim from format/terminal.go's processLine.
func collapseControlChars(input string) string {
	if !strings.ContainsAny(input, "\r\b") {
		return input
	}

	lines := strings.Split(input, "\n")
	processed := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			processed = append(processed, "")
			continue
		}
		processed = append(processed, collapseLine(line))
	}
	return strings.Join(processed, "\n")
}

func collapseLine(line string) string {
	runes := []rune(line)
	cursor := 0
	output := make([]rune, 0, len(runes))

	for _, r := range runes {
		switch r {
		case '\r':
			cursor = 0
		case '\b':
			if cursor > 0 {
				cursor--
			}
		default:
			if cursor < len(output) {
				output[cursor] = r
			} else {
				output = append(output, r)
			}
			cursor++
		}
	}
	return string(output)
}
