package mobile

import "strings"

const (
	wrapWidth            = 50
	continuationMarker   = "…"
	defaultChunkMax      = 1600
	sentenceScanFraction = 0.3
)

// WrapLine enforces a 50-character display width, breaking at the last
// space before the limit when possible and prefixing continuations
// with a marker, for narrow mobile screens.
func WrapLine(line string) []string {
	if len(line) <= wrapWidth {
		return []string{line}
	}

	var out []string
	remaining := line
	for len(remaining) > wrapWidth {
		cut := wrapWidth
		if idx := strings.LastIndex(remaining[:wrapWidth], " "); idx > wrapWidth/2 {
			cut = idx
		}
		out = append(out, remaining[:cut])
		remaining = continuationMarker + strings.TrimLeft(remaining[cut:], " ")
	}
	out = append(out, remaining)
	return out
}

// WrapText applies WrapLine to every line of a multi-line string.
func WrapText(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	for _, l := range lines {
		out = append(out, WrapLine(l)...)
	}
	return strings.Join(out, "\n")
}

// Chunk splits text into pieces no longer than max (defaultChunkMax if
// max <= 0), preferring to break on a sentence boundary found within
// the last 30% of the window, and keeping fenced code blocks intact
// where possible. Every non-final chunk ends with continuationMarker.
func Chunk(text string, max int) []string {
	if max <= 0 {
		max = defaultChunkMax
	}
	if len(text) <= max {
		return []string{text}
	}

	budget := max - len(continuationMarker)
	if budget < 1 {
		budget = 1
	}
	var chunks []string
	remaining := text
	for len(remaining) > max {
		cut := findChunkBoundary(remaining, budget)
		chunk := strings.TrimRight(remaining[:cut], " \n") + continuationMarker
		chunks = append(chunks, chunk)
		remaining = strings.TrimLeft(remaining[cut:], " \n")
	}
	if remaining != "" {
		chunks = append(chunks, remaining)
	}
	return chunks
}

// findChunkBoundary locates a cut point at or before max, preferring a
// sentence-ending punctuation mark within the scan window, falling
// back to the last newline, then the last space, then a hard cut.
func findChunkBoundary(text string, max int) int {
	if max >= len(text) {
		return len(text)
	}
	window := text[:max]

	if inFence := strings.Count(window, "```")%2 == 1; inFence {
		if idx := strings.LastIndex(window, "```"); idx > 0 {
			max = idx
			window = text[:max]
		}
	}

	scanStart := int(float64(max) * (1 - sentenceScanFraction))
	best := -1
	for _, sep := range []string{". ", "! ", "? ", ".\n"} {
		if idx := strings.LastIndex(window[scanStart:], sep); idx != -1 {
			candidate := scanStart + idx + len(sep)
			if candidate > best {
				best = candidate
			}
		}
	}
	if best != -1 {
		return best
	}
	if idx := strings.LastIndex(window, "\n"); idx > scanStart {
		return idx + 1
	}
	if idx := strings.LastIndex(window, " "); idx > 0 {
		return idx + 1
	}
	return max
}
