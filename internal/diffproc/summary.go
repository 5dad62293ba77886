package diffproc

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	defPattern   = regexp.MustCompile(`^\+\s*def\s+(\w+)`)
	classPattern = regexp.MustCompile(`^\+\s*class\s+(\w+)`)
	funcPattern  = regexp.MustCompile(`^\+\s*function\s+(\w+)`)
)

// Summarize produces a plain-English list of what a parsed diff
// changed: a file count header, then per-file lines noting added
// functions/classes when the hunks contain recognizable definitions.
func Summarize(files []FileDiff) string {
	if len(files) == 0 {
		return "No changes."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Modified %d file", len(files))
	if len(files) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString(":\n")

	for _, f := range files {
		path := f.NewPath
		if path == "" {
			path = f.OldPath
		}
		if f.Binary {
			fmt.Fprintf(&sb, "- %s (binary)\n", path)
			continue
		}

		defs := definitionsIn(f)
		if len(defs) == 0 {
			fmt.Fprintf(&sb, "- %s\n", path)
			continue
		}
		fmt.Fprintf(&sb, "- %s: %s\n", path, strings.Join(defs, ", "))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func definitionsIn(f FileDiff) []string {
	var defs []string
	for _, h := range f.Hunks {
		for _, line := range h.Lines {
			if m := defPattern.FindStringSubmatch(line); m != nil {
				defs = append(defs, "def "+m[1])
			} else if m := classPattern.FindStringSubmatch(line); m != nil {
				defs = append(defs, "class "+m[1])
			} else if m := funcPattern.FindStringSubmatch(line); m != nil {
				defs = append(defs, "function "+m[1])
			}
		}
	}
	return defs
}
