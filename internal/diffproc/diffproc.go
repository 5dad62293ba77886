// Package diffproc parses git-style unified diff text into structured
// records and summarizes them in plain English, per spec.md §4.11 (a
// complement to the mobile formatter). There is no direct teacher
// precedent — internal/git/manager.go produces raw diff text but never
// parses it — so this package is grounded on the shape of that raw text
// alone.
package diffproc

import (
	"regexp"
	"strconv"
	"strings"
)

// Hunk is one @@ ... @@ block of a unified diff.
type Hunk struct {
	OldStart, OldCount int
	NewStart, NewCount int
	Lines              []string // each retains its leading +/-/space prefix
}

// FileDiff is one file's worth of a parsed diff.
type FileDiff struct {
	OldPath string
	NewPath string
	Binary  bool
	Hunks   []Hunk
}

var (
	diffHeaderPattern = regexp.MustCompile(`^diff --git a/(.+) b/(.+)$`)
	hunkHeaderPattern = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)
	binaryPattern     = regexp.MustCompile(`^Binary files `)
)

// Parse reads a unified diff (as produced by `git diff`) into one
// FileDiff per file section.
func Parse(diff string) []FileDiff {
	lines := strings.Split(diff, "\n")
	var files []FileDiff
	var cur *FileDiff
	var curHunk *Hunk

	flushHunk := func() {
		if cur != nil && curHunk != nil {
			cur.Hunks = append(cur.Hunks, *curHunk)
			curHunk = nil
		}
	}
	flushFile := func() {
		flushHunk()
		if cur != nil {
			files = append(files, *cur)
			cur = nil
		}
	}

	for _, line := range lines {
		if m := diffHeaderPattern.FindStringSubmatch(line); m != nil {
			flushFile()
			cur = &FileDiff{OldPath: m[1], NewPath: m[2]}
			continue
		}
		if cur == nil {
			continue
		}
		if binaryPattern.MatchString(line) {
			cur.Binary = true
			continue
		}
		if m := hunkHeaderPattern.FindStringSubmatch(line); m != nil {
			flushHunk()
			curHunk = &Hunk{
				OldStart: atoiDefault(m[1], 0),
				OldCount: atoiDefault(m[2], 1),
				NewStart: atoiDefault(m[3], 0),
				NewCount: atoiDefault(m[4], 1),
			}
			continue
		}
		if curHunk != nil && (strings.HasPrefix(line, "+") || strings.HasPrefix(line, "-") || strings.HasPrefix(line, " ")) {
			curHunk.Lines = append(curHunk.Lines, line)
		}
	}
	flushFile()
	return files
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
