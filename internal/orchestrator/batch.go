package orchestrator

import (
	"strings"
	"sync"
	"time"
)

// batcher accumulates formatted lines and flushes them as one message
// either when the batch interval elapses or on an explicit flush,
// concatenating buffered strings with newlines (spec.md §4.7 step 4d).
type batcher struct {
	mu       sync.Mutex
	lines    []string
	interval time.Duration
	onFlush  func(text string)
	timer    *time.Timer
}

func newBatcher(interval time.Duration, onFlush func(text string)) *batcher {
	return &batcher{interval: interval, onFlush: onFlush}
}

func (b *batcher) add(line string) {
	if line == "" {
		return
	}
	b.mu.Lock()
	b.lines = append(b.lines, line)
	if b.timer == nil {
		b.timer = time.AfterFunc(b.interval, b.flush)
	}
	b.mu.Unlock()
}

func (b *batcher) flush() {
	b.mu.Lock()
	lines := b.lines
	b.lines = nil
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()

	if len(lines) == 0 {
		return
	}
	b.onFlush(strings.Join(lines, "\n"))
}
