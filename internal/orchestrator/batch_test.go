package orchestrator

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBatcherFlushesOnInterval(t *testing.T) {
	var mu sync.Mutex
	var flushed []string
	b := newBatcher(20*time.Millisecond, func(text string) {
		mu.Lock()
		flushed = append(flushed, text)
		mu.Unlock()
	})

	b.add("one")
	b.add("two")
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(flushed) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	require.Equal(t, "one\ntwo", flushed[0])
	mu.Unlock()
}

func TestBatcherExplicitFlush(t *testing.T) {
	var got string
	b := newBatcher(time.Minute, func(text string) { got = text })
	b.add("a")
	b.add("b")
	b.flush()
	require.Equal(t, "a\nb", got)
	b.flush()
	require.Equal(t, "a\nb", got, "second flush with nothing queued is a no-op")
}
