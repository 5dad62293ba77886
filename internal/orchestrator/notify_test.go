package orchestrator

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relaybroker/broker/internal/approval"
	"github.com/relaybroker/broker/internal/attachments"
	"github.com/relaybroker/broker/internal/emergency"
	"github.com/relaybroker/broker/internal/lifecycle"
	"github.com/relaybroker/broker/internal/store"
	"github.com/relaybroker/broker/internal/supervisor"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSender) SendMessage(_ context.Context, _ string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeNotifier) Notify(_ context.Context, eventType, _, _, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventType)
	return true, nil
}

func (f *fakeNotifier) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	copy(out, f.events)
	return out
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *fakeSender) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	life := lifecycle.New(db)
	ledger := approval.NewLedger()
	em := emergency.New(db)
	attachStore, err := attachments.New(t.TempDir())
	require.NoError(t, err)
	sender := &fakeSender{}
	return New(sender, ledger, em, life, attachStore, 20*time.Millisecond), sender
}

func TestRunNotifiesCompletionOnCleanEOF(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	notifier := &fakeNotifier{}
	orch.SetNotifier(notifier)

	sup := supervisor.New([]string{"head", "-n", "1"}, t.TempDir())
	require.NoError(t, sup.Start())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := orch.Run(ctx, "session-1", "thread-1", sup, "hello")
	require.NoError(t, err)

	require.Contains(t, notifier.seen(), "completion")
}

func TestRunFallsBackToDirectSendWithoutNotifier(t *testing.T) {
	orch, sender := newTestOrchestrator(t)

	sup := supervisor.New([]string{"head", "-n", "1"}, t.TempDir())
	require.NoError(t, sup.Start())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := orch.Run(ctx, "session-1", "thread-1", sup, "hello")
	require.NoError(t, err)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	found := false
	for _, m := range sender.sent {
		if m == "✅ Command completed." {
			found = true
		}
	}
	require.True(t, found, "expected the fallback completion message, got %v", sender.sent)
}
