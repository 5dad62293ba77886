package registry

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
	"github.com/relaybroker/broker/internal/orchestrator"
	"github.com/relaybroker/broker/internal/store"
)

// fakeSender records every message sent, standing in for the transport.
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

func (f *fakeSender) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	copy(out, f.sent)
	return out
}

func newTestRegistryWithCommand(t *testing.T, command []string) (*Registry, *fakeSender) {
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
	orch := orchestrator.New(sender, ledger, em, life, attachStore, 20*time.Millisecond)

	return New(db, life, orch, command), sender
}

// newTestRegistry backs sessions with `cat`, adequate for every test
// that never ranges over a session's full output stream to EOF.
func newTestRegistry(t *testing.T) (*Registry, *fakeSender) {
	return newTestRegistryWithCommand(t, []string{"cat"})
}

func TestStartSpawnsAndMovesToActive(t *testing.T) {
	reg, _ := newTestRegistry(t)
	s, err := reg.Start("thread-1", t.TempDir())
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusActive, s.Status)
	require.True(t, reg.HasActive("thread-1"))
}

func TestStartRejectsSecondActiveSessionOnSameThread(t *testing.T) {
	reg, _ := newTestRegistry(t)
	_, err := reg.Start("thread-1", t.TempDir())
	require.NoError(t, err)

	_, err = reg.Start("thread-1", t.TempDir())
	require.Error(t, err)
}

func TestStopTerminatesSessionAndClearsActive(t *testing.T) {
	reg, _ := newTestRegistry(t)
	s, err := reg.Start("thread-1", t.TempDir())
	require.NoError(t, err)

	stopped, err := reg.Stop(s.ID)
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusTerminated, stopped.Status)
	require.False(t, reg.HasActive("thread-1"))
}

func TestResumeRequiresPausedSession(t *testing.T) {
	reg, _ := newTestRegistry(t)
	s, err := reg.Start("thread-1", t.TempDir())
	require.NoError(t, err)

	_, err = reg.Resume(s.ID)
	require.Error(t, err, "an ACTIVE session cannot be resumed")
}

func TestDispatchReturnsFalseWithoutActiveSession(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ok, err := reg.Dispatch(context.Background(), "no-such-thread", "hello")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDispatchStreamsOrchestratorOutputBackThroughSender(t *testing.T) {
	// `head -n 1` echoes exactly one line then exits on its own,
	// closing stdout so orchestrator.Run's read loop terminates —
	// unlike `cat`, which would keep the session's stdin open forever.
	reg, sender := newTestRegistryWithCommand(t, []string{"head", "-n", "1"})
	_, err := reg.Start("thread-1", t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ok, err := reg.Dispatch(ctx, "thread-1", "hello world")
	require.NoError(t, err)
	require.True(t, ok)

	found := false
	for _, m := range sender.messages() {
		if m == "hello world" {
			found = true
		}
	}
	require.True(t, found, "expected the echoed line to be relayed, got %v", sender.messages())
}

func TestInvokeCustomCommandFailsWithoutActiveSession(t *testing.T) {
	reg, _ := newTestRegistry(t)
	err := reg.InvokeCustomCommand(context.Background(), "thread-1", "deploy", "")
	require.Error(t, err)
}
