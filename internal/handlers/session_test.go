package handlers

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relaybroker/broker/internal/errs"
	"github.com/relaybroker/broker/internal/lifecycle"
	"github.com/relaybroker/broker/internal/store"
)

// fakeSessionManager lets tests drive the handler's reply text without
// spawning a real child process.
type fakeSessionManager struct {
	startFn  func(threadID, path string) (lifecycle.Session, error)
	resumeFn func(id string) (lifecycle.Session, error)
	stopFn   func(id string) (lifecycle.Session, error)
}

func (f *fakeSessionManager) Start(threadID, path string) (lifecycle.Session, error) {
	return f.startFn(threadID, path)
}

func (f *fakeSessionManager) Resume(id string) (lifecycle.Session, error) {
	return f.resumeFn(id)
}

func (f *fakeSessionManager) Stop(id string) (lifecycle.Session, error) {
	return f.stopFn(id)
}

func newTestLifecycle(t *testing.T) *lifecycle.Manager {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return lifecycle.New(db)
}

func TestSessionIgnoresOtherCommands(t *testing.T) {
	h := &Session{Manager: &fakeSessionManager{}, Life: newTestLifecycle(t)}
	reply, claimed, err := h.Handle(context.Background(), "thread-1", "/code full")
	require.NoError(t, err)
	require.False(t, claimed)
	require.Empty(t, reply)
}

func TestSessionNoArgsShowsHelp(t *testing.T) {
	h := &Session{Manager: &fakeSessionManager{}, Life: newTestLifecycle(t)}
	reply, claimed, err := h.Handle(context.Background(), "thread-1", "/session")
	require.NoError(t, err)
	require.True(t, claimed)
	require.Equal(t, sessionHelp, reply)
}

func TestSessionStartSuccess(t *testing.T) {
	life := newTestLifecycle(t)
	want, err := life.Create("/tmp/proj", "thread-1")
	require.NoError(t, err)

	mgr := &fakeSessionManager{
		startFn: func(threadID, path string) (lifecycle.Session, error) {
			require.Equal(t, "thread-1", threadID)
			require.Equal(t, "/tmp/proj", path)
			return want, nil
		},
	}
	h := &Session{Manager: mgr, Life: life}

	reply, claimed, err := h.Handle(context.Background(), "thread-1", "/session start /tmp/proj")
	require.NoError(t, err)
	require.True(t, claimed)
	require.Contains(t, reply, truncate(want.ID))
	require.Contains(t, reply, "/tmp/proj")
}

func TestSessionStartSurfacesUserMessageOnError(t *testing.T) {
	mgr := &fakeSessionManager{
		startFn: func(threadID, path string) (lifecycle.Session, error) {
			return lifecycle.Session{}, errs.New(errs.KindValidation, "this thread already has an ACTIVE session")
		},
	}
	h := &Session{Manager: mgr, Life: newTestLifecycle(t)}

	reply, claimed, err := h.Handle(context.Background(), "thread-1", "/session start")
	require.NoError(t, err)
	require.True(t, claimed)
	require.Contains(t, reply, "already has an ACTIVE session")
}

func TestSessionListEmpty(t *testing.T) {
	h := &Session{Manager: &fakeSessionManager{}, Life: newTestLifecycle(t)}
	reply, claimed, err := h.Handle(context.Background(), "thread-1", "/session list")
	require.NoError(t, err)
	require.True(t, claimed)
	require.Equal(t, "No sessions.", reply)
}

func TestSessionListShowsSessionsWithRelativeTime(t *testing.T) {
	life := newTestLifecycle(t)
	s, err := life.Create("/tmp/proj", "thread-1")
	require.NoError(t, err)

	h := &Session{Manager: &fakeSessionManager{}, Life: life}
	reply, claimed, err := h.Handle(context.Background(), "thread-1", "/session list")
	require.NoError(t, err)
	require.True(t, claimed)
	require.Contains(t, reply, truncate(s.ID))
	require.Contains(t, reply, "CREATED")
	require.Contains(t, reply, "just now")
}

func TestSessionResumeRequiresID(t *testing.T) {
	h := &Session{Manager: &fakeSessionManager{}, Life: newTestLifecycle(t)}
	reply, claimed, err := h.Handle(context.Background(), "thread-1", "/session resume")
	require.NoError(t, err)
	require.True(t, claimed)
	require.Contains(t, reply, "usage")
}

func TestSessionStopSuccess(t *testing.T) {
	life := newTestLifecycle(t)
	s, err := life.Create("/tmp/proj", "thread-1")
	require.NoError(t, err)
	stopped := s
	stopped.Status = lifecycle.StatusTerminated

	mgr := &fakeSessionManager{
		stopFn: func(id string) (lifecycle.Session, error) {
			require.Equal(t, s.ID, id)
			return stopped, nil
		},
	}
	h := &Session{Manager: mgr, Life: life}

	reply, claimed, err := h.Handle(context.Background(), "thread-1", "/session stop "+s.ID)
	require.NoError(t, err)
	require.True(t, claimed)
	require.Contains(t, reply, truncate(s.ID))
}

func TestSessionUnknownSubcommandShowsHelp(t *testing.T) {
	h := &Session{Manager: &fakeSessionManager{}, Life: newTestLifecycle(t)}
	reply, claimed, err := h.Handle(context.Background(), "thread-1", "/session blorp")
	require.NoError(t, err)
	require.True(t, claimed)
	require.Equal(t, sessionHelp, reply)
}
