package emergency

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relaybroker/broker/internal/approval"
	"github.com/relaybroker/broker/internal/store"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func TestStatusDefaultsToNormal(t *testing.T) {
	m := newTestManager(t)
	s, err := m.Status()
	require.NoError(t, err)
	require.False(t, s.Active)
	require.Nil(t, s.ActivatedAt)
	require.Nil(t, s.ActivatedByThread)
}

func TestActivateIsIdempotent(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Activate("thread-1"))

	s, err := m.Status()
	require.NoError(t, err)
	require.True(t, s.Active)
	require.NotNil(t, s.ActivatedAt)
	require.Equal(t, "thread-1", *s.ActivatedByThread)
	firstActivatedAt := *s.ActivatedAt

	require.NoError(t, m.Activate("thread-2"))
	s, err = m.Status()
	require.NoError(t, err)
	require.Equal(t, "thread-1", *s.ActivatedByThread)
	require.Equal(t, firstActivatedAt, *s.ActivatedAt)
}

func TestDeactivateClearsState(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Activate("thread-1"))
	require.NoError(t, m.Deactivate())

	s, err := m.Status()
	require.NoError(t, err)
	require.False(t, s.Active)
	require.Nil(t, s.ActivatedAt)
	require.Nil(t, s.ActivatedByThread)

	require.NoError(t, m.Deactivate())
}

func TestShouldAutoApproveOnlySafeUnderEmergency(t *testing.T) {
	m := newTestManager(t)

	ok, err := m.ShouldAutoApprove(approval.Safe)
	require.NoError(t, err)
	require.False(t, ok, "normal mode never auto-approves")

	require.NoError(t, m.Activate("thread-1"))

	ok, err = m.ShouldAutoApprove(approval.Safe)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = m.ShouldAutoApprove(approval.Destructive)
	require.NoError(t, err)
	require.False(t, ok, "destructive calls always require approval")
}
