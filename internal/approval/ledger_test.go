package approval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relaybroker/broker/internal/classify"
)

func TestRequestStartsPending(t *testing.T) {
	l := NewLedger()
	r := l.Request(classify.Event{Tool: "Bash", Command: "rm -rf /tmp/x"}, "destructive bash call")
	require.Equal(t, Pending, r.State)
	require.NotEmpty(t, r.ID)

	got, err := l.Get(r.ID)
	require.NoError(t, err)
	require.Equal(t, r.ID, got.ID)
}

func TestApproveMovesPendingToApproved(t *testing.T) {
	l := NewLedger()
	r := l.Request(classify.Event{Tool: "Write"}, "writes a file")
	require.NoError(t, l.Approve(r.ID))

	got, err := l.Get(r.ID)
	require.NoError(t, err)
	require.Equal(t, Approved, got.State)
}

func TestRejectNeverOverridesTimeout(t *testing.T) {
	l := NewLedger()
	r := l.Request(classify.Event{Tool: "Edit"}, "edits a file")
	r.Timestamp = time.Now().UTC().Add(-2 * RequestTimeout)
	l.requests[r.ID] = r

	swept := l.CheckTimeouts()
	require.Equal(t, 1, swept)

	require.NoError(t, l.Reject(r.ID))
	got, err := l.Get(r.ID)
	require.NoError(t, err)
	require.Equal(t, Timeout, got.State)
}

func TestApproveAllOnlyTouchesPending(t *testing.T) {
	l := NewLedger()
	pending := l.Request(classify.Event{Tool: "Bash"}, "one")
	already := l.Request(classify.Event{Tool: "Write"}, "two")
	require.NoError(t, l.Reject(already.ID))

	count := l.ApproveAll("thread-1")
	require.Equal(t, 1, count)

	got, err := l.Get(pending.ID)
	require.NoError(t, err)
	require.Equal(t, Approved, got.State)
	require.Equal(t, "thread-1", got.ApprovedBulkBy)

	got, err = l.Get(already.ID)
	require.NoError(t, err)
	require.Equal(t, Rejected, got.State)
}

func TestListPendingExcludesResolved(t *testing.T) {
	l := NewLedger()
	a := l.Request(classify.Event{Tool: "Bash"}, "one")
	b := l.Request(classify.Event{Tool: "Write"}, "two")
	require.NoError(t, l.Approve(b.ID))

	pending := l.ListPending()
	require.Len(t, pending, 1)
	require.Equal(t, a.ID, pending[0].ID)
}

func TestGetUnknownIDReturnsError(t *testing.T) {
	l := NewLedger()
	_, err := l.Get("does-not-exist")
	require.Error(t, err)
}

func TestWaitReturnsImmediatelyOnceResolved(t *testing.T) {
	l := NewLedger()
	r := l.Request(classify.Event{Tool: "Bash"}, "one")
	require.NoError(t, l.Approve(r.ID))

	state, err := l.Wait(context.Background(), r.ID, time.Second)
	require.NoError(t, err)
	require.Equal(t, Approved, state)
}

func TestWaitTimesOutWhenStillPending(t *testing.T) {
	l := NewLedger()
	r := l.Request(classify.Event{Tool: "Bash"}, "one")

	state, err := l.Wait(context.Background(), r.ID, 1200*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, Timeout, state)
}
