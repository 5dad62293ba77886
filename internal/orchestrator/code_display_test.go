package orchestrator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubAttachments struct{}

func (stubAttachments) Materialize(sessionID, payload string) (string, int, error) {
	return "out.txt", len(payload), nil
}

type stubCodeDisplay struct{ full map[string]bool }

func (s stubCodeDisplay) WantsFullCode(threadID string) bool { return s.full[threadID] }

func TestShouldMaterializeRespectsAttachmentThreshold(t *testing.T) {
	o := &Orchestrator{attachments: stubAttachments{}}
	short := "one line"
	long := strings.Repeat("line\n", 150)

	require.False(t, o.shouldMaterialize("thread-1", short))
	require.True(t, o.shouldMaterialize("thread-1", long))
}

func TestShouldMaterializeFalseWithoutAttachmentStore(t *testing.T) {
	o := &Orchestrator{}
	require.False(t, o.shouldMaterialize("thread-1", strings.Repeat("line\n", 150)))
}

func TestShouldMaterializeSkippedWhenThreadWantsFullCode(t *testing.T) {
	o := &Orchestrator{attachments: stubAttachments{}}
	o.SetCodeDisplay(stubCodeDisplay{full: map[string]bool{"thread-1": true}})
	long := strings.Repeat("line\n", 150)

	require.False(t, o.shouldMaterialize("thread-1", long), "thread opted into full code display")
	require.True(t, o.shouldMaterialize("thread-2", long), "other threads still route to attachments")
}
