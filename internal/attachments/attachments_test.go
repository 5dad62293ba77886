package attachments

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "attachments")
	_, err := New(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestMaterializeWritesPayloadAndReturnsSize(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	name, size, err := s.Materialize("session-abcdefgh1234", "hello world")
	require.NoError(t, err)
	require.Equal(t, len("hello world"), size)
	require.True(t, strings.HasPrefix(name, "session-"))
	require.True(t, strings.HasSuffix(name, ".txt"))

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	require.NoError(t, err)
	require.Equal(t, "hello world", string(data))
}

func TestMaterializeTruncatesLongSessionIDInName(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	name, _, err := s.Materialize("a-very-long-session-identifier", "payload")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(name, "a-very-l-"), "expected an 8-char prefix, got %q", name)
}

func TestMaterializeNamesNeverCollideAcrossCalls(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	n1, _, err := s.Materialize("session-1", "a")
	require.NoError(t, err)
	n2, _, err := s.Materialize("session-1", "b")
	require.NoError(t, err)
	require.NotEqual(t, n1, n2)
}
