package paths

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetWorkspaceHashIsStableAndDistinct(t *testing.T) {
	a := GetWorkspaceHash("/home/user/project-a")
	b := GetWorkspaceHash("/home/user/project-b")
	require.NotEqual(t, a, b)
	require.Equal(t, a, GetWorkspaceHash("/home/user/project-a"))
	require.Len(t, a, 16) // 8 bytes, hex-encoded
}

func TestGetLogDirIsNestedUnderGlobalDir(t *testing.T) {
	dir := GetLogDir("/home/user/project-a")
	require.True(t, strings.HasPrefix(dir, GetGlobalDir()))
	require.Contains(t, dir, GetWorkspaceHash("/home/user/project-a"))
}

func TestEnsureDirCreatesNestedPath(t *testing.T) {
	target := filepath.Join(t.TempDir(), "a", "b", "c")
	require.NoError(t, EnsureDir(target))
	require.DirExists(t, target)
}

func TestDerivedPathsNestUnderGlobalDir(t *testing.T) {
	global := GetGlobalDir()
	for _, dir := range []string{GetTmpDir(), GetAttachmentDir()} {
		require.True(t, strings.HasPrefix(dir, global))
	}
	require.True(t, strings.HasPrefix(GetDBPath(), global))
}
