package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// withHome isolates paths.GetGlobalDir() (~/.broker) to a temp directory
// for the duration of one test.
func withHome(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
}

func TestNewStoreWritesDefaultsOnFirstRun(t *testing.T) {
	withHome(t)
	t.Setenv("BROKER_TELEGRAM_TOKEN", "")
	t.Setenv("BROKER_AUTHORIZED_THREAD_ID", "")

	s, err := NewStore()
	require.NoError(t, err)

	cfg := s.Get()
	require.Equal(t, []string{"claude"}, cfg.AssistantCommand)
	require.Equal(t, 500, cfg.BatchIntervalMillis)
	require.Equal(t, 5, cfg.RateLimit.BurstSize)
	require.Empty(t, cfg.TelegramToken)

	require.FileExists(t, s.path)
}

func TestNewStoreReadsTelegramTokenFromEnvNotDisk(t *testing.T) {
	withHome(t)
	t.Setenv("BROKER_TELEGRAM_TOKEN", "secret-token")

	s, err := NewStore()
	require.NoError(t, err)
	require.Equal(t, "secret-token", s.Get().TelegramToken)

	data, err := os.ReadFile(s.path)
	require.NoError(t, err)
	require.NotContains(t, string(data), "secret-token")
}

func TestNewStorePreservesExistingAuthorizedThreadOverEnv(t *testing.T) {
	withHome(t)

	s1, err := NewStore()
	require.NoError(t, err)
	require.NoError(t, s1.Update(func(st *Settings) { st.AuthorizedThreadID = "from-disk" }))

	t.Setenv("BROKER_AUTHORIZED_THREAD_ID", "from-env")
	s2, err := NewStore()
	require.NoError(t, err)
	require.Equal(t, "from-disk", s2.Get().AuthorizedThreadID)
}

func TestUpdatePersistsAcrossReload(t *testing.T) {
	withHome(t)

	s, err := NewStore()
	require.NoError(t, err)
	require.NoError(t, s.Update(func(st *Settings) { st.BatchIntervalMillis = 1234 }))

	reloaded := &Store{path: s.path, settings: &Settings{}}
	require.NoError(t, reloaded.Load())
	require.Equal(t, 1234, reloaded.Get().BatchIntervalMillis)
}
