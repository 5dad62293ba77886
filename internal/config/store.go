// Package config loads and persists the broker daemon's settings file,
// mirroring the teacher's internal/config/store.go Store: JSON on disk
// under a dotfile home directory, defaults filled in and saved back on
// first run, secrets overridable from the environment
// (RICOCHET_*_KEY there, BROKER_* here).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/relaybroker/broker/internal/paths"
)

// RateLimitSettings mirrors internal/ratelimit.Config's fields for the
// on-disk representation (spec.md §4.6).
type RateLimitSettings struct {
	BurstSize             int `json:"burst_size"`
	RateLimit             int `json:"rate_limit"` // per minute
	CooldownPeriodSeconds int `json:"cooldown_period_seconds"`
}

// Settings is the broker's full persisted configuration.
type Settings struct {
	// AuthorizedThreadID is the single identity the Command Router
	// accepts inbound messages from (spec.md §4.8 step 1).
	AuthorizedThreadID string `json:"authorized_thread_id"`

	// TelegramToken authenticates the Transport Client's bot session.
	// Left empty on disk; populated from BROKER_TELEGRAM_TOKEN at load
	// time, same pattern as the teacher's RICOCHET_*_KEY variables.
	TelegramToken string `json:"-"`

	// AssistantCommand is the coding-assistant subprocess argv
	// (spec.md §4.2); element 0 is resolved against PATH.
	AssistantCommand []string `json:"assistant_command"`

	// BatchIntervalMillis is the Stream Orchestrator's flush interval
	// (spec.md §4.7, default 500ms).
	BatchIntervalMillis int `json:"batch_interval_millis"`

	RateLimit RateLimitSettings `json:"rate_limit"`

	// DBPath is the sqlite database file (default paths.GetDBPath()).
	DBPath string `json:"db_path"`
	// CustomCommandsDir is the watched custom-command catalog
	// directory (spec.md §6, default paths.GetCustomCommandsDir()).
	CustomCommandsDir string `json:"custom_commands_dir"`
	// AttachmentsDir holds materialized oversized payloads (default
	// paths.GetAttachmentDir()).
	AttachmentsDir string `json:"attachments_dir"`
}

// Store owns one settings.json under the broker's config directory.
type Store struct {
	mu       sync.RWMutex
	path     string
	settings *Settings
}

// NewStore loads (or creates with defaults) ~/.broker/settings.json.
func NewStore() (*Store, error) {
	configDir := paths.GetGlobalDir()
	if err := paths.EnsureDir(configDir); err != nil {
		return nil, fmt.Errorf("failed to create config dir: %w", err)
	}

	s := &Store{
		path: filepath.Join(configDir, "settings.json"),
		settings: &Settings{
			AssistantCommand:    []string{"claude"},
			BatchIntervalMillis: 500,
			RateLimit: RateLimitSettings{
				BurstSize:             5,
				RateLimit:             30,
				CooldownPeriodSeconds: 60,
			},
			DBPath:            paths.GetDBPath(),
			CustomCommandsDir: paths.GetCustomCommandsDir(),
			AttachmentsDir:    paths.GetAttachmentDir(),
		},
	}

	if err := s.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load settings: %w", err)
		}
		if err := s.Save(); err != nil {
			return nil, fmt.Errorf("failed to save default settings: %w", err)
		}
	}

	if tok := os.Getenv("BROKER_TELEGRAM_TOKEN"); tok != "" {
		s.settings.TelegramToken = tok
	}
	if thread := os.Getenv("BROKER_AUTHORIZED_THREAD_ID"); thread != "" && s.settings.AuthorizedThreadID == "" {
		s.settings.AuthorizedThreadID = thread
	}

	return s, nil
}

// Load reads settings.json over the in-memory defaults.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	settings := *s.settings
	settings.AssistantCommand = append([]string(nil), s.settings.AssistantCommand...)
	if err := json.Unmarshal(data, &settings); err != nil {
		return fmt.Errorf("failed to parse settings.json: %w", err)
	}

	s.settings = &settings
	return nil
}

// Save writes the current settings to disk. TelegramToken is
// deliberately excluded (json:"-") so secrets never land on disk.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := json.MarshalIndent(s.settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	return os.WriteFile(s.path, data, 0644)
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.settings
}

// Update mutates settings under lock and persists the result.
func (s *Store) Update(fn func(*Settings)) error {
	s.mu.Lock()
	fn(s.settings)
	s.mu.Unlock()
	return s.Save()
}
