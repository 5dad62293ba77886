// Package attachments materializes formatter payloads that were too
// large for an inline message into named files on disk, satisfying
// orchestrator.AttachmentStore (spec.md §4.7 "Attachment
// materialization"). Grounded on internal/config/store.go's
// os.MkdirAll/os.WriteFile idiom, the only on-disk-writing precedent
// in the teacher repo.
package attachments

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const dirPerm = 0o755
const filePerm = 0o644

// Store writes materialized payloads under a single directory, one
// file per attachment, named with the owning session id and a
// monotonic timestamp so concurrent sessions never collide.
type Store struct {
	dir string
}

// New ensures dir exists and returns a Store rooted there.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("create attachments dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Materialize writes payload to a new file and returns its name and
// byte size.
func (s *Store) Materialize(sessionID, payload string) (string, int, error) {
	name := fmt.Sprintf("%s-%d.txt", shortID(sessionID), time.Now().UnixNano())
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, []byte(payload), filePerm); err != nil {
		return "", 0, fmt.Errorf("write attachment %s: %w", name, err)
	}
	return name, len(payload), nil
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
