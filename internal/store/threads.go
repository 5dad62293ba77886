package store

import "time"

// ThreadMapping is the persisted thread_id ↔ project_path bijection.
type ThreadMapping struct {
	ThreadID    string
	ProjectPath string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// InsertThreadMapping creates a new mapping. Callers must first check
// for conflicts with GetThreadMappingByThread / GetThreadMappingByPath
// — the unique constraints here are a last-resort backstop, surfaced
// as a generic constraint error rather than errs.KindMappingConflict.
func (d *DB) InsertThreadMapping(m ThreadMapping) error {
	return d.withWrite(func() error {
		_, err := d.sql.Exec(
			`INSERT INTO thread_mappings (thread_id, project_path, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			m.ThreadID, m.ProjectPath,
			m.CreatedAt.UTC().Format(time.RFC3339Nano), m.UpdatedAt.UTC().Format(time.RFC3339Nano),
		)
		return err
	})
}

func scanThreadMapping(row interface{ Scan(...any) error }) (ThreadMapping, error) {
	var m ThreadMapping
	var createdAt, updatedAt string
	if err := row.Scan(&m.ThreadID, &m.ProjectPath, &createdAt, &updatedAt); err != nil {
		return ThreadMapping{}, err
	}
	var err error
	if m.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return ThreadMapping{}, err
	}
	if m.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return ThreadMapping{}, err
	}
	return m, nil
}

// GetThreadMappingByThread resolves a thread's mapped project, if any.
func (d *DB) GetThreadMappingByThread(threadID string) (ThreadMapping, error) {
	row := d.sql.QueryRow(`SELECT thread_id, project_path, created_at, updated_at FROM thread_mappings WHERE thread_id = ?`, threadID)
	return scanThreadMapping(row)
}

// GetThreadMappingByPath resolves which thread (if any) owns a project path.
func (d *DB) GetThreadMappingByPath(projectPath string) (ThreadMapping, error) {
	row := d.sql.QueryRow(`SELECT thread_id, project_path, created_at, updated_at FROM thread_mappings WHERE project_path = ?`, projectPath)
	return scanThreadMapping(row)
}

// ListThreadMappings returns every mapping.
func (d *DB) ListThreadMappings() ([]ThreadMapping, error) {
	rows, err := d.sql.Query(`SELECT thread_id, project_path, created_at, updated_at FROM thread_mappings ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ThreadMapping
	for rows.Next() {
		m, err := scanThreadMapping(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteThreadMapping removes the mapping owned by threadID.
func (d *DB) DeleteThreadMapping(threadID string) error {
	return d.withWrite(func() error {
		_, err := d.sql.Exec(`DELETE FROM thread_mappings WHERE thread_id = ?`, threadID)
		return err
	})
}
