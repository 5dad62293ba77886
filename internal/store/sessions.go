package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNoRows is returned by single-row lookups that find nothing.
var ErrNoRows = sql.ErrNoRows

// SessionRow is the on-disk shape of a session record.
type SessionRow struct {
	ID          string
	ProjectPath string
	ThreadID    string
	Status      string
	Context     map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func marshalContext(ctx map[string]any) (string, error) {
	if ctx == nil {
		ctx = map[string]any{}
	}
	b, err := json.Marshal(ctx)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalContext(raw string) (map[string]any, error) {
	ctx := map[string]any{}
	if raw == "" {
		return ctx, nil
	}
	if err := json.Unmarshal([]byte(raw), &ctx); err != nil {
		return nil, err
	}
	return ctx, nil
}

const sessionColumns = "id, project_path, thread_id, status, context, created_at, updated_at"

func scanSession(row interface{ Scan(...any) error }) (SessionRow, error) {
	var s SessionRow
	var ctxRaw, createdAt, updatedAt string
	if err := row.Scan(&s.ID, &s.ProjectPath, &s.ThreadID, &s.Status, &ctxRaw, &createdAt, &updatedAt); err != nil {
		return SessionRow{}, err
	}
	ctx, err := unmarshalContext(ctxRaw)
	if err != nil {
		return SessionRow{}, fmt.Errorf("decode session context: %w", err)
	}
	s.Context = ctx
	if s.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return SessionRow{}, fmt.Errorf("decode created_at: %w", err)
	}
	if s.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return SessionRow{}, fmt.Errorf("decode updated_at: %w", err)
	}
	return s, nil
}

// InsertSession persists a newly created session.
func (d *DB) InsertSession(s SessionRow) error {
	return d.withWrite(func() error {
		ctxRaw, err := marshalContext(s.Context)
		if err != nil {
			return err
		}
		_, err = d.sql.Exec(
			`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.ID, s.ProjectPath, s.ThreadID, s.Status, ctxRaw,
			s.CreatedAt.UTC().Format(time.RFC3339Nano), s.UpdatedAt.UTC().Format(time.RFC3339Nano),
		)
		return err
	})
}

// GetSession looks up a session by its full id. Full-id lookup only —
// see DESIGN.md's Open Question 1 decision.
func (d *DB) GetSession(id string) (SessionRow, error) {
	row := d.sql.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// ListSessions returns every session, newest first.
func (d *DB) ListSessions() ([]SessionRow, error) {
	rows, err := d.sql.Query(`SELECT ` + sessionColumns + ` FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SessionRow
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListSessionsByStatus returns every session with the given status.
func (d *DB) ListSessionsByStatus(status string) ([]SessionRow, error) {
	rows, err := d.sql.Query(`SELECT `+sessionColumns+` FROM sessions WHERE status = ?`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SessionRow
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetActiveSessionForThread returns the single ACTIVE session owned by
// a thread, if any.
func (d *DB) GetActiveSessionForThread(threadID string) (SessionRow, error) {
	row := d.sql.QueryRow(
		`SELECT `+sessionColumns+` FROM sessions WHERE thread_id = ? AND status = 'ACTIVE' LIMIT 1`,
		threadID,
	)
	return scanSession(row)
}

// CompareAndSwapStatus atomically moves a session from `from` to `to`,
// writing the given context and updated_at, failing if the on-disk
// status no longer equals `from` (optimistic concurrency, spec.md
// §4.1's StateMismatch case).
func (d *DB) CompareAndSwapStatus(id, from, to string, ctx map[string]any, updatedAt time.Time) (bool, error) {
	var ok bool
	err := d.withWrite(func() error {
		ctxRaw, err := marshalContext(ctx)
		if err != nil {
			return err
		}
		res, err := d.sql.Exec(
			`UPDATE sessions SET status = ?, context = ?, updated_at = ? WHERE id = ? AND status = ?`,
			to, ctxRaw, updatedAt.UTC().Format(time.RFC3339Nano), id, from,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		ok = n == 1
		return nil
	})
	return ok, err
}

// UpdateContext overwrites a session's context and updated_at without
// a status change (used by update_context / track_activity).
func (d *DB) UpdateContext(id string, ctx map[string]any, updatedAt time.Time) error {
	return d.withWrite(func() error {
		ctxRaw, err := marshalContext(ctx)
		if err != nil {
			return err
		}
		res, err := d.sql.Exec(
			`UPDATE sessions SET context = ?, updated_at = ? WHERE id = ?`,
			ctxRaw, updatedAt.UTC().Format(time.RFC3339Nano), id,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return errors.New("session not found")
		}
		return nil
	})
}
