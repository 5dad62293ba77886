package store

import (
	"encoding/json"
	"time"
)

// CustomCommand mirrors a watched markdown+front-matter file.
type CustomCommand struct {
	Name      string
	FilePath  string
	Metadata  map[string]any
	UpdatedAt time.Time
}

// UpsertCustomCommand inserts or replaces a catalog entry, keyed by name.
func (d *DB) UpsertCustomCommand(c CustomCommand) error {
	return d.withWrite(func() error {
		meta := c.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		metaRaw, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		_, err = d.sql.Exec(
			`INSERT INTO commands (name, file_path, metadata, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(name) DO UPDATE SET file_path = excluded.file_path, metadata = excluded.metadata, updated_at = excluded.updated_at`,
			c.Name, c.FilePath, string(metaRaw), c.UpdatedAt.UTC().Format(time.RFC3339Nano),
		)
		return err
	})
}

// DeleteCustomCommandByPath removes whatever catalog entry was backed
// by filePath (used when the watcher observes a file removal).
func (d *DB) DeleteCustomCommandByPath(filePath string) error {
	return d.withWrite(func() error {
		_, err := d.sql.Exec(`DELETE FROM commands WHERE file_path = ?`, filePath)
		return err
	})
}

func scanCustomCommand(row interface{ Scan(...any) error }) (CustomCommand, error) {
	var c CustomCommand
	var metaRaw, updatedAt string
	if err := row.Scan(&c.Name, &c.FilePath, &metaRaw, &updatedAt); err != nil {
		return CustomCommand{}, err
	}
	meta := map[string]any{}
	if metaRaw != "" {
		if err := json.Unmarshal([]byte(metaRaw), &meta); err != nil {
			return CustomCommand{}, err
		}
	}
	c.Metadata = meta
	var err error
	if c.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return CustomCommand{}, err
	}
	return c, nil
}

// GetCustomCommand looks up a command by its unique name.
func (d *DB) GetCustomCommand(name string) (CustomCommand, error) {
	row := d.sql.QueryRow(`SELECT name, file_path, metadata, updated_at FROM commands WHERE name = ?`, name)
	return scanCustomCommand(row)
}

// ListCustomCommands returns the full catalog, sorted by name.
func (d *DB) ListCustomCommands() ([]CustomCommand, error) {
	rows, err := d.sql.Query(`SELECT name, file_path, metadata, updated_at FROM commands ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CustomCommand
	for rows.Next() {
		c, err := scanCustomCommand(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
