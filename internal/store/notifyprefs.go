package store

// SetNotificationPref persists an explicit enabled/disabled preference
// for (threadID, eventType). Absence of a row means "use the urgency
// default" — see internal/notify.
func (d *DB) SetNotificationPref(threadID, eventType string, enabled bool) error {
	return d.withWrite(func() error {
		enabledInt := 0
		if enabled {
			enabledInt = 1
		}
		_, err := d.sql.Exec(
			`INSERT INTO notification_prefs (thread_id, event_type, enabled) VALUES (?, ?, ?)
			 ON CONFLICT(thread_id, event_type) DO UPDATE SET enabled = excluded.enabled`,
			threadID, eventType, enabledInt,
		)
		return err
	})
}

// GetNotificationPref returns the stored preference and whether one exists.
func (d *DB) GetNotificationPref(threadID, eventType string) (enabled bool, found bool, err error) {
	row := d.sql.QueryRow(
		`SELECT enabled FROM notification_prefs WHERE thread_id = ? AND event_type = ?`,
		threadID, eventType,
	)
	var enabledInt int
	if err := row.Scan(&enabledInt); err != nil {
		if err == ErrNoRows {
			return false, false, nil
		}
		return false, false, err
	}
	return enabledInt != 0, true, nil
}

// ListNotificationPrefs returns every stored preference for a thread.
func (d *DB) ListNotificationPrefs(threadID string) (map[string]bool, error) {
	rows, err := d.sql.Query(`SELECT event_type, enabled FROM notification_prefs WHERE thread_id = ?`, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]bool{}
	for rows.Next() {
		var eventType string
		var enabledInt int
		if err := rows.Scan(&eventType, &enabledInt); err != nil {
			return nil, err
		}
		out[eventType] = enabledInt != 0
	}
	return out, rows.Err()
}
