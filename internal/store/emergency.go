package store

import "time"

// EmergencyRow is the persisted singleton emergency-mode record.
type EmergencyRow struct {
	Status            int // 0 = NORMAL, 1 = EMERGENCY
	ActivatedAt       *time.Time
	ActivatedByThread *string
}

// GetEmergencyState reads the singleton row.
func (d *DB) GetEmergencyState() (EmergencyRow, error) {
	var row EmergencyRow
	var activatedAt, activatedBy *string
	err := d.sql.QueryRow(
		`SELECT status, activated_at, activated_by_thread FROM emergency_state WHERE id = 1`,
	).Scan(&row.Status, &activatedAt, &activatedBy)
	if err != nil {
		return EmergencyRow{}, err
	}
	if activatedAt != nil {
		t, err := time.Parse(time.RFC3339Nano, *activatedAt)
		if err != nil {
			return EmergencyRow{}, err
		}
		row.ActivatedAt = &t
	}
	row.ActivatedByThread = activatedBy
	return row, nil
}

// SetEmergencyState overwrites the singleton row.
func (d *DB) SetEmergencyState(row EmergencyRow) error {
	return d.withWrite(func() error {
		var activatedAt, activatedBy *string
		if row.ActivatedAt != nil {
			s := row.ActivatedAt.UTC().Format(time.RFC3339Nano)
			activatedAt = &s
		}
		activatedBy = row.ActivatedByThread
		_, err := d.sql.Exec(
			`UPDATE emergency_state SET status = ?, activated_at = ?, activated_by_thread = ? WHERE id = 1`,
			row.Status, activatedAt, activatedBy,
		)
		return err
	})
}
