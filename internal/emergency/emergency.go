// Package emergency implements the persisted emergency-mode singleton
// of spec.md §4.5: when active, it auto-approves Safe tool calls
// without creating an approval request. Destructive tools always still
// require approval, regardless of mode.
package emergency

import (
	"time"

	"github.com/relaybroker/broker/internal/approval"
	"github.com/relaybroker/broker/internal/errs"
	"github.com/relaybroker/broker/internal/store"
)

const (
	statusNormal    = 0
	statusEmergency = 1
)

// Status is the emergency singleton's public shape.
type Status struct {
	Active            bool
	ActivatedAt       *time.Time
	ActivatedByThread *string
}

// Manager wraps the persisted emergency_state row.
type Manager struct {
	db *store.DB
}

// New constructs a Manager over the given persistence layer.
func New(db *store.DB) *Manager {
	return &Manager{db: db}
}

// Status returns the current mode.
func (m *Manager) Status() (Status, error) {
	row, err := m.db.GetEmergencyState()
	if err != nil {
		return Status{}, errs.Wrap(errs.KindValidation, "failed to read emergency state", err)
	}
	return Status{
		Active:            row.Status == statusEmergency,
		ActivatedAt:       row.ActivatedAt,
		ActivatedByThread: row.ActivatedByThread,
	}, nil
}

// Activate switches to EMERGENCY. Idempotent: the original activator
// and activation time are preserved across duplicate activations.
func (m *Manager) Activate(threadID string) error {
	row, err := m.db.GetEmergencyState()
	if err != nil {
		return errs.Wrap(errs.KindValidation, "failed to read emergency state", err)
	}
	if row.Status == statusEmergency {
		return nil
	}
	now := time.Now().UTC()
	row.Status = statusEmergency
	row.ActivatedAt = &now
	row.ActivatedByThread = &threadID
	if err := m.db.SetEmergencyState(row); err != nil {
		return errs.Wrap(errs.KindValidation, "failed to activate emergency mode", err)
	}
	return nil
}

// Deactivate switches back to NORMAL. Idempotent.
func (m *Manager) Deactivate() error {
	row, err := m.db.GetEmergencyState()
	if err != nil {
		return errs.Wrap(errs.KindValidation, "failed to read emergency state", err)
	}
	if row.Status == statusNormal {
		return nil
	}
	row.Status = statusNormal
	row.ActivatedAt = nil
	row.ActivatedByThread = nil
	if err := m.db.SetEmergencyState(row); err != nil {
		return errs.Wrap(errs.KindValidation, "failed to deactivate emergency mode", err)
	}
	return nil
}

// ShouldAutoApprove reports whether a tool call with the given
// classifier outcome should bypass the approval ledger entirely: only
// when emergency mode is active AND the outcome is Safe. Destructive
// tools are never auto-approved.
func (m *Manager) ShouldAutoApprove(outcome approval.Outcome) (bool, error) {
	if outcome == approval.Destructive {
		return false, nil
	}
	status, err := m.Status()
	if err != nil {
		return false, err
	}
	return status.Active, nil
}
