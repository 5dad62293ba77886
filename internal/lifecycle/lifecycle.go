// Package lifecycle implements the session state machine: creation,
// validated transitions with optimistic concurrency, bounded activity
// logging, catch-up summaries, and crash recovery — spec.md §4.1.
//
// The per-session locking (a sync.Map of mutexes keyed by session id,
// taken only around the read-modify-write of a single session) mirrors
// vanducng-goclaw's internal/agent/loop.go summarizeMu pattern, which
// guards the same kind of per-key critical section.
package lifecycle

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relaybroker/broker/internal/errs"
	"github.com/relaybroker/broker/internal/logging"
	"github.com/relaybroker/broker/internal/store"
)

// Status values, per spec.md §3/§4.1.
const (
	StatusCreated    = "CREATED"
	StatusActive     = "ACTIVE"
	StatusPaused     = "PAUSED"
	StatusTerminated = "TERMINATED"
)

// transitions enumerates the allowed from→to edges, including the
// idempotent self-loops spec.md §4.1 calls out explicitly.
var transitions = map[string]map[string]bool{
	StatusCreated:    {StatusActive: true, StatusTerminated: true},
	StatusActive:     {StatusActive: true, StatusPaused: true, StatusTerminated: true},
	StatusPaused:     {StatusPaused: true, StatusActive: true, StatusTerminated: true},
	StatusTerminated: {StatusTerminated: true},
}

const activityLogLimit = 10

// Session is the broker's durable record pairing a thread with a
// project and the lifecycle of one child process.
type Session struct {
	ID          string
	ProjectPath string
	ThreadID    string
	Status      string
	Context     map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func fromRow(r store.SessionRow) Session {
	return Session{
		ID:          r.ID,
		ProjectPath: r.ProjectPath,
		ThreadID:    r.ThreadID,
		Status:      r.Status,
		Context:     r.Context,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// Activity is one entry in a session's bounded activity log.
type Activity struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Details   string    `json:"details"`
}

// Manager owns all session mutation, per spec.md §5 "Shared mutation".
type Manager struct {
	db    *store.DB
	locks sync.Map // session id -> *sync.Mutex
	log   *logging.Logger
}

// New constructs a Manager over the given persistence layer.
func New(db *store.DB) *Manager {
	return &Manager{db: db, log: logging.New("lifecycle")}
}

func (m *Manager) lockFor(id string) *sync.Mutex {
	v, _ := m.locks.LoadOrStore(id, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Create starts a new session in CREATED status.
func (m *Manager) Create(projectPath, threadID string) (Session, error) {
	now := time.Now().UTC()
	row := store.SessionRow{
		ID:          uuid.New().String(),
		ProjectPath: projectPath,
		ThreadID:    threadID,
		Status:      StatusCreated,
		Context:     map[string]any{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.db.InsertSession(row); err != nil {
		return Session{}, errs.Wrap(errs.KindValidation, "failed to create session", err)
	}
	return fromRow(row), nil
}

// Get looks up a session by its full id (strict: no prefix lookup —
// see DESIGN.md's Open Question 1 decision).
func (m *Manager) Get(id string) (Session, error) {
	row, err := m.db.GetSession(id)
	if err != nil {
		return Session{}, errs.Wrap(errs.KindNotFound, fmt.Sprintf("session %s not found", id), err)
	}
	return fromRow(row), nil
}

// List returns every session, newest-updated first.
func (m *Manager) List() ([]Session, error) {
	rows, err := m.db.ListSessions()
	if err != nil {
		return nil, err
	}
	out := make([]Session, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromRow(r))
	}
	return out, nil
}

// ActiveForThread returns the single ACTIVE session for a thread, if any.
func (m *Manager) ActiveForThread(threadID string) (Session, error) {
	row, err := m.db.GetActiveSessionForThread(threadID)
	if err != nil {
		return Session{}, errs.Wrap(errs.KindNotFound, "no active session for thread", err)
	}
	return fromRow(row), nil
}

// Transition moves a session from `from` to `to`, verifying the
// on-disk status still equals `from` (optimistic concurrency) and
// that the edge is allowed by the transition graph.
func (m *Manager) Transition(id, from, to string) (Session, error) {
	allowed, ok := transitions[from]
	if !ok || !allowed[to] {
		return Session{}, errs.New(errs.KindInvalidTransition, fmt.Sprintf("cannot move session from %s to %s", from, to))
	}

	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	current, err := m.Get(id)
	if err != nil {
		return Session{}, err
	}
	now := time.Now().UTC()
	ok2, err := m.db.CompareAndSwapStatus(id, from, to, current.Context, now)
	if err != nil {
		return Session{}, errs.Wrap(errs.KindValidation, "transition failed", err)
	}
	if !ok2 {
		return Session{}, errs.New(errs.KindStateMismatch, fmt.Sprintf("session %s is no longer in state %s", id, from))
	}
	current.Status = to
	current.UpdatedAt = now
	return current, nil
}

// UpdateContext merges kv into a session's context (union-merge, never replace).
func (m *Manager) UpdateContext(id string, kv map[string]any) error {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	s, err := m.Get(id)
	if err != nil {
		return err
	}
	if s.Context == nil {
		s.Context = map[string]any{}
	}
	for k, v := range kv {
		s.Context[k] = v
	}
	now := time.Now().UTC()
	if err := m.db.UpdateContext(id, s.Context, now); err != nil {
		return errs.Wrap(errs.KindValidation, "failed to update context", err)
	}
	return nil
}

// TrackActivity appends an entry to context.activity_log, truncating
// to the last activityLogLimit entries (bounded log, spec.md §4.1).
func (m *Manager) TrackActivity(id, activityType, details string) error {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	s, err := m.Get(id)
	if err != nil {
		return err
	}
	log := decodeActivityLog(s.Context)
	log = append(log, Activity{Timestamp: time.Now().UTC(), Type: activityType, Details: details})
	if len(log) > activityLogLimit {
		log = log[len(log)-activityLogLimit:]
	}
	if s.Context == nil {
		s.Context = map[string]any{}
	}
	s.Context["activity_log"] = encodeActivityLog(log)
	now := time.Now().UTC()
	if err := m.db.UpdateContext(id, s.Context, now); err != nil {
		return errs.Wrap(errs.KindValidation, "failed to track activity", err)
	}
	return nil
}

// GenerateCatchupSummary renders the activity log into a plain-English
// paragraph and atomically clears it (read-and-clear, per spec.md
// §4.1). Only retained entries (at most activityLogLimit) are ever
// considered — per DESIGN.md's Open Question 3 decision, activities
// evicted by the bound are not recoverable for summarization.
func (m *Manager) GenerateCatchupSummary(id string) (string, error) {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	s, err := m.Get(id)
	if err != nil {
		return "", err
	}
	log := decodeActivityLog(s.Context)
	summary := renderSummary(log)

	if s.Context == nil {
		s.Context = map[string]any{}
	}
	delete(s.Context, "activity_log")
	now := time.Now().UTC()
	if err := m.db.UpdateContext(id, s.Context, now); err != nil {
		return "", errs.Wrap(errs.KindValidation, "failed to clear activity log", err)
	}
	return summary, nil
}

func renderSummary(log []Activity) string {
	if len(log) == 0 {
		return "No activity since you last checked in."
	}
	sort.Slice(log, func(i, j int) bool { return log[i].Timestamp.Before(log[j].Timestamp) })
	summary := fmt.Sprintf("While you were away, %d thing(s) happened: ", len(log))
	for i, a := range log {
		if i > 0 {
			summary += "; "
		}
		summary += fmt.Sprintf("%s (%s)", a.Details, a.Type)
	}
	return summary + "."
}

// Recover finds every ACTIVE session, moves it to PAUSED, and stamps a
// recovered_at timestamp plus a human-readable activity_log entry into
// its context, union-merged with whatever was already there (SPEC_FULL.md
// §5 "Supplemented features"). Idempotent: a second call finds nothing
// ACTIVE.
func (m *Manager) Recover() ([]string, error) {
	actives, err := m.db.ListSessionsByStatus(StatusActive)
	if err != nil {
		return nil, errs.Wrap(errs.KindFatal, "failed to scan for active sessions", err)
	}

	var recovered []string
	now := time.Now().UTC()
	for _, row := range actives {
		s := fromRow(row)
		if s.Context == nil {
			s.Context = map[string]any{}
		}
		s.Context["recovered_at"] = now.Format(time.RFC3339Nano)

		log := decodeActivityLog(s.Context)
		log = append(log, Activity{Timestamp: now, Type: "recovery", Details: "session recovered after a daemon restart"})
		if len(log) > activityLogLimit {
			log = log[len(log)-activityLogLimit:]
		}
		s.Context["activity_log"] = encodeActivityLog(log)

		ok, err := m.db.CompareAndSwapStatus(s.ID, StatusActive, StatusPaused, s.Context, now)
		if err != nil {
			m.log.Errorf("recovering session %s: %v", s.ID, err)
			continue
		}
		if ok {
			recovered = append(recovered, s.ID)
			m.log.Printf("recovered session %s (ACTIVE -> PAUSED)", s.ID)
		}
	}
	return recovered, nil
}

func decodeActivityLog(ctx map[string]any) []Activity {
	raw, ok := ctx["activity_log"]
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]Activity, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		a := Activity{}
		if ts, ok := m["timestamp"].(string); ok {
			if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
				a.Timestamp = t
			}
		}
		if t, ok := m["type"].(string); ok {
			a.Type = t
		}
		if d, ok := m["details"].(string); ok {
			a.Details = d
		}
		out = append(out, a)
	}
	return out
}

func encodeActivityLog(log []Activity) []map[string]any {
	out := make([]map[string]any, 0, len(log))
	for _, a := range log {
		out = append(out, map[string]any{
			"timestamp": a.Timestamp.Format(time.RFC3339Nano),
			"type":      a.Type,
			"details":   a.Details,
		})
	}
	return out
}
