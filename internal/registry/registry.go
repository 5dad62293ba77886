// Package registry owns the in-memory side of a session that the
// database alone can't hold: the live *supervisor.Supervisor bridging
// to its child process. It is the glue between the Command Router's
// `/session` handler and the Stream Orchestrator, grounded on the
// teacher's internal/telegram/bot.go pattern of a single map keyed by
// session id (there: `activeSession map[int64]string`) guarding access
// to per-chat state with a mutex.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/relaybroker/broker/internal/errs"
	"github.com/relaybroker/broker/internal/lifecycle"
	"github.com/relaybroker/broker/internal/logging"
	"github.com/relaybroker/broker/internal/orchestrator"
	"github.com/relaybroker/broker/internal/store"
	"github.com/relaybroker/broker/internal/supervisor"
)

const stopTimeout = 10 * time.Second

// Registry holds the live supervisor for every ACTIVE session and runs
// the orchestrator against it on demand.
type Registry struct {
	mu      sync.Mutex
	sups    map[string]*supervisor.Supervisor
	db      *store.DB
	life    *lifecycle.Manager
	orch    *orchestrator.Orchestrator
	command []string
	log     *logging.Logger
}

// New constructs a Registry. command is the coding-assistant argv
// (command[0] resolved against PATH, the rest passed verbatim).
func New(db *store.DB, life *lifecycle.Manager, orch *orchestrator.Orchestrator, command []string) *Registry {
	return &Registry{
		sups:    map[string]*supervisor.Supervisor{},
		db:      db,
		life:    life,
		orch:    orch,
		command: command,
		log:     logging.New("registry"),
	}
}

// Start resolves path (falling back to the thread's mapped project
// path when empty), spawns a child, and moves the new session
// CREATED -> ACTIVE.
func (r *Registry) Start(threadID, path string) (lifecycle.Session, error) {
	if path == "" {
		mapping, err := r.db.GetThreadMappingByThread(threadID)
		if err != nil {
			return lifecycle.Session{}, errs.New(errs.KindValidation, "no path given and no /thread mapping for this thread")
		}
		path = mapping.ProjectPath
	}
	if _, err := r.life.ActiveForThread(threadID); err == nil {
		return lifecycle.Session{}, errs.New(errs.KindValidation, "this thread already has an ACTIVE session; /session stop it first")
	}

	s, err := r.life.Create(path, threadID)
	if err != nil {
		return lifecycle.Session{}, err
	}
	if err := r.spawn(s.ID, path); err != nil {
		return lifecycle.Session{}, err
	}
	return r.life.Transition(s.ID, lifecycle.StatusCreated, lifecycle.StatusActive)
}

// Resume spawns a fresh child for a PAUSED session and moves it back
// to ACTIVE.
func (r *Registry) Resume(id string) (lifecycle.Session, error) {
	s, err := r.life.Get(id)
	if err != nil {
		return lifecycle.Session{}, err
	}
	if s.Status != lifecycle.StatusPaused {
		return lifecycle.Session{}, errs.New(errs.KindInvalidTransition, fmt.Sprintf("session %s is %s, not PAUSED", id, s.Status))
	}
	if err := r.spawn(s.ID, s.ProjectPath); err != nil {
		return lifecycle.Session{}, err
	}
	return r.life.Transition(s.ID, lifecycle.StatusPaused, lifecycle.StatusActive)
}

// Stop terminates the child (if any) and moves the session to
// TERMINATED from whatever state it was in.
func (r *Registry) Stop(id string) (lifecycle.Session, error) {
	s, err := r.life.Get(id)
	if err != nil {
		return lifecycle.Session{}, err
	}

	r.mu.Lock()
	sup := r.sups[id]
	delete(r.sups, id)
	r.mu.Unlock()

	if sup != nil {
		_ = sup.Stop(stopTimeout)
	}
	return r.life.Transition(id, s.Status, lifecycle.StatusTerminated)
}

// HasActive reports whether threadID currently owns an ACTIVE session,
// without touching it.
func (r *Registry) HasActive(threadID string) bool {
	_, err := r.life.ActiveForThread(threadID)
	return err == nil
}

// Dispatch runs command against threadID's ACTIVE session, blocking
// until the child's output for that command stops arriving. Returns
// false if the thread has no ACTIVE session.
func (r *Registry) Dispatch(ctx context.Context, threadID, command string) (bool, error) {
	s, err := r.life.ActiveForThread(threadID)
	if err != nil {
		return false, nil
	}
	r.mu.Lock()
	sup := r.sups[s.ID]
	r.mu.Unlock()

	if err := r.life.TrackActivity(s.ID, "command", command); err != nil {
		r.log.Warnf("track_activity failed for %s: %v", s.ID, err)
	}
	return true, r.orch.Run(ctx, s.ID, threadID, sup, command)
}

// InvokeCustomCommand satisfies handlers.Invoker: it sends the custom
// command's name, followed by args, to the thread's ACTIVE session
// exactly like any other command. The command file's body is not sent.
func (r *Registry) InvokeCustomCommand(ctx context.Context, threadID, name, args string) error {
	text := name
	if args != "" {
		text = name + " " + args
	}
	ok, err := r.Dispatch(ctx, threadID, text)
	if !ok {
		return errs.New(errs.KindNotFound, "no active session for thread")
	}
	return err
}

func (r *Registry) spawn(id, path string) error {
	sup := supervisor.New(r.command, path)
	if err := sup.Start(); err != nil {
		return err
	}
	r.mu.Lock()
	r.sups[id] = sup
	r.mu.Unlock()
	return nil
}
