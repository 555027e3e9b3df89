// Package taskstore holds the client-side task list of a rendered plan and
// applies completion toggles optimistically.
//
// A toggle is visible immediately and confirmed in the background. When the
// confirmation fails the task goes back to the value it had before the toggle.
// Every toggle bumps a per-task version, and only the confirmation carrying the
// latest version may commit or revert, so a slow confirmation from an earlier
// toggle never overwrites a newer one. Confirmations of one task reach the
// Confirmer one at a time in toggle order, so the store of record ends at the
// value of the last toggle.
package taskstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/javiermolinar/dayplan/internal/plan"
)

// Confirmer persists a toggle. current is the value the task had before the toggle.
type Confirmer interface {
	ToggleTaskCompletion(ctx context.Context, taskID string, current bool) error
}

// FailureHandler is called after a toggle has been reverted.
type FailureHandler func(taskID string, err error)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for confirmation outcomes.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFailureHandler registers a callback for reverted toggles.
func WithFailureHandler(fn FailureHandler) Option {
	return func(s *Store) {
		s.onFailure = fn
	}
}

// WithConfirmTimeout bounds each confirmation. Zero means no timeout.
func WithConfirmTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.timeout = d
	}
}

// WithContext sets the parent context of every confirmation.
func WithContext(ctx context.Context) Option {
	return func(s *Store) {
		if ctx != nil {
			s.ctx = ctx
		}
	}
}

// Snapshot is a copy of the store state for rendering.
type Snapshot struct {
	Tasks   []plan.Task
	Pending map[string]bool
}

// IsPending reports whether a confirmation for the task is outstanding.
func (s Snapshot) IsPending(taskID string) bool {
	return s.Pending[taskID]
}

// Store is the optimistic task list for one plan. It is safe for concurrent use.
type Store struct {
	confirmer Confirmer
	logger    *zap.SugaredLogger
	onFailure FailureHandler
	timeout   time.Duration
	ctx       context.Context

	mu       sync.Mutex
	tasks    []plan.Task
	index    map[string]int
	versions map[string]uint64
	pending  map[string]bool
	lastErr  map[string]error
	queued   map[string][]confirmation
	draining map[string]bool

	changes   chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a store seeded with the plan's tasks.
func New(tasks []plan.Task, confirmer Confirmer, opts ...Option) *Store {
	s := &Store{
		confirmer: confirmer,
		logger:    zap.NewNop().Sugar(),
		ctx:       context.Background(),
		tasks:     make([]plan.Task, len(tasks)),
		index:     make(map[string]int, len(tasks)),
		versions:  make(map[string]uint64),
		pending:   make(map[string]bool),
		lastErr:   make(map[string]error),
		queued:    make(map[string][]confirmation),
		draining:  make(map[string]bool),
		changes:   make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	copy(s.tasks, tasks)
	for i, t := range s.tasks {
		s.index[t.ID] = i
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// confirmation is one toggle waiting to be persisted.
type confirmation struct {
	current bool
	version uint64
}

// Toggle flips the task's completion locally to !current and confirms it in the
// background. The new state is visible to Snapshot before Toggle returns.
func (s *Store) Toggle(taskID string, current bool) error {
	s.mu.Lock()
	i, ok := s.index[taskID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("toggle %s: %w", taskID, plan.ErrTaskNotFound)
	}
	s.tasks[i].Completed = !current
	s.versions[taskID]++
	version := s.versions[taskID]
	s.pending[taskID] = true
	delete(s.lastErr, taskID)
	s.queued[taskID] = append(s.queued[taskID], confirmation{current: current, version: version})
	s.wg.Add(1)
	start := !s.draining[taskID]
	s.draining[taskID] = true
	s.mu.Unlock()

	s.notify()

	if start {
		go s.drain(taskID)
	}
	return nil
}

// drain confirms the task's queued toggles in order until none are left.
func (s *Store) drain(taskID string) {
	for {
		s.mu.Lock()
		queue := s.queued[taskID]
		if len(queue) == 0 {
			delete(s.queued, taskID)
			delete(s.draining, taskID)
			s.mu.Unlock()
			return
		}
		next := queue[0]
		s.queued[taskID] = queue[1:]
		s.mu.Unlock()

		s.confirm(taskID, next.current, next.version)
	}
}

func (s *Store) confirm(taskID string, current bool, version uint64) {
	defer s.wg.Done()

	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	err := s.confirmer.ToggleTaskCompletion(ctx, taskID, current)

	s.mu.Lock()
	if s.versions[taskID] != version {
		s.mu.Unlock()
		s.logger.Debugw("discarding superseded confirmation", "task", taskID, "version", version, "err", err)
		return
	}
	delete(s.pending, taskID)
	if err != nil {
		s.tasks[s.index[taskID]].Completed = current
		s.lastErr[taskID] = err
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warnw("toggle failed, reverted", "task", taskID, "completed", current, "err", err)
		if s.onFailure != nil {
			s.onFailure(taskID, err)
		}
	} else {
		s.logger.Debugw("toggle confirmed", "task", taskID, "completed", !current)
	}
	s.notify()
}

func (s *Store) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// Snapshot returns a copy of the tasks and the pending set.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := make([]plan.Task, len(s.tasks))
	copy(tasks, s.tasks)
	pending := make(map[string]bool, len(s.pending))
	for id := range s.pending {
		pending[id] = true
	}
	return Snapshot{Tasks: tasks, Pending: pending}
}

// Task returns the current local state of one task.
func (s *Store) Task(taskID string) (plan.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[taskID]
	if !ok {
		return plan.Task{}, false
	}
	return s.tasks[i], true
}

// IsPending reports whether a confirmation for the task is outstanding.
func (s *Store) IsPending(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[taskID]
}

// LastError returns the error of the task's last reverted toggle, if any.
// It is cleared by the next toggle of that task.
func (s *Store) LastError(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr[taskID]
}

// Changes is signalled after every state transition. Signals coalesce: a
// receiver should re-read Snapshot rather than count them.
func (s *Store) Changes() <-chan struct{} {
	return s.changes
}

// Close tells listeners the store is no longer rendered by closing Done.
// Confirmations already queued still run to completion.
func (s *Store) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Done is closed by Close.
func (s *Store) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until every in-flight confirmation has resolved.
func (s *Store) Wait() {
	s.wg.Wait()
}
