// Package store owns the client's task collection and keeps it in step with
// the remote service.
//
// The local collection is a cache, never the source of truth. Each mutation
// follows an explicit apply policy: ApplyBeforeConfirm changes the local view
// as the remote call is issued and leaves it as is if the call fails;
// ApplyAfterConfirm changes it only once the call succeeds. Create is always
// apply-after-confirm because the task id comes from the service.
package store

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"taskdeck/internal/logging"
	"taskdeck/internal/service"
)

// Message prefixes for errors surfaced to the user.
const (
	LoadFailedPrefix   = "Failed to load tasks: "
	CreateFailedPrefix = "Failed to add task: "
	UpdateFailedPrefix = "Failed to update task: "
	DeleteFailedPrefix = "Failed to delete task: "
)

// ErrEmptyTitle is returned by Create for blank titles. No remote call is made.
var ErrEmptyTitle = errors.New("title required")

// ErrClosed is returned by operations started after Close.
var ErrClosed = errors.New("store closed")

// ApplyPolicy decides when a mutation reaches the local collection.
type ApplyPolicy int

const (
	// ApplyAfterConfirm mutates the collection only after the remote call succeeds.
	ApplyAfterConfirm ApplyPolicy = iota

	// ApplyBeforeConfirm mutates the collection as the call is issued and does
	// not roll back on failure.
	ApplyBeforeConfirm
)

// String returns the policy name.
func (p ApplyPolicy) String() string {
	if p == ApplyBeforeConfirm {
		return "apply-before-confirm"
	}
	return "apply-after-confirm"
}

// Policy holds the apply policy of each mutation.
type Policy struct {
	Toggle ApplyPolicy
	Delete ApplyPolicy
}

// DefaultPolicy applies toggles immediately and deletes after confirmation.
func DefaultPolicy() Policy {
	return Policy{Toggle: ApplyBeforeConfirm, Delete: ApplyAfterConfirm}
}

// Reporter receives error messages.
type Reporter interface {
	// Raise shows a transient message.
	Raise(message string)
	// Persist shows a message that does not expire.
	Persist(message string)
	// Resolve clears a message set by Persist.
	Resolve()
}

// MutationState tracks one task's in-flight mutation.
type MutationState int

const (
	Idle MutationState = iota
	Pending
	Committed
	Failed
)

// String returns the state name.
func (s MutationState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Committed:
		return "committed"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Snapshot is a copy of the store's public state.
type Snapshot struct {
	Tasks   []service.Task
	Loading bool
}

// Store owns the ordered task collection, newest first.
// It is safe for concurrent use; operations on different tasks are independent
// and operations on the same task are not ordered relative to each other.
type Store struct {
	remote service.Remote
	errs   Reporter
	policy Policy
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	tasks     []service.Task
	loading   bool
	closed    bool
	mutations map[service.TaskID]MutationState
	onChange  func()
}

// New creates a store. errs may be nil.
func New(remote service.Remote, errs Reporter, policy Policy, logger *slog.Logger) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		remote:    remote,
		errs:      errs,
		policy:    policy,
		logger:    logging.OrDiscard(logger).With("component", "store"),
		ctx:       ctx,
		cancel:    cancel,
		mutations: make(map[service.TaskID]MutationState),
	}
}

// OnChange registers fn to be called after every change to the public state.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Policy returns the store's apply policies.
func (s *Store) Policy() Policy { return s.policy }

// Snapshot returns a copy of the collection and the loading flag.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := make([]service.Task, len(s.tasks))
	copy(tasks, s.tasks)
	return Snapshot{Tasks: tasks, Loading: s.loading}
}

// Task returns the task with id.
func (s *Store) Task(id service.TaskID) (service.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.tasks[i], true
	}
	return service.Task{}, false
}

// Pending reports whether a mutation of id is in flight.
func (s *Store) Pending(id service.TaskID) bool {
	return s.Mutation(id) == Pending
}

// Mutation returns the state of the latest mutation issued for id.
func (s *Store) Mutation(id service.TaskID) MutationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutations[id]
}

// Load replaces the collection with the service's list. On failure the
// collection is kept and a non-expiring message is shown.
func (s *Store) Load(ctx context.Context) error {
	if !s.update(func() { s.loading = true }) {
		return ErrClosed
	}

	ctx, stop := s.bind(ctx)
	defer stop()

	tasks, err := s.remote.ListTasks(ctx)
	if err != nil {
		te := service.AsTransportError(service.OpListTasks, err)
		if !s.update(func() { s.loading = false }) {
			return ErrClosed
		}
		s.logger.Warn("load failed", "error", te)
		s.persist(LoadFailedPrefix + te.Error())
		return te
	}

	tasks = dedupe(tasks)
	if !s.update(func() {
		s.tasks = tasks
		s.loading = false
		s.pruneLocked()
	}) {
		return ErrClosed
	}
	s.logger.Debug("tasks loaded", "count", len(tasks))
	if s.errs != nil {
		s.errs.Resolve()
	}
	return nil
}

// Create adds a task once the service confirms it. Blank titles are rejected
// with ErrEmptyTitle without contacting the service or raising a message.
func (s *Store) Create(ctx context.Context, title string) (service.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return service.Task{}, ErrEmptyTitle
	}
	if s.isClosed() {
		return service.Task{}, ErrClosed
	}

	ctx, stop := s.bind(ctx)
	defer stop()

	task, err := s.remote.CreateTask(ctx, title)
	if err != nil {
		te := service.AsTransportError(service.OpCreateTask, err)
		s.logger.Warn("create failed", "error", te)
		s.raise(CreateFailedPrefix + te.Error())
		return service.Task{}, te
	}

	if !s.update(func() {
		if i := s.indexLocked(task.ID); i >= 0 {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
		}
		s.tasks = append([]service.Task{task}, s.tasks...)
		s.mutations[task.ID] = Committed
	}) {
		return task, ErrClosed
	}
	s.logger.Debug("task created", "id", task.ID)
	return task, nil
}

// Toggle sets the completed flag of a task according to the toggle policy.
func (s *Store) Toggle(ctx context.Context, id service.TaskID, completed bool) error {
	apply := func() {
		if i := s.indexLocked(id); i >= 0 {
			s.tasks[i].Completed = completed
		}
	}
	return s.mutate(ctx, id, service.OpUpdateTask, s.policy.Toggle, UpdateFailedPrefix, apply, func(ctx context.Context) error {
		return s.remote.UpdateTask(ctx, id, completed)
	})
}

// Delete removes a task according to the delete policy.
func (s *Store) Delete(ctx context.Context, id service.TaskID) error {
	apply := func() {
		if i := s.indexLocked(id); i >= 0 {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
		}
	}
	return s.mutate(ctx, id, service.OpDeleteTask, s.policy.Delete, DeleteFailedPrefix, apply, func(ctx context.Context) error {
		return s.remote.DeleteTask(ctx, id)
	})
}

// Close cancels in-flight remote calls. Results arriving afterwards are ignored.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
}

// mutate runs one remote mutation through the Idle → Pending → Committed|Failed
// cycle, applying the local change before or after the call per policy.
func (s *Store) mutate(ctx context.Context, id service.TaskID, op string, policy ApplyPolicy, failPrefix string, apply func(), call func(context.Context) error) error {
	if !s.update(func() {
		s.mutations[id] = Pending
		if policy == ApplyBeforeConfirm {
			apply()
		}
	}) {
		return ErrClosed
	}

	ctx, stop := s.bind(ctx)
	defer stop()

	if err := call(ctx); err != nil {
		te := service.AsTransportError(op, err)
		if !s.update(func() { s.mutations[id] = Failed }) {
			return ErrClosed
		}
		s.logger.Warn("mutation failed", "op", op, "id", id, "policy", policy, "error", te)
		s.raise(failPrefix + te.Error())
		return te
	}

	if !s.update(func() {
		if op == service.OpDeleteTask {
			// The task is gone; nothing is left to track.
			delete(s.mutations, id)
		} else {
			s.mutations[id] = Committed
		}
		if policy == ApplyAfterConfirm {
			apply()
		}
	}) {
		return ErrClosed
	}
	return nil
}

// bind derives a context that is also cancelled when the store closes.
func (s *Store) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// update applies fn under the lock and notifies listeners.
// It reports false, without calling fn, once the store is closed.
func (s *Store) update(fn func()) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	fn()
	notify := s.onChange
	s.mu.Unlock()

	if notify != nil {
		notify()
	}
	return true
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Store) raise(message string) {
	if s.errs != nil && !s.isClosed() {
		s.errs.Raise(message)
	}
}

func (s *Store) persist(message string) {
	if s.errs != nil && !s.isClosed() {
		s.errs.Persist(message)
	}
}

// pruneLocked drops mutation states of tasks no longer in the collection.
// In-flight mutations are kept until they settle.
func (s *Store) pruneLocked() {
	for id, state := range s.mutations {
		if state != Pending && s.indexLocked(id) < 0 {
			delete(s.mutations, id)
		}
	}
}

func (s *Store) indexLocked(id service.TaskID) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// dedupe drops later entries that repeat an earlier id.
func dedupe(tasks []service.Task) []service.Task {
	seen := make(map[service.TaskID]bool, len(tasks))
	out := make([]service.Task, 0, len(tasks))
	for _, t := range tasks {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		out = append(out, t)
	}
	return out
}
