// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"taskdeck/internal/service"
)

// Operation names accepted by FakeRemote's injection helpers.
const (
	OpListTasks   = "ListTasks"
	OpCreateTask  = "CreateTask"
	OpUpdateTask  = "UpdateTask"
	OpDeleteTask  = "DeleteTask"
	OpProbeHealth = "ProbeHealth"
)

// ErrNotFound is returned when a task does not exist.
var ErrNotFound = errors.New("not found")

// FakeRemote is an in-memory implementation of service.Remote for testing.
// Tasks are kept newest-first and ids are assigned sequentially from 1.
type FakeRemote struct {
	mu     sync.Mutex
	tasks  []service.Task
	nextID int
	health service.HealthReport
	errs   map[string]error
	holds  map[string]chan struct{}
	calls  map[string]int
}

// NewFakeRemote creates a FakeRemote reporting every subsystem connected.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		nextID: 1,
		health: service.HealthReport{Status: "healthy", Database: service.StatusConnected, Cache: service.StatusConnected},
		errs:   make(map[string]error),
		holds:  make(map[string]chan struct{}),
		calls:  make(map[string]int),
	}
}

// AddTask stores a task directly, as if created by another client.
func (f *FakeRemote) AddTask(title string) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insertLocked(title)
}

// Tasks returns a copy of the stored tasks.
func (f *FakeRemote) Tasks() []service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]service.Task, len(f.tasks))
	copy(out, f.tasks)
	return out
}

// SetHealth sets the report returned by ProbeHealth.
func (f *FakeRemote) SetHealth(report service.HealthReport) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.health = report
}

// SetError makes op fail with err until cleared with a nil err.
func (f *FakeRemote) SetError(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, op)
		return
	}
	f.errs[op] = err
}

// Hold blocks calls to op until the returned release func is called or the
// call's context is done. Release is safe to call more than once.
func (f *FakeRemote) Hold(op string) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.holds[op] = ch
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			if f.holds[op] == ch {
				delete(f.holds, op)
			}
			f.mu.Unlock()
			close(ch)
		})
	}
}

// Calls returns how many times op was invoked.
func (f *FakeRemote) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// enter records the call, waits on any hold and returns the injected error.
func (f *FakeRemote) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls[op]++
	hold := f.holds[op]
	f.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return &service.TransportError{Op: op, Reason: "request cancelled", Err: ctx.Err()}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs[op]
}

// ListTasks implements service.Remote.
func (f *FakeRemote) ListTasks(ctx context.Context) ([]service.Task, error) {
	if err := f.enter(ctx, OpListTasks); err != nil {
		return nil, err
	}
	return f.Tasks(), nil
}

// CreateTask implements service.Remote.
func (f *FakeRemote) CreateTask(ctx context.Context, title string) (service.Task, error) {
	if err := f.enter(ctx, OpCreateTask); err != nil {
		return service.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insertLocked(title), nil
}

// UpdateTask implements service.Remote.
func (f *FakeRemote) UpdateTask(ctx context.Context, id service.TaskID, completed bool) error {
	if err := f.enter(ctx, OpUpdateTask); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks[i].Completed = completed
			return nil
		}
	}
	return &service.TransportError{Op: OpUpdateTask, StatusCode: 404, Reason: "request failed with status code 404", Err: ErrNotFound}
}

// DeleteTask implements service.Remote.
func (f *FakeRemote) DeleteTask(ctx context.Context, id service.TaskID) error {
	if err := f.enter(ctx, OpDeleteTask); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return &service.TransportError{Op: OpDeleteTask, StatusCode: 404, Reason: "request failed with status code 404", Err: ErrNotFound}
}

// ProbeHealth implements service.Remote.
func (f *FakeRemote) ProbeHealth(ctx context.Context) (service.HealthReport, error) {
	if err := f.enter(ctx, OpProbeHealth); err != nil {
		return service.HealthReport{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.health, nil
}

func (f *FakeRemote) insertLocked(title string) service.Task {
	task := service.Task{ID: service.TaskID(strconv.Itoa(f.nextID)), Title: title}
	f.nextID++
	f.tasks = append([]service.Task{task}, f.tasks...)
	return task
}

// Transport returns a TransportError with the given reason, as a Remote would.
func Transport(reason string) error {
	return &service.TransportError{Reason: reason}
}
