// Package service defines the backend-agnostic interface for task operations.
package service

import "context"

// Remote defines the operations the client issues against a task backend.
// Implementations never retry; a failed call returns a *TransportError and the
// caller must not assume the operation took effect.
type Remote interface {
	// ListTasks returns all tasks in the order the backend delivers them.
	ListTasks(ctx context.Context) ([]Task, error)

	// CreateTask creates a task and returns the backend's canonical record.
	CreateTask(ctx context.Context, title string) (Task, error)

	// UpdateTask sets the completed flag of a task.
	UpdateTask(ctx context.Context, id TaskID, completed bool) error

	// DeleteTask removes a task.
	DeleteTask(ctx context.Context, id TaskID) error

	// ProbeHealth reports the reachability of the backend's subsystems.
	// An error means the backend itself could not be reached; a reachable
	// backend with a failing subsystem returns a report and no error.
	ProbeHealth(ctx context.Context) (HealthReport, error)
}
