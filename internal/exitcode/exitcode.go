// Package exitcode defines the process exit codes of taskdeck.
package exitcode

const (
	// Success: the command did what was asked.
	Success = 0

	// UserError: bad arguments, unknown task reference, invalid settings.
	UserError = 1

	// AuthError: missing or rejected credentials.
	AuthError = 2

	// BackendError: the task service failed or could not be reached.
	BackendError = 3
)
