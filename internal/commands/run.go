package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"taskdeck/internal/config"
	"taskdeck/internal/exitcode"
	"taskdeck/internal/logging"
	"taskdeck/internal/output"
	"taskdeck/internal/service"
	"taskdeck/internal/session"
	"taskdeck/internal/store"
)

// newSession builds a session over remote from the resolved settings.
// Debug logs go to errOut.
func newSession(cfg *config.Config, remote service.Remote, errOut io.Writer) *session.Session {
	return session.New(remote, session.OptionsFrom(cfg.Settings), logging.New(errOut, cfg.Debug))
}

// formatOf returns the configured output format, falling back to text.
func formatOf(cfg *config.Config) output.Format {
	f, err := output.ParseFormat(cfg.Settings.Output)
	if err != nil {
		return output.FormatText
	}
	return f
}

// backendFailure prints a failed remote call and returns its exit code.
// Rejected credentials map to AuthError, everything else to BackendError.
func backendFailure(errOut io.Writer, prefix string, err error) int {
	fmt.Fprintf(errOut, "error: %s%v\n", prefix, err)

	var te *service.TransportError
	if errors.As(err, &te) && (te.StatusCode == http.StatusUnauthorized || te.StatusCode == http.StatusForbidden) {
		return exitcode.AuthError
	}
	return exitcode.BackendError
}

// ok prints the acknowledgement unless quiet.
func ok(cfg *config.Config, out io.Writer) int {
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// lookupTask loads the collection into s and resolves the reference in args.
func lookupTask(ctx context.Context, s *session.Session, args []string, errOut io.Writer) (service.Task, int) {
	ref, err := ParseTaskRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return service.Task{}, exitcode.UserError
	}

	if err := s.Store.Load(ctx); err != nil {
		return service.Task{}, backendFailure(errOut, store.LoadFailedPrefix, err)
	}

	task, err := ref.Resolve(s.Store.Snapshot().Tasks)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return service.Task{}, exitcode.UserError
	}
	return task, exitcode.Success
}
