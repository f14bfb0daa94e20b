package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskdeck/internal/config"
	"taskdeck/internal/exitcode"
	"taskdeck/internal/output"
	"taskdeck/internal/service"
	"taskdeck/internal/store"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command, which is also run when no command is given.
// It loads the tasks and probes the backend concurrently and renders both.
type ListCmd struct {
	tasksOnly bool
}

// SetTasksOnly hides the status cards (for testing).
func (c *ListCmd) SetTasksOnly(v bool) {
	c.tasksOnly = v
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "Show backend status and tasks" }
func (c *ListCmd) Usage() string     { return "taskdeck list [--tasks-only]" }
func (c *ListCmd) NeedsRemote() bool { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.tasksOnly, "tasks-only", false, "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, remote service.Remote, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	s := newSession(cfg, remote, errOut)
	defer s.Deactivate()

	if c.tasksOnly {
		if err := s.Store.Load(ctx); err != nil {
			return backendFailure(errOut, store.LoadFailedPrefix, err)
		}
		snap := s.Store.Snapshot()
		if len(snap.Tasks) == 0 && cfg.Quiet {
			return exitcode.Success
		}
		output.FormatTaskList(out, snap.Tasks, false)
		return exitcode.Success
	}

	loadErr := s.Activate(ctx)
	view := s.View()
	if err := output.Render(out, formatOf(cfg), view); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if loadErr != nil {
		return exitcode.BackendError
	}
	return exitcode.Success
}
