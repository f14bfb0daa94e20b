package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"taskdeck/internal/config"
	"taskdeck/internal/exitcode"
	"taskdeck/internal/output"
	"taskdeck/internal/service"
	"taskdeck/internal/store"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct{}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string     { return "taskdeck add <title...>" }
func (c *AddCmd) NeedsRemote() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, remote service.Remote, args []string, out, errOut io.Writer) int {
	s := newSession(cfg, remote, errOut)
	defer s.Deactivate()

	task, err := s.Store.Create(ctx, strings.Join(args, " "))
	if errors.Is(err, store.ErrEmptyTitle) {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}
	if err != nil {
		return backendFailure(errOut, store.CreateFailedPrefix, err)
	}

	if cfg.Quiet {
		return exitcode.Success
	}
	if err := output.RenderTask(out, formatOf(cfg), 1, task); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	return exitcode.Success
}
