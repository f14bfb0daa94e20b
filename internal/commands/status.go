package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskdeck/internal/config"
	"taskdeck/internal/exitcode"
	"taskdeck/internal/health"
	"taskdeck/internal/output"
	"taskdeck/internal/service"
)

func init() {
	Register(&StatusCmd{})
}

// StatusCmd runs one health probe and prints the status cards.
type StatusCmd struct{}

func (c *StatusCmd) Name() string      { return "status" }
func (c *StatusCmd) Aliases() []string { return []string{"health"} }
func (c *StatusCmd) Synopsis() string  { return "Show backend health" }
func (c *StatusCmd) Usage() string     { return "taskdeck status" }
func (c *StatusCmd) NeedsRemote() bool { return true }

func (c *StatusCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *StatusCmd) Run(ctx context.Context, cfg *config.Config, remote service.Remote, args []string, out, errOut io.Writer) int {
	s := newSession(cfg, remote, errOut)
	defer s.Deactivate()

	state := s.Health.Check(ctx)
	if err := output.RenderHealth(out, formatOf(cfg), state); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	if state.API == health.Error {
		fmt.Fprintf(errOut, "error: %s\n", health.UnreachableMessage)
		return exitcode.BackendError
	}
	return exitcode.Success
}
