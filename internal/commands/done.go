package commands

import (
	"context"
	"flag"
	"io"

	"taskdeck/internal/config"
	"taskdeck/internal/exitcode"
	"taskdeck/internal/service"
	"taskdeck/internal/store"
)

func init() {
	Register(&MarkCmd{name: "done", mode: markDone})
	Register(&MarkCmd{name: "undo", mode: markOpen})
	Register(&MarkCmd{name: "toggle", mode: markFlip})
}

type markMode int

const (
	markDone markMode = iota
	markOpen
	markFlip
)

// completedAfter returns the completed flag a task should end up with.
func (m markMode) completedAfter(current bool) bool {
	switch m {
	case markDone:
		return true
	case markOpen:
		return false
	default:
		return !current
	}
}

// MarkCmd implements done, undo and toggle.
type MarkCmd struct {
	name string
	mode markMode
}

// NewDoneCmd returns the done command (for testing).
func NewDoneCmd() *MarkCmd { return &MarkCmd{name: "done", mode: markDone} }

// NewUndoCmd returns the undo command (for testing).
func NewUndoCmd() *MarkCmd { return &MarkCmd{name: "undo", mode: markOpen} }

// NewToggleCmd returns the toggle command (for testing).
func NewToggleCmd() *MarkCmd { return &MarkCmd{name: "toggle", mode: markFlip} }

func (c *MarkCmd) Name() string      { return c.name }
func (c *MarkCmd) Aliases() []string { return nil }
func (c *MarkCmd) Usage() string     { return "taskdeck " + c.name + " <ref>" }
func (c *MarkCmd) NeedsRemote() bool { return true }

func (c *MarkCmd) Synopsis() string {
	switch c.mode {
	case markDone:
		return "Mark a task completed"
	case markOpen:
		return "Mark a task not completed"
	default:
		return "Flip a task's completed flag"
	}
}

func (c *MarkCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *MarkCmd) Run(ctx context.Context, cfg *config.Config, remote service.Remote, args []string, out, errOut io.Writer) int {
	s := newSession(cfg, remote, errOut)
	defer s.Deactivate()

	task, code := lookupTask(ctx, s, args, errOut)
	if code != exitcode.Success {
		return code
	}

	if err := s.Store.Toggle(ctx, task.ID, c.mode.completedAfter(task.Completed)); err != nil {
		return backendFailure(errOut, store.UpdateFailedPrefix, err)
	}
	return ok(cfg, out)
}
