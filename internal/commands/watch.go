package commands

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"taskdeck/internal/config"
	"taskdeck/internal/exitcode"
	"taskdeck/internal/output"
	"taskdeck/internal/service"
	"taskdeck/internal/session"
)

func init() {
	Register(&WatchCmd{})
}

// WatchCmd keeps a session active, re-renders on every change and applies
// intents read line by line from In. Each intent runs concurrently with the
// ones before it; failures surface on the error banner.
type WatchCmd struct {
	// In is read for intents. Nil means standard input.
	In io.Reader
}

func (c *WatchCmd) Name() string      { return "watch" }
func (c *WatchCmd) Aliases() []string { return nil }
func (c *WatchCmd) Synopsis() string  { return "Live view; reads intents from stdin" }
func (c *WatchCmd) Usage() string     { return "taskdeck watch" }
func (c *WatchCmd) NeedsRemote() bool { return true }

func (c *WatchCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *WatchCmd) Run(ctx context.Context, cfg *config.Config, remote service.Remote, args []string, out, errOut io.Writer) int {
	in := c.In
	if in == nil {
		in = os.Stdin
	}
	format := formatOf(cfg)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := newSession(cfg, remote, errOut)
	defer s.Deactivate()

	// A load failure stays on the banner; the view is rendered regardless.
	_ = s.Activate(ctx)

	frames := 0
	render := func() {
		if err := output.RenderFrame(out, format, s.View(), frames); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
		}
		frames++
	}
	render()

	done := make(chan struct{})
	defer close(done)
	lines := readLines(in, done)

	var inflight errgroup.Group

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-s.Updates():
			render()
		case line, open := <-lines:
			if !open {
				break loop
			}
			intent, err := ParseIntent(line)
			if errors.Is(err, ErrNoIntent) {
				continue
			}
			if err != nil {
				fmt.Fprintf(errOut, "error: %v\n", err)
				continue
			}
			if intent.Kind == IntentQuit {
				break loop
			}

			// Row numbers refer to what is on screen now.
			var task service.Task
			if intent.NeedsRef() {
				task, err = intent.Ref.Resolve(s.Store.Snapshot().Tasks)
				if err != nil {
					fmt.Fprintf(errOut, "error: %v\n", err)
					continue
				}
			}
			inflight.Go(func() error {
				applyIntent(ctx, s, intent, task)
				return nil
			})
		}
	}

	_ = inflight.Wait()
	render()
	return exitcode.Success
}

// applyIntent issues the store operation for intent. Errors are reported by
// the store through the session banner.
func applyIntent(ctx context.Context, s *session.Session, intent Intent, task service.Task) {
	switch intent.Kind {
	case IntentAdd:
		_, _ = s.Store.Create(ctx, intent.Title)
	case IntentDone, IntentUndo, IntentToggle:
		_ = s.Store.Toggle(ctx, task.ID, intent.markMode().completedAfter(task.Completed))
	case IntentRemove:
		_ = s.Store.Delete(ctx, task.ID)
	case IntentReload:
		_ = s.Store.Load(ctx)
	}
}

// readLines streams lines from r until EOF or done is closed.
func readLines(r io.Reader, done <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
	}()
	return lines
}
