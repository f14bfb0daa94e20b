package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"taskdeck/internal/backend/googletasks"
	"taskdeck/internal/backend/httpapi"
	"taskdeck/internal/commands"
	"taskdeck/internal/config"
	"taskdeck/internal/exitcode"
	"taskdeck/internal/logging"
	"taskdeck/internal/service"
)

// RemoteFactory creates the task backend from resolved config.
// Used to inject the backend during dispatch.
type RemoteFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.Remote, error)

// NewRemote builds the backend named by cfg.Settings.Backend.
func NewRemote(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.Remote, error) {
	switch cfg.Settings.Backend {
	case config.BackendGoogleTasks:
		return googletasks.New(ctx, cfg, logger)
	default:
		return httpapi.New(cfg, logger)
	}
}

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  RemoteFactory
}

// NewDispatcher creates a new dispatcher with the given registry and backend factory.
// A nil factory uses NewRemote.
func NewDispatcher(registry *commands.Registry, factory RemoteFactory) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> list
	if len(args) == 0 {
		args = []string{"list"}
	}

	cmdName := args[0]

	// Flags require a command
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	return d.dispatchCommand(ctx, cmd, args[1:], out, errOut)
}

// commonFlags are accepted by every command.
type commonFlags struct {
	configDir string
	quiet     bool
	debug     bool
	apiURL    string
	output    string
}

func (f *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.configDir, "config", "", "")
	fs.BoolVar(&f.quiet, "quiet", false, "")
	fs.BoolVar(&f.debug, "debug", false, "")
	fs.StringVar(&f.apiURL, "api-url", "", "")
	fs.StringVar(&f.output, "output", "", "")
}

// overrides returns the settings given on the command line, keyed like config.yaml.
func (f *commonFlags) overrides() map[string]string {
	return map[string]string{
		"api_url": f.apiURL,
		"output":  strings.ToLower(f.output),
	}
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // errors are reported below

	var common commonFlags
	common.register(fs)
	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		return reportFlagError(errOut, err)
	}

	// A leading "-" left over after parsing is an unknown flag
	positionalArgs := fs.Args()
	if len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	cfg, err := config.New(common.configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = common.quiet
	cfg.Debug = common.debug

	if err := cfg.Load(common.overrides()); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}

	logger := logging.New(errOut, cfg.Debug)
	logger.Debug("settings resolved",
		"dir", cfg.Dir,
		"backend", cfg.Settings.Backend,
		"api_url", cfg.Settings.APIURL,
		"output", cfg.Settings.Output,
	)

	var remote service.Remote
	if cmd.NeedsRemote() {
		var code int
		remote, code = d.openRemote(ctx, cfg, logger, errOut)
		if code != exitcode.Success {
			return code
		}
	}

	return cmd.Run(ctx, cfg, remote, positionalArgs, out, errOut)
}

// openRemote creates the backend, checking googletasks credentials first when
// no custom factory is set.
func (d *Dispatcher) openRemote(ctx context.Context, cfg *config.Config, logger *slog.Logger, errOut io.Writer) (service.Remote, int) {
	factory := d.factory
	if factory == nil {
		if cfg.Settings.Backend == config.BackendGoogleTasks {
			if !cfg.HasOAuthClient() {
				fmt.Fprintf(errOut, "error: %s not found in %s\n", config.OAuthClientFile, cfg.Dir)
				return nil, exitcode.AuthError
			}
			if !cfg.HasToken() {
				fmt.Fprintln(errOut, "error: not logged in (run: taskdeck login)")
				return nil, exitcode.AuthError
			}
		}
		factory = NewRemote
	}

	remote, err := factory(ctx, cfg, logger)
	if err != nil {
		if errors.Is(err, googletasks.ErrNotLoggedIn) {
			fmt.Fprintf(errOut, "error: auth error: %s\n", err)
			return nil, exitcode.AuthError
		}
		fmt.Fprintf(errOut, "error: backend error: %s\n", err)
		return nil, exitcode.BackendError
	}
	return remote, exitcode.Success
}

// reportFlagError prints a flag parsing error and returns the exit code.
func reportFlagError(errOut io.Writer, err error) int {
	errStr := err.Error()

	switch {
	case strings.HasPrefix(errStr, "flag needs an argument:"):
		flagName := strings.TrimSpace(strings.TrimPrefix(errStr, "flag needs an argument:"))
		fmt.Fprintf(errOut, "error: flag needs an argument: %s\n", flagName)
	case strings.HasPrefix(errStr, "flag provided but not defined:"):
		flagName := strings.TrimSpace(strings.TrimPrefix(errStr, "flag provided but not defined:"))
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", flagName)
	default:
		fmt.Fprintf(errOut, "error: %s\n", errStr)
	}
	return exitcode.UserError
}
