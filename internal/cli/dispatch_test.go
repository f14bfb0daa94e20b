package cli_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"taskdeck/internal/backend/googletasks"
	"taskdeck/internal/cli"
	"taskdeck/internal/commands"
	"taskdeck/internal/config"
	"taskdeck/internal/exitcode"
	"taskdeck/internal/service"
	"taskdeck/internal/testutil"
)

// testFactory creates a factory that returns remote and records the config it saw.
func testFactory(remote *testutil.FakeRemote, seen **config.Config) cli.RemoteFactory {
	return func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.Remote, error) {
		if seen != nil {
			*seen = cfg
		}
		return remote, nil
	}
}

func run(t *testing.T, d *cli.Dispatcher, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	code = d.Run(context.Background(), args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeRemote(), nil))

	_, stderr, code := run(t, dispatcher, "unknowncmd")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if want := "error: unknown command: unknowncmd\n"; stderr != want {
		t.Errorf("expected %q, got %q", want, stderr)
	}
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeRemote(), nil))

	_, stderr, code := run(t, dispatcher, "--quiet")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if want := "error: unknown command: --quiet\n"; stderr != want {
		t.Errorf("expected %q, got %q", want, stderr)
	}
}

func TestDispatcher_HelpCommand(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeRemote(), nil))

	stdout, stderr, code := run(t, dispatcher, "help", "--config", t.TempDir())

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Error("expected help output to contain 'Usage:'")
	}
}

func TestDispatcher_VersionCommand(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeRemote(), nil))

	stdout, stderr, code := run(t, dispatcher, "version", "--config", t.TempDir())

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "taskdeck 0.1.0\n" {
		t.Errorf("expected 'taskdeck 0.1.0\\n', got %q", stdout)
	}
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeRemote(), nil))

	_, stderr, code := run(t, dispatcher, "help", "--unknown")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if want := "error: unknown flag: -unknown\n"; stderr != want {
		t.Errorf("expected %q, got %q", want, stderr)
	}
}

func TestDispatcher_FlagNeedsArgument(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeRemote(), nil))

	_, stderr, code := run(t, dispatcher, "list", "--api-url")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if want := "error: flag needs an argument: -api-url\n"; stderr != want {
		t.Errorf("expected %q, got %q", want, stderr)
	}
}

func TestDispatcher_NoArgsRunsList(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	remote := testutil.NewFakeRemote()
	remote.AddTask("Buy milk")
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(remote, nil))

	stdout, _, code := run(t, dispatcher)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if !strings.HasSuffix(stdout, "   1  [ ] Buy milk\n") {
		t.Errorf("expected task list, got %q", stdout)
	}
}

func TestDispatcher_CommonFlagsReachSettings(t *testing.T) {
	var seen *config.Config
	dir := t.TempDir()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeRemote(), &seen))

	stdout, _, code := run(t, dispatcher, "list", "--config", dir, "--api-url", "http://tasks.test:8080/", "--output", "JSON", "--quiet")

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if seen == nil {
		t.Fatal("factory not called")
	}
	if seen.Dir != dir || !seen.Quiet {
		t.Errorf("unexpected config %+v", seen)
	}
	if seen.Settings.APIURL != "http://tasks.test:8080" {
		t.Errorf("expected trimmed api url, got %q", seen.Settings.APIURL)
	}
	if seen.Settings.Output != "json" {
		t.Errorf("expected json output, got %q", seen.Settings.Output)
	}
	if !strings.HasPrefix(stdout, "{") {
		t.Errorf("expected JSON view, got %q", stdout)
	}
}

func TestDispatcher_InvalidSettings(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeRemote(), nil))

	_, stderr, code := run(t, dispatcher, "list", "--config", t.TempDir(), "--output", "xml")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if !strings.HasPrefix(stderr, "error: invalid settings:") {
		t.Errorf("expected invalid settings error, got %q", stderr)
	}
}

func TestDispatcher_FactoryErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"not logged in", googletasks.ErrNotLoggedIn, exitcode.AuthError},
		{"other", errors.New("boom"), exitcode.BackendError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.Remote, error) {
				return nil, tt.err
			}
			dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

			_, _, code := run(t, dispatcher, "list", "--config", t.TempDir())

			if code != tt.wantCode {
				t.Errorf("expected exit code %d, got %d", tt.wantCode, code)
			}
		})
	}
}

func TestDispatcher_GoogleTasksPreflight(t *testing.T) {
	dir := t.TempDir()
	settings := "backend: googletasks\n"
	if err := os.WriteFile(filepath.Join(dir, config.SettingsFile), []byte(settings), 0600); err != nil {
		t.Fatal(err)
	}
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, nil)

	_, stderr, code := run(t, dispatcher, "list", "--config", dir)
	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if !strings.Contains(stderr, "oauth_client.json not found") {
		t.Errorf("expected missing credentials message, got %q", stderr)
	}

	if err := os.WriteFile(filepath.Join(dir, config.OAuthClientFile), []byte(`{}`), 0600); err != nil {
		t.Fatal(err)
	}
	_, stderr, code = run(t, dispatcher, "list", "--config", dir)
	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if want := "error: not logged in (run: taskdeck login)\n"; stderr != want {
		t.Errorf("expected %q, got %q", want, stderr)
	}
}
