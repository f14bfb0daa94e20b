// Package config handles the configuration directory, credential paths and
// runtime settings.
package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	// AppName is the application directory name.
	AppName = "taskdeck"

	// SettingsFile is the optional settings filename inside the config directory.
	SettingsFile = "config.yaml"

	// OAuthClientFile is the OAuth client credentials filename (googletasks backend).
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename (googletasks backend).
	TokenFile = "token.json"
)

// Backend names.
const (
	BackendHTTP        = "http"
	BackendGoogleTasks = "googletasks"
)

// Apply policy names for toggle_policy and delete_policy.
const (
	PolicyBeforeConfirm = "before-confirm"
	PolicyAfterConfirm  = "after-confirm"
)

// Defaults.
const (
	DefaultAPIURL         = "http://localhost:5000"
	DefaultTimeout        = 10 * time.Second
	DefaultHealthInterval = 30 * time.Second
	DefaultErrorTTL       = 5 * time.Second
	DefaultOutput         = "text"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// Settings are resolved once at startup by Load.
	Settings Settings
}

// Settings are the runtime settings read from defaults, config.yaml,
// TASKDECK_* environment variables and command-line overrides.
type Settings struct {
	// APIURL is the base address of the task service.
	APIURL string `mapstructure:"api_url" validate:"required,url"`

	// Backend selects the Remote implementation.
	Backend string `mapstructure:"backend" validate:"required,oneof=http googletasks"`

	// Timeout bounds every remote call.
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`

	// HealthInterval is the period between health probes.
	HealthInterval time.Duration `mapstructure:"health_interval" validate:"gt=0"`

	// ErrorTTL is how long a transient error stays visible.
	ErrorTTL time.Duration `mapstructure:"error_ttl" validate:"gt=0"`

	// Output is the render format.
	Output string `mapstructure:"output" validate:"required,oneof=text json yaml"`

	// TogglePolicy decides whether a toggle shows before the backend confirms it.
	TogglePolicy string `mapstructure:"toggle_policy" validate:"required,oneof=before-confirm after-confirm"`

	// DeletePolicy decides whether a delete shows before the backend confirms it.
	DeletePolicy string `mapstructure:"delete_policy" validate:"required,oneof=before-confirm after-confirm"`
}

// DefaultSettings returns the settings used when nothing overrides them.
func DefaultSettings() Settings {
	return Settings{
		APIURL:         DefaultAPIURL,
		Backend:        BackendHTTP,
		Timeout:        DefaultTimeout,
		HealthInterval: DefaultHealthInterval,
		ErrorTTL:       DefaultErrorTTL,
		Output:         DefaultOutput,
		TogglePolicy:   PolicyBeforeConfirm,
		DeletePolicy:   PolicyAfterConfirm,
	}
}

// New creates a new Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/taskdeck or $HOME/.config/taskdeck.
// Settings start at their defaults; call Load to resolve them.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{Dir: dir, Settings: DefaultSettings()}, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// SettingsPath returns the path to the optional settings file.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsFile)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}
