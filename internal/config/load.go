package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "TASKDECK"

var validate = validator.New()

// Load resolves Settings from, in increasing precedence: defaults, the optional
// config.yaml in Dir, TASKDECK_* environment variables and overrides.
// Override keys use the mapstructure names (e.g. "api_url"); empty values are skipped.
func (c *Config) Load(overrides map[string]string) error {
	v := viper.New()

	defaults := DefaultSettings()
	v.SetDefault("api_url", defaults.APIURL)
	v.SetDefault("backend", defaults.Backend)
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("health_interval", defaults.HealthInterval)
	v.SetDefault("error_ttl", defaults.ErrorTTL)
	v.SetDefault("output", defaults.Output)
	v.SetDefault("toggle_policy", defaults.TogglePolicy)
	v.SetDefault("delete_policy", defaults.DeletePolicy)

	v.SetConfigType("yaml")
	v.SetConfigFile(c.SettingsPath())
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to read %s: %w", SettingsFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range overrides {
		if value != "" {
			v.Set(key, value)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	s.APIURL = strings.TrimRight(s.APIURL, "/")

	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	c.Settings = s
	return nil
}
