package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Env holds the settings that may come from the process environment.
type Env struct {
	APIKey    string `envconfig:"FUTURESBOT_API_KEY"`
	APISecret string `envconfig:"FUTURESBOT_API_SECRET"`
	BaseURL   string `envconfig:"FUTURESBOT_BASE_URL"`
	LogLevel  string `envconfig:"FUTURESBOT_LOG_LEVEL"`
}

// LoadEnv reads envFiles (missing files are skipped) into the process
// environment without overriding variables that are already set, then
// decodes Env.
func LoadEnv(envFiles ...string) (Env, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Env{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return Env{}, fmt.Errorf("%w: environment: %v", ErrConfigInvalid, err)
	}
	return env, nil
}

// ApplyEnv overlays non-empty environment values onto c.
func (c *Config) ApplyEnv(env Env) {
	if env.APIKey != "" {
		c.Exchange.APIKey = env.APIKey
	}
	if env.APISecret != "" {
		c.Exchange.APISecret = env.APISecret
	}
	if env.BaseURL != "" {
		c.Exchange.BaseURL = env.BaseURL
	}
	if env.LogLevel != "" {
		c.Log.Level = env.LogLevel
	}
}
