// Package config loads executable settings from the environment and .env files.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	ondevice "github.com/haowjy/meridian-ondevice-go"
)

// Environment variables read by FromLookup, besides ondevice.EnvProvider.
const (
	EnvModel           = "ONDEVICE_MODEL"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvSentryDSN       = "SENTRY_DSN"
	EnvEnvironment     = "ONDEVICE_ENV"
)

// Config holds the settings shared by the examples and ondevice-chat.
type Config struct {
	Provider        ondevice.ProviderID
	Model           string
	AnthropicAPIKey string
	SentryDSN       string
	Environment     string
}

// Load reads .env (see LoadEnv) and then the process environment.
func Load() Config {
	LoadEnv()
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from lookup. The provider defaults to lorem and
// the environment to "development".
func FromLookup(lookup ondevice.LookupFunc) Config {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	cfg := Config{
		Provider:        ondevice.ProviderID(strings.ToLower(get(ondevice.EnvProvider))),
		Model:           get(EnvModel),
		AnthropicAPIKey: get(EnvAnthropicAPIKey),
		SentryDSN:       get(EnvSentryDSN),
		Environment:     get(EnvEnvironment),
	}
	if cfg.Provider == "" {
		cfg.Provider = ondevice.ProviderLorem
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	return cfg
}

// LoadEnv searches for a .env file starting from the current directory
// and walking up the directory tree. It loads the first .env file found.
// If no .env file is found, it silently continues (using system env vars).
// Variables already set in the environment are not overridden.
func LoadEnv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}

	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}
