// Package config resolves the relay's startup inputs from CLI flags, the
// environment, and an optional .env file, in that precedence order.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// ErrMissingEndpoint is the relay's fatal startup condition: no upstream
// endpoint was supplied by flag or environment.
var ErrMissingEndpoint = errors.New("endpoint is required")

// Config holds everything the relay needs at startup. The secret's presence
// is tracked separately from its value: an empty secret still produces a
// credential, while an absent one sends no Authorization header at all.
type Config struct {
	// Endpoint is the upstream URL every message is POSTed to.
	// ENV: MCP_BRIDGE_ENDPOINT
	Endpoint string `env:"MCP_BRIDGE_ENDPOINT"`
	// Secret feeds the Basic credential. ENV: MCP_BRIDGE_SECRET
	Secret string `env:"MCP_BRIDGE_SECRET"`
	// LogLevel is one of debug, info, warn, error. ENV: MCP_BRIDGE_LOG_LEVEL
	LogLevel string `env:"MCP_BRIDGE_LOG_LEVEL,default=info"`

	// HasSecret reports whether Secret was supplied at all.
	HasSecret bool
}

// Load parses args (flags plus a positional endpoint URL) over the
// environment. A .env file in the working directory, when present, seeds the
// environment first and never overrides real env vars.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	// Defaults come from struct tags; absence of optional keys is fine.
	_ = envdecode.Decode(&cfg)
	if _, ok := os.LookupEnv("MCP_BRIDGE_SECRET"); ok {
		cfg.HasSecret = true
	}

	fs := flag.NewFlagSet("mcp-http-bridge", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	endpoint := fs.String("endpoint", "", "upstream URL to relay messages to")
	secret := fs.String("secret", "", "secret used to derive the Basic credential")
	logLevel := fs.String("log-level", "", "log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Only flags the caller actually set may override the environment; the
	// zero value of --secret is a meaningful credential.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "endpoint":
			cfg.Endpoint = *endpoint
		case "secret":
			cfg.Secret = *secret
			cfg.HasSecret = true
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	if fs.NArg() > 0 {
		cfg.Endpoint = fs.Arg(0)
	}

	if cfg.Endpoint == "" {
		return nil, ErrMissingEndpoint
	}
	return &cfg, nil
}

// Level maps the configured log level onto slog's scale, defaulting to Info
// for anything unrecognized.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
