package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the mcpforge CLI.
//
// Fields:
//   - BackendURL: base URL of the backend API, without a trailing slash.
//   - DatabasePath: SQLite file holding the persisted session.
//   - RequestTimeout: per-request HTTP timeout.
//   - SessionTTL: how long a new credential is trusted locally.
//   - PollInterval: spacing of chat status polls.
//   - LogLevel, LogFormat: see logging.New.
type Config struct {
	BackendURL     string
	DatabasePath   string
	RequestTimeout time.Duration
	SessionTTL     time.Duration
	PollInterval   time.Duration
	LogLevel       string
	LogFormat      string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BackendURL = "http://localhost:8000"
	c.DatabasePath = "session.db"
	c.RequestTimeout = 30 * time.Second
	c.SessionTTL = 24 * time.Hour
	c.PollInterval = 2 * time.Second
	c.LogLevel = "info"
	c.LogFormat = "console"
}

// LoadConfig constructs a Config from defaults, then the JSON file, the
// environment and command-line flags. Later sources take precedence.
// Malformed input panics.
func LoadConfig() *Config {
	return load(os.Args[1:], os.LookupEnv)
}

func load(args []string, lookupEnv func(string) (string, bool)) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	parseEnv(cfg, lookupEnv)
	parseFlags(cfg, args)
	return cfg
}
