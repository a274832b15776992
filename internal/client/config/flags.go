package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/mcpforge/internal/flagx"
)

// FlagsWithValues lists every value-taking flag the CLI understands, so the
// remaining arguments can be read as a command.
var FlagsWithValues = []string{"-a", "-d", "-t", "-l", "-c", "-config"}

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   backend API base URL
//	-d string   session database path
//	-t int      request timeout (seconds)
//	-l string   log level
//
// Only the flags above are looked at; see flagx.FilterArgs.
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-t", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.BackendURL, "a", cfg.BackendURL, "backend API base URL")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "session database path")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level (debug, info, warn, error)")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
