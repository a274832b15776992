package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/mcpforge/internal/flagx"
	"github.com/dmitrijs2005/mcpforge/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations
// are timex.Duration, so "30s" and integer nanoseconds both work. Absent
// fields leave the current value alone.
type JsonConfig struct {
	BackendURL     string         `json:"backend_url"`
	DatabasePath   string         `json:"database_path"`
	RequestTimeout timex.Duration `json:"request_timeout"`
	SessionTTL     timex.Duration `json:"session_ttl"`
	PollInterval   timex.Duration `json:"poll_interval"`
	LogLevel       string         `json:"log_level"`
	LogFormat      string         `json:"log_format"`
}

// parseJson overlays Config with the file named by -c or -config. Without
// such a flag it does nothing. Read and decode errors panic.
func parseJson(cfg *Config, args []string) {
	path := flagx.ConfigFile(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	str := func(src string, dst *string) {
		if src != "" {
			*dst = src
		}
	}
	str(jc.BackendURL, &cfg.BackendURL)
	str(jc.DatabasePath, &cfg.DatabasePath)
	str(jc.LogLevel, &cfg.LogLevel)
	str(jc.LogFormat, &cfg.LogFormat)

	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.SessionTTL.Duration > 0 {
		cfg.SessionTTL = jc.SessionTTL.Duration
	}
	if jc.PollInterval.Duration > 0 {
		cfg.PollInterval = jc.PollInterval.Duration
	}
}
