package config

const (
	EnvBackendURL = "BACKEND_API_URL"
	EnvDatabase   = "MCPFORGE_DB"
	EnvLogLevel   = "MCPFORGE_LOG_LEVEL"
)

// parseEnv overlays Config with non-empty environment variables.
func parseEnv(cfg *Config, lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(EnvBackendURL, &cfg.BackendURL)
	set(EnvDatabase, &cfg.DatabasePath)
	set(EnvLogLevel, &cfg.LogLevel)
}
