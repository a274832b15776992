// Package config loads runtime configuration for the mcpforge CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Environment: BACKEND_API_URL, MCPFORGE_DB, MCPFORGE_LOG_LEVEL.
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-a string   backend API base URL
//	-d string   session database path
//	-t int      request timeout (seconds)
//	-l string   log level
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "30s" or
// integer nanoseconds:
//
//	{
//	  "backend_url": "https://api.example.com",
//	  "database_path": "/var/lib/mcpforge/session.db",
//	  "request_timeout": "30s",
//	  "session_ttl": "24h",
//	  "poll_interval": "2s",
//	  "log_level": "info",
//	  "log_format": "json"
//	}
package config
