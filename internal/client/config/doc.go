// Package config loads runtime configuration for the shelfauth CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. SHELFAUTH_* environment variables, optionally from a .env file.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string               base URL of the shelfauth server
//	-timeout duration       per-request timeout
//	-refresh-timeout dur    timeout of the shared token refresh
//	-db string              path of the SQLite session database
//
// # JSON schema
//
// Durations use timex.Duration, so values can be either strings like "3s"
// or integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "request_timeout": "10s",
//	  "refresh_timeout": "10s",
//	  "session_db_path": "session.db"
//	}
package config
