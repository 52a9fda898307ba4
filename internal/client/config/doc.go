// Package config loads runtime configuration for the Salenus CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Environment: API_BASE_URL, SALENUS_SESSION_DB, LOG_LEVEL.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the API server
//	-i int      online status check interval (seconds)
//	-d string   session database path
//	-l string   log level
//
// # JSON schema
//
//	{
//	  "server_url": "http://localhost:3001",
//	  "online_check_interval": "3s",
//	  "request_timeout": "10s",
//	  "database_dsn": "session.db",
//	  "log_level": "warn"
//	}
package config
