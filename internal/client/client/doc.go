// Package client bootstraps the CLI's local persistence: an SQLite database
// (see InitDatabase) migrated with embedded goose migrations (see
// RunMigrations). The session token lives in its metadata table.
package client
