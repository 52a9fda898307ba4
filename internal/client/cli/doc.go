// Package cli provides the interactive Salenus command-line client.
//
// It wires configuration, the local session database, the API session
// client and an interactive REPL. A background watcher probes the server
// and switches between online and offline mode.
//
// Commands: register, login, me, upgrade <plan>, plans, status, logout.
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
