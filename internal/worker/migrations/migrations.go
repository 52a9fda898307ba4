// Package migrations embeds the worker store schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
