// Package migrations embeds the CLI's local schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
