// Package migrations embeds the local store schema migrations.
package migrations

import "embed"

// FS holds the goose SQL migrations for the local SQLite store.
//
//go:embed *.sql
var FS embed.FS
