// Package migrations contains embedded SQL migrations for the guild SQLite store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
