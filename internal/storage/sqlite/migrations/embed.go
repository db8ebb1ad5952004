// Package migrations embeds the SQLite schema of the planner state store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
