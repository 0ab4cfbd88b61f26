// Package migrations embeds the catalog schema migrations.
package migrations

import (
	"embed"
)

// FS holds the SQL migration files applied by golang-migrate.
//
//go:embed *.sql
var FS embed.FS
