// Package migrations embeds the PostgreSQL schema migrations, applied in
// filename order by database.RunMigrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
