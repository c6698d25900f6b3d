package cosmiccreator

import "embed"

// MigrationsFS holds the Postgres schema migrations applied at startup.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS
