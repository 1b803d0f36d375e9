// Package migrations embeds the SQL migration files so they are compiled into
// the binary and applied on startup via golang-migrate.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
