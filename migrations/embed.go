// Package migrations embeds the versioned SQL schema for PostgreSQL.
package migrations

import "embed"

// FS holds every *.up.sql and *.down.sql file in this directory
//
//go:embed *.sql
var FS embed.FS
