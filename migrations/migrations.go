// Package migrations embeds the golang-migrate SQL files for each supported
// database so the binary carries its own schema.
package migrations

import "embed"

// SqliteMigrations holds sqlite/NNNNNN_name.{up,down}.sql.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

// PostgresMigrations holds postgres/NNNNNN_name.{up,down}.sql.
//
//go:embed postgres/*.sql
var PostgresMigrations embed.FS
