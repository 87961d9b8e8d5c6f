package db

import "embed"

// MigrationFS embeds the employees and access_codes schema migrations so
// cmd/migrate works from the binary alone, with no SQL files on disk.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
