// Package db manages the SQLite metadata store schema.
package db

import "embed"

//go:embed migrations/*.sql
var EmbedMigrations embed.FS
