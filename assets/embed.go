// Package assets embeds files shipped inside the server binary.
package assets

import "embed"

// MigrationsDir is the directory inside Migrations holding goose SQL files.
const MigrationsDir = "migrations"

// Migrations holds the SQL schema migrations applied at startup.
//
//go:embed migrations/*.sql
var Migrations embed.FS
