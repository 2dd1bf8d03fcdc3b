// Package db carries the SQL schema migrations for the job store.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS
