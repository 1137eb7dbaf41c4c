// Package migrations holds the SQL schema for the Postgres index backend.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
