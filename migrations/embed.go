// Package appmigrations embeds the SQL schema applied by cmd/migrate.
package appmigrations

import "embed"

//go:embed *.sql
var FS embed.FS
