// Package migrations embeds the directory-store schema migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
