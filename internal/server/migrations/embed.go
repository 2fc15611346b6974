// Package migrations embeds the identity server's schema migrations.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
