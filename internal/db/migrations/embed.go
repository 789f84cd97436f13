// Package migrations embeds the service's goose SQL migrations.
package migrations

import "embed"

// FS holds the *.sql migrations applied by db.Migrate at startup.
//
//go:embed *.sql
var FS embed.FS
