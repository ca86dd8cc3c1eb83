// Package migrations embeds the schema of the local database: the record
// cache and the session metadata.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
