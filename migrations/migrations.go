// Package migrations embeds the SQL schema for the coverage cache and the sync job ledger.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
