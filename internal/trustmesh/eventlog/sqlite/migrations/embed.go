package migrations

import "embed"

// FS holds the event log migrations under "log".
//
//go:embed log/*.sql
var FS embed.FS
