// Package migrations embeds the SQL schema migrations shipped with starkeep,
// so the migrate binary needs no migrations directory on disk.
package migrations

import "embed"

// Files holds every *.sql migration. Filenames carry a numeric prefix and are
// applied in lexical order.
//
//go:embed *.sql
var Files embed.FS
