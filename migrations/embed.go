// Package migrations embeds the goose SQL migrations of both databases.
package migrations

import "embed"

// FS holds accounts/*.sql and academic/*.sql.
//
//go:embed accounts/*.sql academic/*.sql
var FS embed.FS

const (
	AccountsDir = "accounts"
	AcademicDir = "academic"
)
