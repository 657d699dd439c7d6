package database

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

// Migrate applies every pending goose migration found in dir of fsys.
// Each database keeps its own goose version table, so the accounts and academic
// schemas migrate independently.
func Migrate(ctx context.Context, db *sqlx.DB, fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return fmt.Errorf("open migrations %s: %w", dir, err)
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db.DB, sub)
	if err != nil {
		return fmt.Errorf("init migrations %s: %w", dir, err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations %s: %w", dir, err)
	}
	return nil
}
