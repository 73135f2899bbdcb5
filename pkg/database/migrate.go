package database

import (
	"database/sql"
	"fmt"
	"os"
)

// Migrate applies docs/schema.sql relative to the working directory. The
// schema is written with IF NOT EXISTS throughout, so re-applying is safe.
func Migrate(db *sql.DB) error {
	return MigrateFile(db, "docs/schema.sql")
}

// MigrateFile applies the schema at an explicit path. Tests run from their
// package directory and pass the repo-relative path themselves.
func MigrateFile(db *sql.DB, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if _, err := db.Exec(string(b)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
