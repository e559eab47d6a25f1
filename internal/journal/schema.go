package journal

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
)

//go:embed migration/*.sql
var migrationFiles embed.FS

func initSchema(ctx context.Context, db *sql.DB) error {
	schema, err := migrationFiles.ReadFile("migration/001_initial.sql")
	if err != nil {
		return fmt.Errorf("reading migration file: %w", err)
	}

	if _, err := db.ExecContext(ctx, string(schema)); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}

	return nil
}
