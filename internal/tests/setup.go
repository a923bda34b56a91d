package tests

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safezone/server/internal/db"
)

// PrepareDatabase applies the embedded migrations and empties every table so
// each run starts from a clean state.
func PrepareDatabase(ctx context.Context, database *sql.DB) error {
	if err := db.Migrate(ctx, database); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return TruncateTables(ctx, database)
}

// TruncateTables truncates all application tables
func TruncateTables(ctx context.Context, database *sql.DB) error {
	_, err := database.ExecContext(ctx, "TRUNCATE TABLE alerts, safe_spots, users RESTART IDENTITY CASCADE")
	if err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}
