/**
 * @description
 * Schema migrations for the donation-service, embedded into the binary and
 * applied with goose at startup. Goose runs over database/sql, so the pgx
 * stdlib adapter opens a short-lived connection separate from the pgxpool
 * used for serving traffic.
 *
 * @dependencies
 * - embed: For bundling the SQL files.
 * - github.com/jackc/pgx/v5/stdlib: database/sql driver backed by pgx.
 * - github.com/pressly/goose/v3: Migration runner.
 */

package store

import (
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate brings the schema up to date against the given database URL.
func Migrate(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
