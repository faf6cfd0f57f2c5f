package storage

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/xcenweb/lextrade/internal/storage/migrations"
)

// RunMigrations applies the embedded schema migrations. goose needs a
// database/sql handle, so it gets its own short-lived connection via the pgx
// stdlib adapter rather than the pool.
func RunMigrations(ctx context.Context, dbURL string) error {
	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}
