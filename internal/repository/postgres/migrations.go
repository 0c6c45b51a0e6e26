package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
)

// RunMigrations brings the schema for the configured table prefix up to date.
// Table names are only known at runtime, so migrations are Go functions
// rendered from TableNames and tracked in a prefixed goose version table.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, tables *TableNames, logger *slog.Logger) error {
	// The *sql.DB borrows connections from pool and is not closed here
	db := stdlib.OpenDBFromPool(pool)

	store, err := database.NewStore(database.DialectPostgres, tables.MigrationVersions)
	if err != nil {
		return fmt.Errorf("create migration store: %w", err)
	}

	provider, err := goose.NewProvider("", db, nil,
		goose.WithStore(store),
		goose.WithDisableGlobalRegistry(true),
		goose.WithGoMigrations(schemaMigrations(tables)...),
	)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, res := range results {
		logger.Info("migration applied",
			"version", res.Source.Version,
			"duration", res.Duration,
		)
	}
	return nil
}

func schemaMigrations(t *TableNames) []*goose.Migration {
	return []*goose.Migration{
		goose.NewGoMigration(1,
			execTx(fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %[1]s (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					name TEXT NOT NULL UNIQUE,
					email TEXT NOT NULL UNIQUE,
					password_hash TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
				);

				CREATE TABLE IF NOT EXISTS %[2]s (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					name TEXT NOT NULL,
					owner_id UUID NOT NULL REFERENCES %[1]s(id) ON DELETE CASCADE,
					parent_id UUID REFERENCES %[2]s(id) ON DELETE RESTRICT,
					created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
				);
				CREATE INDEX IF NOT EXISTS %[2]s_parent_idx ON %[2]s(parent_id);
				CREATE INDEX IF NOT EXISTS %[2]s_owner_idx ON %[2]s(owner_id);

				CREATE TABLE IF NOT EXISTS %[3]s (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					name TEXT NOT NULL,
					mime_type TEXT NOT NULL,
					size BIGINT NOT NULL CHECK (size >= 0),
					storage_key TEXT NOT NULL UNIQUE,
					owner_id UUID NOT NULL REFERENCES %[1]s(id) ON DELETE CASCADE,
					folder_id UUID REFERENCES %[2]s(id) ON DELETE RESTRICT,
					created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
				);
				CREATE INDEX IF NOT EXISTS %[3]s_folder_idx ON %[3]s(folder_id);
				CREATE INDEX IF NOT EXISTS %[3]s_owner_idx ON %[3]s(owner_id);
			`, t.Users, t.Folders, t.Files)),
			execTx(fmt.Sprintf(`
				DROP TABLE IF EXISTS %s;
				DROP TABLE IF EXISTS %s;
				DROP TABLE IF EXISTS %s;
			`, t.Files, t.Folders, t.Users)),
		),
		goose.NewGoMigration(2,
			execTx(fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %[1]s (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					folder_id UUID NOT NULL REFERENCES %[3]s(id) ON DELETE CASCADE,
					user_id UUID NOT NULL REFERENCES %[4]s(id) ON DELETE CASCADE,
					permission TEXT NOT NULL CHECK (permission IN ('READ', 'EDIT')),
					created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
					UNIQUE (folder_id, user_id)
				);
				CREATE INDEX IF NOT EXISTS %[1]s_user_idx ON %[1]s(user_id);

				CREATE TABLE IF NOT EXISTS %[2]s (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					folder_id UUID NOT NULL UNIQUE REFERENCES %[3]s(id) ON DELETE CASCADE,
					token TEXT NOT NULL UNIQUE,
					expires_at TIMESTAMPTZ,
					created_at TIMESTAMPTZ NOT NULL DEFAULT now()
				);
			`, t.SharedFolders, t.PublicFolderShares, t.Folders, t.Users)),
			execTx(fmt.Sprintf(`
				DROP TABLE IF EXISTS %s;
				DROP TABLE IF EXISTS %s;
			`, t.PublicFolderShares, t.SharedFolders)),
		),
		goose.NewGoMigration(3,
			execTx(fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					storage_key TEXT PRIMARY KEY,
					reason TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMPTZ NOT NULL DEFAULT now()
				);
			`, t.OrphanedBlobs)),
			execTx(fmt.Sprintf(`DROP TABLE IF EXISTS %s;`, t.OrphanedBlobs)),
		),
	}
}

func execTx(statement string) *goose.GoFunc {
	return &goose.GoFunc{
		RunTx: func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, statement)
			return err
		},
	}
}
