package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"foldershare/internal/domain/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Prefix             string
	Users              string
	Folders            string
	Files              string
	SharedFolders      string
	PublicFolderShares string
	OrphanedBlobs      string
	MigrationVersions  string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Prefix:             prefix,
		Users:              fmt.Sprintf("%susers", prefix),
		Folders:            fmt.Sprintf("%sfolders", prefix),
		Files:              fmt.Sprintf("%sfiles", prefix),
		SharedFolders:      fmt.Sprintf("%sshared_folders", prefix),
		PublicFolderShares: fmt.Sprintf("%spublic_folder_shares", prefix),
		OrphanedBlobs:      fmt.Sprintf("%sorphaned_blobs", prefix),
		MigrationVersions:  fmt.Sprintf("%sgoose_db_version", prefix),
	}
}

// DropOrder lists every table, dependents first, ending with the goose
// version table
func (t *TableNames) DropOrder() []string {
	return []string{
		t.OrphanedBlobs,
		t.PublicFolderShares,
		t.SharedFolders,
		t.Files,
		t.Folders,
		t.Users,
		t.MigrationVersions,
	}
}

// CreateConnectionPool creates a new pgx connection pool.
//
// PgBouncer in transaction pooling mode (port 6543 on hosted poolers) does not
// support prepared statements, so on that port the pool switches to
// QueryExecModeCacheDescribe unless the connection string already chose a
// mode via default_query_exec_mode.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the appropriate query executor for the context.
// If a transaction is present in the context, it returns the transaction.
// Otherwise, it returns the provided pool.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}

// NewRepositories wires every postgres repository to one pool
func NewRepositories(config *RepositoryConfig) *repositories.Set {
	return &repositories.Set{
		Users:        NewUserRepository(config),
		Folders:      NewFolderRepository(config),
		Files:        NewFileRepository(config),
		Shares:       NewShareRepository(config),
		PublicShares: NewPublicShareRepository(config),
		Orphans:      NewOrphanRepository(config),
		Tx:           NewTransactionManager(config.Pool, config.Logger),
	}
}
