package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"foldershare/internal/domain/models"
	"foldershare/internal/domain/repositories"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresOrphanRepository implements the OrphanRepository interface
type PostgresOrphanRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewOrphanRepository creates a new orphaned blob repository
func NewOrphanRepository(config *RepositoryConfig) repositories.OrphanRepository {
	return &PostgresOrphanRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Record upserts an orphan entry, keeping the original timestamp
func (r *PostgresOrphanRepository) Record(ctx context.Context, orphan *models.OrphanedBlob) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (storage_key, reason, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (storage_key) DO UPDATE SET reason = EXCLUDED.reason
	`, r.tables.OrphanedBlobs)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, orphan.StorageKey, orphan.Reason, orphan.CreatedAt); err != nil {
		return storageError("record orphan", err)
	}
	return nil
}

// List returns up to limit orphans, oldest first
func (r *PostgresOrphanRepository) List(ctx context.Context, limit int) ([]models.OrphanedBlob, error) {
	query := fmt.Sprintf(`
		SELECT storage_key, reason, created_at
		FROM %s
		ORDER BY created_at ASC
		LIMIT $1
	`, r.tables.OrphanedBlobs)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, limit)
	if err != nil {
		return nil, storageError("list orphans", err)
	}
	defer rows.Close()

	orphans := []models.OrphanedBlob{}
	for rows.Next() {
		var orphan models.OrphanedBlob
		if err := rows.Scan(&orphan.StorageKey, &orphan.Reason, &orphan.CreatedAt); err != nil {
			return nil, storageError("scan orphan", err)
		}
		orphans = append(orphans, orphan)
	}

	if err := rows.Err(); err != nil {
		return nil, storageError("iterate orphans", err)
	}

	return orphans, nil
}

// Delete clears an orphan record
func (r *PostgresOrphanRepository) Delete(ctx context.Context, storageKey string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE storage_key = $1`, r.tables.OrphanedBlobs)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, storageKey); err != nil {
		return storageError("delete orphan", err)
	}
	return nil
}
