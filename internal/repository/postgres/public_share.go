package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"foldershare/internal/domain"
	"foldershare/internal/domain/models"
	"foldershare/internal/domain/repositories"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresPublicShareRepository implements the PublicShareRepository interface
type PostgresPublicShareRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewPublicShareRepository creates a new public link repository
func NewPublicShareRepository(config *RepositoryConfig) repositories.PublicShareRepository {
	return &PostgresPublicShareRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Upsert creates the folder's public link, replacing token and expiry of an existing one
func (r *PostgresPublicShareRepository) Upsert(ctx context.Context, share *models.PublicFolderShare) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (folder_id, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (folder_id) DO UPDATE
		SET token = EXCLUDED.token,
		    expires_at = EXCLUDED.expires_at,
		    created_at = EXCLUDED.created_at
		RETURNING id, created_at
	`, r.tables.PublicFolderShares)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		share.FolderID,
		share.Token,
		share.ExpiresAt,
		share.CreatedAt,
	).Scan(&share.ID, &share.CreatedAt)

	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      "public link token already in use",
				ResourceType: "public_link",
			}
		}
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("folder %s: %w", share.FolderID, domain.ErrNotFound)
		}
		return storageError("upsert public link", err)
	}

	return nil
}

// GetByToken retrieves a public link by its token
func (r *PostgresPublicShareRepository) GetByToken(ctx context.Context, token string) (*models.PublicFolderShare, error) {
	query := fmt.Sprintf(`
		SELECT id, folder_id, token, expires_at, created_at
		FROM %s
		WHERE token = $1
	`, r.tables.PublicFolderShares)

	return r.getOne(ctx, query, token)
}

// GetByFolder retrieves the folder's public link
func (r *PostgresPublicShareRepository) GetByFolder(ctx context.Context, folderID string) (*models.PublicFolderShare, error) {
	if !isValidID(folderID) {
		return nil, fmt.Errorf("public link: %w", domain.ErrNotFound)
	}

	query := fmt.Sprintf(`
		SELECT id, folder_id, token, expires_at, created_at
		FROM %s
		WHERE folder_id = $1
	`, r.tables.PublicFolderShares)

	return r.getOne(ctx, query, folderID)
}

// DeleteByFolder removes the folder's public link
func (r *PostgresPublicShareRepository) DeleteByFolder(ctx context.Context, folderID string) (int64, error) {
	if !isValidID(folderID) {
		return 0, nil
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE folder_id = $1`, r.tables.PublicFolderShares)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, folderID)
	if err != nil {
		return 0, storageError("delete public link", err)
	}

	return result.RowsAffected(), nil
}

func (r *PostgresPublicShareRepository) getOne(ctx context.Context, query, arg string) (*models.PublicFolderShare, error) {
	var share models.PublicFolderShare
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, arg).Scan(
		&share.ID,
		&share.FolderID,
		&share.Token,
		&share.ExpiresAt,
		&share.CreatedAt,
	)

	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("public link: %w", domain.ErrNotFound)
		}
		return nil, storageError("get public link", err)
	}

	return &share, nil
}
