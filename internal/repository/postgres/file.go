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

// PostgresFileRepository implements the FileRepository interface
type PostgresFileRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewFileRepository creates a new file repository
func NewFileRepository(config *RepositoryConfig) repositories.FileRepository {
	return &PostgresFileRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

const fileColumns = "id, name, mime_type, size, storage_key, owner_id, folder_id, created_at, updated_at"

// Create inserts file metadata. The blob must already be stored under StorageKey.
func (r *PostgresFileRepository) Create(ctx context.Context, file *models.File) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (name, mime_type, size, storage_key, owner_id, folder_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		file.Name,
		file.MimeType,
		file.Size,
		file.StorageKey,
		file.OwnerID,
		file.FolderID,
		file.CreatedAt,
		file.UpdatedAt,
	).Scan(&file.ID, &file.CreatedAt, &file.UpdatedAt)

	if err != nil {
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("owner or folder: %w", domain.ErrNotFound)
		}
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      "storage key already in use",
				ResourceType: "file",
			}
		}
		return storageError("create file", err)
	}

	return nil
}

// GetByID retrieves file metadata by ID
func (r *PostgresFileRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	if !isValidID(id) {
		return nil, fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, fileColumns, r.tables.Files)

	var file models.File
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(
		&file.ID,
		&file.Name,
		&file.MimeType,
		&file.Size,
		&file.StorageKey,
		&file.OwnerID,
		&file.FolderID,
		&file.CreatedAt,
		&file.UpdatedAt,
	)

	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
		}
		return nil, storageError("get file", err)
	}

	return &file, nil
}

// Update persists the file's name and folder
func (r *PostgresFileRepository) Update(ctx context.Context, file *models.File) error {
	if !isValidID(file.ID) {
		return fmt.Errorf("file %s: %w", file.ID, domain.ErrNotFound)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, folder_id = $2, updated_at = $3
		WHERE id = $4
	`, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, file.Name, file.FolderID, file.UpdatedAt, file.ID)
	if err != nil {
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("folder: %w", domain.ErrNotFound)
		}
		return storageError("update file", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("file %s: %w", file.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete removes file metadata
func (r *PostgresFileRepository) Delete(ctx context.Context, id string) error {
	if !isValidID(id) {
		return fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return storageError("delete file", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ListByFolder lists the files directly inside a folder
func (r *PostgresFileRepository) ListByFolder(ctx context.Context, folderID string) ([]models.File, error) {
	if !isValidID(folderID) {
		return []models.File{}, nil
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE folder_id = $1
		ORDER BY name ASC
	`, fileColumns, r.tables.Files)

	return r.list(ctx, "list folder files", query, folderID)
}

// ListByOwner lists every file uploaded by the user
func (r *PostgresFileRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.File, error) {
	if !isValidID(ownerID) {
		return []models.File{}, nil
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, fileColumns, r.tables.Files)

	return r.list(ctx, "list files", query, ownerID)
}

func (r *PostgresFileRepository) list(ctx context.Context, op, query string, args ...interface{}) ([]models.File, error) {
	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, storageError(op, err)
	}
	defer rows.Close()

	files := []models.File{}
	for rows.Next() {
		var file models.File
		err := rows.Scan(
			&file.ID,
			&file.Name,
			&file.MimeType,
			&file.Size,
			&file.StorageKey,
			&file.OwnerID,
			&file.FolderID,
			&file.CreatedAt,
			&file.UpdatedAt,
		)
		if err != nil {
			return nil, storageError("scan file", err)
		}
		files = append(files, file)
	}

	if err := rows.Err(); err != nil {
		return nil, storageError("iterate files", err)
	}

	return files, nil
}
