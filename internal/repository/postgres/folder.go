package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"foldershare/internal/config"
	"foldershare/internal/domain"
	"foldershare/internal/domain/models"
	"foldershare/internal/domain/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresFolderRepository implements the FolderRepository interface
type PostgresFolderRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewFolderRepository creates a new folder repository
func NewFolderRepository(config *RepositoryConfig) repositories.FolderRepository {
	return &PostgresFolderRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

const folderColumns = "id, name, owner_id, parent_id, created_at, updated_at"

// Create creates a new folder
func (r *PostgresFolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (name, owner_id, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		folder.Name,
		folder.OwnerID,
		folder.ParentID,
		folder.CreatedAt,
		folder.UpdatedAt,
	).Scan(&folder.ID, &folder.CreatedAt, &folder.UpdatedAt)

	if err != nil {
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("owner or parent folder: %w", domain.ErrNotFound)
		}
		return storageError("create folder", err)
	}

	return nil
}

// GetByID retrieves a folder by ID
func (r *PostgresFolderRepository) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	if !isValidID(id) {
		return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, folderColumns, r.tables.Folders)

	var folder models.Folder
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(
		&folder.ID,
		&folder.Name,
		&folder.OwnerID,
		&folder.ParentID,
		&folder.CreatedAt,
		&folder.UpdatedAt,
	)

	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
		}
		return nil, storageError("get folder", err)
	}

	return &folder, nil
}

// Update updates a folder's name and parent
func (r *PostgresFolderRepository) Update(ctx context.Context, folder *models.Folder) error {
	if !isValidID(folder.ID) {
		return fmt.Errorf("folder %s: %w", folder.ID, domain.ErrNotFound)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, parent_id = $2, updated_at = $3
		WHERE id = $4
	`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		folder.Name,
		folder.ParentID,
		folder.UpdatedAt,
		folder.ID,
	)

	if err != nil {
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("parent folder: %w", domain.ErrNotFound)
		}
		return storageError("update folder", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("folder %s: %w", folder.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete deletes a folder row. Grants and public links go with it (ON DELETE CASCADE);
// child folders and files must already be gone.
func (r *PostgresFolderRepository) Delete(ctx context.Context, id string) error {
	if !isValidID(id) {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		if IsPgForeignKeyError(err) {
			return &domain.ConflictError{
				Message:      "cannot delete folder with children",
				ResourceType: "folder",
				ResourceID:   id,
			}
		}
		return storageError("delete folder", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ListChildren lists immediate child folders
func (r *PostgresFolderRepository) ListChildren(ctx context.Context, parentID string) ([]models.Folder, error) {
	if !isValidID(parentID) {
		return []models.Folder{}, nil
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE parent_id = $1
		ORDER BY name ASC
	`, folderColumns, r.tables.Folders)

	return r.list(ctx, "list folder children", query, parentID)
}

// ListRootsByOwner lists the owner's parentless folders
func (r *PostgresFolderRepository) ListRootsByOwner(ctx context.Context, ownerID string) ([]models.Folder, error) {
	if !isValidID(ownerID) {
		return []models.Folder{}, nil
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE owner_id = $1 AND parent_id IS NULL
		ORDER BY name ASC
	`, folderColumns, r.tables.Folders)

	return r.list(ctx, "list root folders", query, ownerID)
}

// ListByOwner retrieves all folders of an owner (flat list)
func (r *PostgresFolderRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Folder, error) {
	if !isValidID(ownerID) {
		return []models.Folder{}, nil
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE owner_id = $1
		ORDER BY created_at ASC
	`, folderColumns, r.tables.Folders)

	return r.list(ctx, "list folders", query, ownerID)
}

// ListAncestors walks parent links with a recursive CTE, returning the folder
// itself first and the root last. The depth column bounds the walk so a
// corrupted cycle cannot recurse forever.
func (r *PostgresFolderRepository) ListAncestors(ctx context.Context, folderID string) ([]models.Folder, error) {
	if !isValidID(folderID) {
		return []models.Folder{}, nil
	}

	query := fmt.Sprintf(`
		WITH RECURSIVE ancestry AS (
			SELECT %[1]s, 0 AS depth
			FROM %[2]s
			WHERE id = $1
			UNION ALL
			SELECT f.id, f.name, f.owner_id, f.parent_id, f.created_at, f.updated_at, a.depth + 1
			FROM %[2]s f
			JOIN ancestry a ON f.id = a.parent_id
			WHERE a.depth < $2
		)
		SELECT %[1]s FROM ancestry ORDER BY depth ASC
	`, folderColumns, r.tables.Folders)

	return r.list(ctx, "list folder ancestors", query, folderID, config.MaxFolderDepth)
}

// SubtreeHeight measures the subtree below folderID with a recursive CTE,
// bounded one level past config.MaxFolderDepth
func (r *PostgresFolderRepository) SubtreeHeight(ctx context.Context, folderID string) (int, error) {
	if !isValidID(folderID) {
		return 0, nil
	}

	query := fmt.Sprintf(`
		WITH RECURSIVE subtree AS (
			SELECT id, 1 AS height
			FROM %[1]s
			WHERE id = $1
			UNION ALL
			SELECT f.id, s.height + 1
			FROM %[1]s f
			JOIN subtree s ON f.parent_id = s.id
			WHERE s.height <= $2
		)
		SELECT COALESCE(MAX(height), 0) FROM subtree
	`, r.tables.Folders)

	var height int
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, folderID, config.MaxFolderDepth).Scan(&height); err != nil {
		return 0, storageError("measure folder subtree", err)
	}
	return height, nil
}

// LockTree takes a transaction-scoped advisory lock keyed on the folders
// table. Cycle and depth checks read ancestry under READ COMMITTED, so two
// concurrent moves must not interleave between check and update.
func (r *PostgresFolderRepository) LockTree(ctx context.Context) error {
	tx := repositories.GetTx(ctx)
	if tx == nil {
		return fmt.Errorf("lock folder tree: %w: no transaction in context", domain.ErrStorage)
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, r.tables.Folders); err != nil {
		return storageError("lock folder tree", err)
	}
	return nil
}

func (r *PostgresFolderRepository) list(ctx context.Context, op, query string, args ...interface{}) ([]models.Folder, error) {
	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, storageError(op, err)
	}
	defer rows.Close()

	folders, err := scanFolders(rows)
	if err != nil {
		return nil, storageError(op, err)
	}
	return folders, nil
}

func scanFolders(rows pgx.Rows) ([]models.Folder, error) {
	folders := []models.Folder{}
	for rows.Next() {
		var folder models.Folder
		err := rows.Scan(
			&folder.ID,
			&folder.Name,
			&folder.OwnerID,
			&folder.ParentID,
			&folder.CreatedAt,
			&folder.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, folder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}

	return folders, nil
}
