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

// PostgresShareRepository implements the ShareRepository interface
type PostgresShareRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewShareRepository creates a new share repository
func NewShareRepository(config *RepositoryConfig) repositories.ShareRepository {
	return &PostgresShareRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// CreateGrant inserts a grant
func (r *PostgresShareRepository) CreateGrant(ctx context.Context, grant *models.SharedFolder) error {
	if !grant.Permission.IsGrantable() {
		return fmt.Errorf("%w: permission %q cannot be granted", domain.ErrValidation, grant.Permission)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (folder_id, user_id, permission, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, r.tables.SharedFolders)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		grant.FolderID,
		grant.UserID,
		grant.Permission.String(),
		grant.CreatedAt,
	).Scan(&grant.ID, &grant.CreatedAt)

	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      "folder is already shared with this user",
				ResourceType: "share",
				ResourceID:   grant.FolderID,
			}
		}
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("folder or user: %w", domain.ErrNotFound)
		}
		return storageError("create grant", err)
	}

	return nil
}

// GetGrant retrieves the grant for a folder and user
func (r *PostgresShareRepository) GetGrant(ctx context.Context, folderID, userID string) (*models.SharedFolder, error) {
	if !isValidID(folderID) || !isValidID(userID) {
		return nil, fmt.Errorf("grant: %w", domain.ErrNotFound)
	}

	query := fmt.Sprintf(`
		SELECT id, folder_id, user_id, permission, created_at
		FROM %s
		WHERE folder_id = $1 AND user_id = $2
	`, r.tables.SharedFolders)

	var grant models.SharedFolder
	var permission string
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, folderID, userID).Scan(
		&grant.ID,
		&grant.FolderID,
		&grant.UserID,
		&permission,
		&grant.CreatedAt,
	)

	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("grant on folder %s: %w", folderID, domain.ErrNotFound)
		}
		return nil, storageError("get grant", err)
	}

	if grant.Permission, err = models.ParseGrantPermission(permission); err != nil {
		return nil, storageError("get grant", err)
	}

	return &grant, nil
}

// UpdateGrantPermission changes an existing grant's level
func (r *PostgresShareRepository) UpdateGrantPermission(ctx context.Context, folderID, userID string, permission models.Permission) (int64, error) {
	if !permission.IsGrantable() {
		return 0, fmt.Errorf("%w: permission %q cannot be granted", domain.ErrValidation, permission)
	}
	if !isValidID(folderID) || !isValidID(userID) {
		return 0, nil
	}

	query := fmt.Sprintf(`
		UPDATE %s SET permission = $1
		WHERE folder_id = $2 AND user_id = $3
	`, r.tables.SharedFolders)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, permission.String(), folderID, userID)
	if err != nil {
		return 0, storageError("update grant", err)
	}

	return result.RowsAffected(), nil
}

// DeleteGrant removes a grant
func (r *PostgresShareRepository) DeleteGrant(ctx context.Context, folderID, userID string) (int64, error) {
	if !isValidID(folderID) || !isValidID(userID) {
		return 0, nil
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE folder_id = $1 AND user_id = $2`, r.tables.SharedFolders)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, folderID, userID)
	if err != nil {
		return 0, storageError("delete grant", err)
	}

	return result.RowsAffected(), nil
}

// ListGrantsForFolder lists grants on a folder with the grantee joined
func (r *PostgresShareRepository) ListGrantsForFolder(ctx context.Context, folderID string) ([]models.SharedFolder, error) {
	grants := []models.SharedFolder{}
	if !isValidID(folderID) {
		return grants, nil
	}

	query := fmt.Sprintf(`
		SELECT s.id, s.folder_id, s.user_id, s.permission, s.created_at,
		       u.id, u.name, u.email, u.created_at, u.updated_at
		FROM %s s
		JOIN %s u ON u.id = s.user_id
		WHERE s.folder_id = $1
		ORDER BY u.name ASC
	`, r.tables.SharedFolders, r.tables.Users)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, folderID)
	if err != nil {
		return nil, storageError("list folder grants", err)
	}
	defer rows.Close()

	for rows.Next() {
		var grant models.SharedFolder
		var user models.User
		var permission string
		err := rows.Scan(
			&grant.ID, &grant.FolderID, &grant.UserID, &permission, &grant.CreatedAt,
			&user.ID, &user.Name, &user.Email, &user.CreatedAt, &user.UpdatedAt,
		)
		if err != nil {
			return nil, storageError("scan grant", err)
		}
		if grant.Permission, err = models.ParseGrantPermission(permission); err != nil {
			return nil, storageError("scan grant", err)
		}
		grant.User = &user
		grants = append(grants, grant)
	}

	if err := rows.Err(); err != nil {
		return nil, storageError("iterate grants", err)
	}

	return grants, nil
}

// ListGrantsForUser lists grants held by a user with the folder joined
func (r *PostgresShareRepository) ListGrantsForUser(ctx context.Context, userID string) ([]models.SharedFolder, error) {
	grants := []models.SharedFolder{}
	if !isValidID(userID) {
		return grants, nil
	}

	query := fmt.Sprintf(`
		SELECT s.id, s.folder_id, s.user_id, s.permission, s.created_at,
		       f.id, f.name, f.owner_id, f.parent_id, f.created_at, f.updated_at
		FROM %s s
		JOIN %s f ON f.id = s.folder_id
		WHERE s.user_id = $1
		ORDER BY f.name ASC
	`, r.tables.SharedFolders, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, storageError("list user grants", err)
	}
	defer rows.Close()

	for rows.Next() {
		var grant models.SharedFolder
		var folder models.Folder
		var permission string
		err := rows.Scan(
			&grant.ID, &grant.FolderID, &grant.UserID, &permission, &grant.CreatedAt,
			&folder.ID, &folder.Name, &folder.OwnerID, &folder.ParentID, &folder.CreatedAt, &folder.UpdatedAt,
		)
		if err != nil {
			return nil, storageError("scan grant", err)
		}
		if grant.Permission, err = models.ParseGrantPermission(permission); err != nil {
			return nil, storageError("scan grant", err)
		}
		grant.Folder = &folder
		grants = append(grants, grant)
	}

	if err := rows.Err(); err != nil {
		return nil, storageError("iterate grants", err)
	}

	return grants, nil
}

// ListUserGrantsOnFolders returns the user's grants on any of the given folders
func (r *PostgresShareRepository) ListUserGrantsOnFolders(ctx context.Context, userID string, folderIDs []string) ([]models.SharedFolder, error) {
	grants := []models.SharedFolder{}
	if !isValidID(userID) || len(folderIDs) == 0 {
		return grants, nil
	}

	query := fmt.Sprintf(`
		SELECT id, folder_id, user_id, permission, created_at
		FROM %s
		WHERE user_id = $1 AND folder_id::text = ANY($2::text[])
	`, r.tables.SharedFolders)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID, folderIDs)
	if err != nil {
		return nil, storageError("list grants on folders", err)
	}
	defer rows.Close()

	for rows.Next() {
		var grant models.SharedFolder
		var permission string
		if err := rows.Scan(&grant.ID, &grant.FolderID, &grant.UserID, &permission, &grant.CreatedAt); err != nil {
			return nil, storageError("scan grant", err)
		}
		if grant.Permission, err = models.ParseGrantPermission(permission); err != nil {
			return nil, storageError("scan grant", err)
		}
		grants = append(grants, grant)
	}

	if err := rows.Err(); err != nil {
		return nil, storageError("iterate grants", err)
	}

	return grants, nil
}
