package repositories

import (
	"context"

	"foldershare/internal/domain/models"
)

// ShareRepository defines data access operations for per-user folder grants
type ShareRepository interface {
	// CreateGrant inserts a grant; an existing (folder, user) pair is domain.ErrConflict
	CreateGrant(ctx context.Context, grant *models.SharedFolder) error

	// GetGrant retrieves the grant for a (folder, user) pair
	GetGrant(ctx context.Context, folderID, userID string) (*models.SharedFolder, error)

	// UpdateGrantPermission changes the level of an existing grant and
	// returns the number of rows affected (0 when no grant exists)
	UpdateGrantPermission(ctx context.Context, folderID, userID string, permission models.Permission) (int64, error)

	// DeleteGrant removes a grant and returns the number of rows affected
	DeleteGrant(ctx context.Context, folderID, userID string) (int64, error)

	// ListGrantsForFolder lists grants on a folder with the grantee joined
	ListGrantsForFolder(ctx context.Context, folderID string) ([]models.SharedFolder, error)

	// ListGrantsForUser lists grants held by a user with the folder joined
	ListGrantsForUser(ctx context.Context, userID string) ([]models.SharedFolder, error)

	// ListUserGrantsOnFolders returns the user's grants on any of the given folders
	ListUserGrantsOnFolders(ctx context.Context, userID string, folderIDs []string) ([]models.SharedFolder, error)
}

// PublicShareRepository defines data access operations for public links
type PublicShareRepository interface {
	// Upsert creates the folder's public link, replacing any existing one
	Upsert(ctx context.Context, share *models.PublicFolderShare) error

	GetByToken(ctx context.Context, token string) (*models.PublicFolderShare, error)
	GetByFolder(ctx context.Context, folderID string) (*models.PublicFolderShare, error)

	// DeleteByFolder removes the folder's public link(s) and returns rows affected
	DeleteByFolder(ctx context.Context, folderID string) (int64, error)
}

// OrphanRepository records blobs left behind by best-effort deletes
type OrphanRepository interface {
	// Record upserts an orphan entry for the storage key
	Record(ctx context.Context, orphan *models.OrphanedBlob) error

	// List returns up to limit orphans, oldest first
	List(ctx context.Context, limit int) ([]models.OrphanedBlob, error)

	Delete(ctx context.Context, storageKey string) error
}
