package repositories

import (
	"context"

	"foldershare/internal/domain/models"
)

// FolderRepository defines data access operations for folders.
// No authorization logic lives here.
type FolderRepository interface {
	// Create creates a new folder
	Create(ctx context.Context, folder *models.Folder) error

	// GetByID retrieves a folder by ID
	GetByID(ctx context.Context, id string) (*models.Folder, error)

	// Update persists name and parent changes
	Update(ctx context.Context, folder *models.Folder) error

	// Delete deletes a folder row. Fails with domain.ErrConflict while the
	// folder still has child folders or files.
	Delete(ctx context.Context, id string) error

	// ListChildren lists immediate child folders
	ListChildren(ctx context.Context, parentID string) ([]models.Folder, error)

	// ListRootsByOwner lists the owner's folders that have no parent
	ListRootsByOwner(ctx context.Context, ownerID string) ([]models.Folder, error)

	// ListByOwner lists every folder owned by the user (flat)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Folder, error)

	// ListAncestors returns the folder followed by each ancestor up to the root.
	// Returns an empty slice (no error) when the folder does not exist.
	ListAncestors(ctx context.Context, folderID string) ([]models.Folder, error)

	// SubtreeHeight counts the levels of the subtree rooted at folderID, the
	// folder itself being level one. Returns 0 when the folder does not exist.
	// Counting stops once it passes config.MaxFolderDepth.
	SubtreeHeight(ctx context.Context, folderID string) (int, error)

	// LockTree serializes structural changes (creating under a parent,
	// reparenting, cascade delete) until the transaction in ctx ends.
	// Must be called inside TransactionManager.ExecTx.
	LockTree(ctx context.Context) error
}
