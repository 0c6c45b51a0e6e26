package services

import (
	"context"
	"time"

	"foldershare/internal/domain/models"
)

// ShareService manages per-user grants and public links.
// Mutations are restricted to the folder's recorded owner.
type ShareService interface {
	// ShareWithUser grants READ or EDIT on a folder to the user with the given email
	ShareWithUser(ctx context.Context, actorID string, req *ShareRequest) (*models.SharedFolder, error)

	// UpdatePermission changes an existing grant's level and returns the
	// number of grants changed (0 when the user had no grant)
	UpdatePermission(ctx context.Context, actorID string, req *UpdatePermissionRequest) (int64, error)

	// RemoveShare deletes a grant and reports whether one existed
	RemoveShare(ctx context.Context, actorID, folderID, targetUserID string) (bool, error)

	// ListSharedUsers lists the grants on a folder
	ListSharedUsers(ctx context.Context, actorID, folderID string) ([]models.SharedFolder, error)

	// ListFoldersSharedWithUser lists the grants held by userID
	ListFoldersSharedWithUser(ctx context.Context, userID string) ([]models.SharedFolder, error)

	// CreatePublicShare creates or replaces the folder's public link
	CreatePublicShare(ctx context.Context, actorID string, req *CreatePublicShareRequest) (*models.PublicFolderShare, error)

	// RevokePublicShare deletes the folder's public link and reports whether one existed
	RevokePublicShare(ctx context.Context, actorID, folderID string) (bool, error)

	// GetPublicShare returns the folder's current public link
	GetPublicShare(ctx context.Context, actorID, folderID string) (*models.PublicFolderShare, error)

	// ResolvePublicShare returns the shared root folder for a valid, unexpired token
	ResolvePublicShare(ctx context.Context, token string) (*models.Folder, error)

	// OpenPublicFolder returns a folder inside the token's subtree with READ
	// permission. An empty folderID opens the shared root.
	OpenPublicFolder(ctx context.Context, token, folderID string) (*FolderAccess, error)

	// OpenPublicFile returns a file inside the token's subtree
	OpenPublicFile(ctx context.Context, token, fileID string) (*models.File, error)
}

// ShareRequest represents a request to share a folder with a user
type ShareRequest struct {
	FolderID   string `json:"-"`
	Email      string `json:"email"`
	Permission string `json:"permission"`
}

// UpdatePermissionRequest represents a grant level change
type UpdatePermissionRequest struct {
	FolderID     string `json:"-"`
	TargetUserID string `json:"-"`
	Permission   string `json:"permission"`
}

// CreatePublicShareRequest represents a public link creation request
type CreatePublicShareRequest struct {
	FolderID string `json:"-"`
	// ExpiresIn overrides the default link lifetime; zero uses the default
	ExpiresIn time.Duration `json:"-"`
	// ExpiresInSeconds is the JSON form of ExpiresIn
	ExpiresInSeconds int64 `json:"expires_in_seconds,omitempty"`
}
