package services

import (
	"context"

	"foldershare/internal/domain/models"
)

// PermissionResolver computes a user's effective permission on a folder by
// walking the folder's ancestry.
//
// Resolution is nearest-ancestor-wins: at each level ownership is checked
// first, then an explicit grant for the user at that level; the first match
// is returned. A missing folder resolves to models.PermissionNone.
type PermissionResolver interface {
	ResolvePermission(ctx context.Context, folderID, userID string) (models.Permission, error)

	// HasAnyAccess reports whether ResolvePermission is above PermissionNone
	HasAnyAccess(ctx context.Context, folderID, userID string) (bool, error)

	// IsDescendant reports whether ancestorID is on candidateID's path to the
	// root, candidate included
	IsDescendant(ctx context.Context, candidateID, ancestorID string) (bool, error)
}

// AccessGate is the single chokepoint services use to authorize access to
// folders and files. Denials are domain.ErrForbidden.
type AccessGate interface {
	// GetAccessibleFolder returns the folder with its contents and the
	// caller's effective permission
	GetAccessibleFolder(ctx context.Context, userID, folderID string) (*FolderAccess, error)

	// GetAccessibleFile returns the file and the caller's effective permission.
	// The uploader is always OWNER; others inherit from the containing folder.
	GetAccessibleFile(ctx context.Context, userID, fileID string) (*FileAccess, error)

	// RequirePermission fails unless the caller's permission on the folder
	// satisfies required, and returns the resolved level
	RequirePermission(ctx context.Context, userID, folderID string, required models.Permission) (models.Permission, error)

	// RequireFolderOwner fails unless the caller is the folder's recorded owner
	RequireFolderOwner(ctx context.Context, userID, folderID string) (*models.Folder, error)
}

// UserProvisioner creates the local account of an authenticated subject the
// first time it is seen, so folders can be owned by and shared with it
type UserProvisioner interface {
	EnsureUser(ctx context.Context, claims *models.AuthClaims) error
}

// FolderAccess is a folder as seen by one caller
type FolderAccess struct {
	Folder     *models.Folder    `json:"folder"`
	Folders    []models.Folder   `json:"folders"`
	Files      []models.File     `json:"files"`
	Breadcrumb []models.Folder   `json:"breadcrumb"` // root first, folder last
	Permission models.Permission `json:"permission"`
}

// FileAccess is a file as seen by one caller
type FileAccess struct {
	File       *models.File      `json:"file"`
	Permission models.Permission `json:"permission"`
}
