package services

import (
	"context"
	"io"

	"foldershare/internal/domain/models"
	"foldershare/internal/httputil"
)

// FolderService handles folder lifecycle: creation, rename/reparent and
// recursive deletion of whole subtrees.
type FolderService interface {
	// CreateFolder creates a folder owned by the caller
	CreateFolder(ctx context.Context, actorID string, req *CreateFolderRequest) (*models.Folder, error)

	// GetFolder returns the folder contents visible to the caller
	GetFolder(ctx context.Context, actorID, folderID string) (*FolderAccess, error)

	// UpdateFolder renames and/or reparents a folder (recorded owner only)
	UpdateFolder(ctx context.Context, actorID, folderID string, req *UpdateFolderRequest) (*models.Folder, error)

	// DeleteFolder deletes a folder, its descendant folders and all their
	// files in one transaction
	DeleteFolder(ctx context.Context, actorID, folderID string) (*DeleteResult, error)

	// ListRootFolders lists the caller's parentless folders
	ListRootFolders(ctx context.Context, ownerID string) ([]models.Folder, error)

	// ListAllFolders lists every folder the caller owns
	ListAllFolders(ctx context.Context, ownerID string) ([]models.Folder, error)
}

// FileService handles file upload, download, move and delete
type FileService interface {
	UploadFile(ctx context.Context, actorID string, req *UploadFileRequest) (*models.File, error)
	GetFile(ctx context.Context, actorID, fileID string) (*FileAccess, error)

	// DownloadFile opens the file's bytes; the caller must close the reader
	DownloadFile(ctx context.Context, actorID, fileID string) (*models.File, io.ReadCloser, error)

	// DownloadPublicFile opens a file reachable through a public link
	DownloadPublicFile(ctx context.Context, token, fileID string) (*models.File, io.ReadCloser, error)

	// MoveFile sets the file's folder; nil clears it
	MoveFile(ctx context.Context, actorID, fileID string, targetFolderID *string) (*models.File, error)

	DeleteFile(ctx context.Context, actorID, fileID string) error
	ListFiles(ctx context.Context, ownerID string) ([]models.File, error)
}

// CreateFolderRequest represents a folder creation request
type CreateFolderRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id,omitempty"` // null for root
}

// UpdateFolderRequest represents a folder update request
type UpdateFolderRequest struct {
	Name     *string                 `json:"name,omitempty"`      // rename
	ParentID httputil.OptionalString `json:"parent_id,omitempty"` // move (null for root)
}

// UploadFileRequest represents a file upload
type UploadFileRequest struct {
	Name     string
	MimeType string
	Size     int64
	Body     io.Reader
	FolderID *string
}

// DeleteResult summarizes a committed cascade delete
type DeleteResult struct {
	FoldersDeleted int `json:"folders_deleted"`
	FilesDeleted   int `json:"files_deleted"`
	// OrphanedBlobs counts blobs that could not be removed after commit
	OrphanedBlobs int `json:"orphaned_blobs"`
}
