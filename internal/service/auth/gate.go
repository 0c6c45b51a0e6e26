package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"foldershare/internal/domain"
	"foldershare/internal/domain/models"
	"foldershare/internal/domain/repositories"
	"foldershare/internal/domain/services"
	"foldershare/internal/metrics"
)

// Gate implements services.AccessGate. Every read or mutation of folder and
// file content is authorized here.
type Gate struct {
	resolver   *PermissionResolver
	folderRepo repositories.FolderRepository
	fileRepo   repositories.FileRepository
	logger     *slog.Logger
}

// NewGate creates an access gate
func NewGate(
	resolver *PermissionResolver,
	folderRepo repositories.FolderRepository,
	fileRepo repositories.FileRepository,
	logger *slog.Logger,
) *Gate {
	return &Gate{
		resolver:   resolver,
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
		logger:     logger,
	}
}

var _ services.AccessGate = (*Gate)(nil)

// GetAccessibleFolder returns the folder with its children, files and
// breadcrumb when the user holds any permission on it
func (g *Gate) GetAccessibleFolder(ctx context.Context, userID, folderID string) (*services.FolderAccess, error) {
	chain, err := g.folderRepo.ListAncestors(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("load ancestry of folder %s: %w", folderID, err)
	}

	perm, err := g.resolver.resolveChain(ctx, chain, userID)
	if err != nil {
		return nil, err
	}
	if perm == models.PermissionNone {
		return nil, g.deny("get_folder", userID, folderID)
	}

	return g.loadContents(ctx, chain, perm)
}

// OpenFolder returns folder contents with a permission decided by the
// caller, for paths that authorize without a user (public links)
func (g *Gate) OpenFolder(ctx context.Context, folderID string, perm models.Permission) (*services.FolderAccess, error) {
	chain, err := g.folderRepo.ListAncestors(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("load ancestry of folder %s: %w", folderID, err)
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("folder %s: %w", folderID, domain.ErrNotFound)
	}
	return g.loadContents(ctx, chain, perm)
}

func (g *Gate) loadContents(ctx context.Context, chain []models.Folder, perm models.Permission) (*services.FolderAccess, error) {
	folder := chain[0]

	children, err := g.folderRepo.ListChildren(ctx, folder.ID)
	if err != nil {
		return nil, fmt.Errorf("list child folders: %w", err)
	}
	files, err := g.fileRepo.ListByFolder(ctx, folder.ID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	breadcrumb := slices.Clone(chain)
	slices.Reverse(breadcrumb)

	return &services.FolderAccess{
		Folder:     &folder,
		Folders:    children,
		Files:      files,
		Breadcrumb: breadcrumb,
		Permission: perm,
	}, nil
}

// GetAccessibleFile returns the file and the user's permission on it. The
// uploader is OWNER regardless of the folder; anyone else inherits the
// folder's permission, and an unfiled file is visible to its uploader only.
func (g *Gate) GetAccessibleFile(ctx context.Context, userID, fileID string) (*services.FileAccess, error) {
	file, err := g.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}

	if file.OwnerID == userID {
		return &services.FileAccess{File: file, Permission: models.PermissionOwner}, nil
	}
	if file.FolderID == nil {
		return nil, g.deny("get_file", userID, fileID)
	}

	perm, err := g.resolver.ResolvePermission(ctx, *file.FolderID, userID)
	if err != nil {
		return nil, err
	}
	if perm == models.PermissionNone {
		return nil, g.deny("get_file", userID, fileID)
	}

	return &services.FileAccess{File: file, Permission: perm}, nil
}

// RequirePermission fails with domain.ErrForbidden unless the user's
// permission on the folder satisfies required
func (g *Gate) RequirePermission(ctx context.Context, userID, folderID string, required models.Permission) (models.Permission, error) {
	perm, err := g.resolver.ResolvePermission(ctx, folderID, userID)
	if err != nil {
		return models.PermissionNone, err
	}
	if perm == models.PermissionNone || !perm.Satisfies(required) {
		return perm, g.deny("require_"+required.String(), userID, folderID)
	}
	return perm, nil
}

// RequireFolderOwner fails unless userID is the folder's recorded owner.
// Ownership inherited from an ancestor does not count. A missing folder is
// denied like any other folder the caller does not own.
func (g *Gate) RequireFolderOwner(ctx context.Context, userID, folderID string) (*models.Folder, error) {
	folder, err := g.folderRepo.GetByID(ctx, folderID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, g.deny("require_owner", userID, folderID)
	}
	if err != nil {
		return nil, err
	}
	if folder.OwnerID != userID {
		return nil, g.deny("require_owner", userID, folderID)
	}
	return folder, nil
}

func (g *Gate) deny(operation, userID, resourceID string) error {
	metrics.AccessDenials.WithLabelValues(operation).Inc()
	g.logger.Debug("access denied",
		"operation", operation,
		"user_id", userID,
		"resource_id", resourceID,
	)
	return &domain.ForbiddenError{Message: fmt.Sprintf("access denied to %s", resourceID)}
}
