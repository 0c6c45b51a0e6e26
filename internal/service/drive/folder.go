package drive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"foldershare/internal/config"
	"foldershare/internal/domain"
	"foldershare/internal/domain/models"
	"foldershare/internal/domain/repositories"
	"foldershare/internal/domain/services"
	"foldershare/internal/metrics"
	"foldershare/internal/service/auth"
)

type folderService struct {
	folderRepo repositories.FolderRepository
	fileRepo   repositories.FileRepository
	txManager  repositories.TransactionManager
	resolver   *auth.PermissionResolver
	gate       *auth.Gate
	reaper     *blobReaper
	logger     *slog.Logger
}

// NewFolderService creates the folder lifecycle service
func NewFolderService(
	repos *repositories.Set,
	resolver *auth.PermissionResolver,
	gate *auth.Gate,
	blobs services.BlobStore,
	logger *slog.Logger,
) services.FolderService {
	return &folderService{
		folderRepo: repos.Folders,
		fileRepo:   repos.Files,
		txManager:  repos.Tx,
		resolver:   resolver,
		gate:       gate,
		reaper:     &blobReaper{blobs: blobs, orphans: repos.Orphans, logger: logger},
		logger:     logger,
	}
}

// CreateFolder creates a folder owned by the caller. Creating inside an
// existing folder requires EDIT there; the parent may belong to someone else.
func (s *folderService) CreateFolder(ctx context.Context, actorID string, req *services.CreateFolderRequest) (*models.Folder, error) {
	// Normalize empty string to nil for root-level folders
	if req.ParentID != nil && *req.ParentID == "" {
		req.ParentID = nil
	}

	if err := validateCreateFolderRequest(req); err != nil {
		return nil, err
	}

	now := time.Now()
	folder := &models.Folder{
		Name:      req.Name,
		OwnerID:   actorID,
		ParentID:  req.ParentID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if req.ParentID != nil {
			if err := s.folderRepo.LockTree(txCtx); err != nil {
				return err
			}
			if _, err := s.gate.RequirePermission(txCtx, actorID, *req.ParentID, models.PermissionEdit); err != nil {
				return err
			}
			if err := s.checkDepth(txCtx, *req.ParentID, 1); err != nil {
				return err
			}
		}
		return s.folderRepo.Create(txCtx, folder)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder created",
		"id", folder.ID,
		"name", folder.Name,
		"owner_id", actorID,
		"parent_id", folder.ParentID,
	)
	return folder, nil
}

// GetFolder returns the folder contents visible to the caller
func (s *folderService) GetFolder(ctx context.Context, actorID, folderID string) (*services.FolderAccess, error) {
	return s.gate.GetAccessibleFolder(ctx, actorID, folderID)
}

// UpdateFolder renames and/or reparents a folder. Only the recorded owner
// may do either; the new parent must be editable by the owner and must not
// be the folder itself or one of its descendants.
func (s *folderService) UpdateFolder(ctx context.Context, actorID, folderID string, req *services.UpdateFolderRequest) (*models.Folder, error) {
	folder, err := s.gate.RequireFolderOwner(ctx, actorID, folderID)
	if err != nil {
		return nil, err
	}

	if err := validateUpdateFolderRequest(req); err != nil {
		return nil, err
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if req.ParentID.Present {
			// Re-read under the lock so the checks below see the settled tree
			if err := s.folderRepo.LockTree(txCtx); err != nil {
				return err
			}
			current, err := s.folderRepo.GetByID(txCtx, folderID)
			if err != nil {
				return err
			}
			folder = current
		}

		if req.Name != nil {
			folder.Name = *req.Name
		}

		// Tri-state: only update location if field was present in request
		if req.ParentID.Present {
			if req.ParentID.Value == nil || *req.ParentID.Value == "" {
				folder.ParentID = nil
				s.logger.Debug("moving folder to root", "folder_id", folderID)
			} else {
				target := *req.ParentID.Value
				if err := s.validateNoCircularReference(txCtx, folderID, target); err != nil {
					return err
				}
				if _, err := s.gate.RequirePermission(txCtx, actorID, target, models.PermissionEdit); err != nil {
					return err
				}
				height, err := s.folderRepo.SubtreeHeight(txCtx, folderID)
				if err != nil {
					return err
				}
				if err := s.checkDepth(txCtx, target, height); err != nil {
					return err
				}
				folder.ParentID = &target
				s.logger.Debug("moving folder to new parent", "folder_id", folderID, "parent_id", target)
			}
		}

		folder.UpdatedAt = time.Now()
		return s.folderRepo.Update(txCtx, folder)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder updated",
		"id", folder.ID,
		"name", folder.Name,
		"parent_id", folder.ParentID,
	)
	return folder, nil
}

// validateNoCircularReference rejects moving a folder under itself or one
// of its descendants
func (s *folderService) validateNoCircularReference(ctx context.Context, folderID, targetParentID string) error {
	if folderID == targetParentID {
		return &domain.ValidationError{Message: "cannot move folder into itself"}
	}

	isDescendant, err := s.resolver.IsDescendant(ctx, targetParentID, folderID)
	if err != nil {
		return err
	}
	if isDescendant {
		return &domain.ValidationError{Message: "cannot move folder into its own descendant"}
	}
	return nil
}

// checkDepth rejects placing a subtree of the given height under parentID
// when its deepest folder would end up past the nesting limit
func (s *folderService) checkDepth(ctx context.Context, parentID string, height int) error {
	chain, err := s.folderRepo.ListAncestors(ctx, parentID)
	if err != nil {
		return err
	}
	if len(chain)+height > config.MaxFolderDepth {
		return &domain.ValidationError{Message: fmt.Sprintf("folders cannot be nested more than %d levels deep", config.MaxFolderDepth)}
	}
	return nil
}

// DeleteFolder removes a folder with all descendant folders and files in a
// single transaction. OWNER may always delete; EDIT may delete non-root
// folders only. Blobs are removed after commit.
func (s *folderService) DeleteFolder(ctx context.Context, actorID, folderID string) (*services.DeleteResult, error) {
	perm, err := s.resolver.ResolvePermission(ctx, folderID, actorID)
	if err != nil {
		return nil, err
	}
	if perm == models.PermissionNone {
		return nil, &domain.ForbiddenError{Message: fmt.Sprintf("access denied to %s", folderID)}
	}

	folder, err := s.folderRepo.GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	switch {
	case perm == models.PermissionOwner:
	case perm == models.PermissionEdit && !folder.IsRoot():
	default:
		metrics.AccessDenials.WithLabelValues("delete_folder").Inc()
		return nil, &domain.ForbiddenError{Message: "only the owner can delete this folder"}
	}

	c := &cascade{}
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.folderRepo.LockTree(txCtx); err != nil {
			return err
		}
		return deleteTree(txCtx, s.folderRepo, s.fileRepo, folderID, 0, c)
	})
	if err != nil {
		metrics.CascadeRollbacks.Inc()
		s.logger.Error("folder delete rolled back", "folder_id", folderID, "error", err)
		if errors.Is(err, domain.ErrNotFound) {
			// A row vanished under a concurrent delete
			return nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
		}
		return nil, err
	}

	metrics.CascadeDeletes.WithLabelValues("folder").Add(float64(c.folders))
	metrics.CascadeDeletes.WithLabelValues("file").Add(float64(c.files))

	orphaned := s.reaper.reap(ctx, c.keys, fmt.Sprintf("folder %s deleted", folderID))

	s.logger.Info("folder deleted",
		"id", folderID,
		"name", folder.Name,
		"by", actorID,
		"folders", c.folders,
		"files", c.files,
		"orphaned_blobs", orphaned,
	)
	return &services.DeleteResult{
		FoldersDeleted: c.folders,
		FilesDeleted:   c.files,
		OrphanedBlobs:  orphaned,
	}, nil
}

// ListRootFolders lists the caller's parentless folders
func (s *folderService) ListRootFolders(ctx context.Context, ownerID string) ([]models.Folder, error) {
	return s.folderRepo.ListRootsByOwner(ctx, ownerID)
}

// ListAllFolders lists every folder the caller owns
func (s *folderService) ListAllFolders(ctx context.Context, ownerID string) ([]models.Folder, error) {
	return s.folderRepo.ListByOwner(ctx, ownerID)
}
