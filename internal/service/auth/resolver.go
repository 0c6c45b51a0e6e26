package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"foldershare/internal/domain/models"
	"foldershare/internal/domain/repositories"
	"foldershare/internal/domain/services"
	"foldershare/internal/metrics"
)

// PermissionResolver resolves effective permissions from one ancestry read
// and one grant read, then applies nearest-ancestor-wins in memory.
type PermissionResolver struct {
	folderRepo repositories.FolderRepository
	shareRepo  repositories.ShareRepository
	logger     *slog.Logger
}

// NewPermissionResolver creates a resolver over the folder and share repositories
func NewPermissionResolver(
	folderRepo repositories.FolderRepository,
	shareRepo repositories.ShareRepository,
	logger *slog.Logger,
) *PermissionResolver {
	return &PermissionResolver{
		folderRepo: folderRepo,
		shareRepo:  shareRepo,
		logger:     logger,
	}
}

var _ services.PermissionResolver = (*PermissionResolver)(nil)

// ResolvePermission returns the user's effective permission on a folder.
// A missing folder resolves to PermissionNone; storage failures are returned.
func (r *PermissionResolver) ResolvePermission(ctx context.Context, folderID, userID string) (models.Permission, error) {
	chain, err := r.folderRepo.ListAncestors(ctx, folderID)
	if err != nil {
		return models.PermissionNone, fmt.Errorf("load ancestry of folder %s: %w", folderID, err)
	}
	return r.resolveChain(ctx, chain, userID)
}

// HasAnyAccess reports whether the user holds any permission on the folder
func (r *PermissionResolver) HasAnyAccess(ctx context.Context, folderID, userID string) (bool, error) {
	perm, err := r.ResolvePermission(ctx, folderID, userID)
	if err != nil {
		return false, err
	}
	return perm != models.PermissionNone, nil
}

// IsDescendant reports whether ancestorID lies on candidateID's path to the
// root. A folder is its own descendant.
func (r *PermissionResolver) IsDescendant(ctx context.Context, candidateID, ancestorID string) (bool, error) {
	chain, err := r.folderRepo.ListAncestors(ctx, candidateID)
	if err != nil {
		return false, fmt.Errorf("load ancestry of folder %s: %w", candidateID, err)
	}
	for _, f := range chain {
		if f.ID == ancestorID {
			return true, nil
		}
	}
	return false, nil
}

// resolveChain applies nearest-ancestor-wins to chain (folder first, root
// last). At every level ownership is checked before that level's grant.
func (r *PermissionResolver) resolveChain(ctx context.Context, chain []models.Folder, userID string) (models.Permission, error) {
	perm := models.PermissionNone
	defer func() {
		metrics.PermissionChecks.WithLabelValues(resultLabel(perm)).Inc()
	}()

	if len(chain) == 0 || userID == "" {
		return perm, nil
	}
	if chain[0].OwnerID == userID {
		perm = models.PermissionOwner
		return perm, nil
	}

	ids := make([]string, len(chain))
	for i, f := range chain {
		ids[i] = f.ID
	}
	grants, err := r.shareRepo.ListUserGrantsOnFolders(ctx, userID, ids)
	if err != nil {
		return models.PermissionNone, fmt.Errorf("load grants for user %s: %w", userID, err)
	}
	granted := make(map[string]models.Permission, len(grants))
	for _, g := range grants {
		granted[g.FolderID] = g.Permission
	}

	for _, f := range chain {
		if f.OwnerID == userID {
			perm = models.PermissionOwner
			break
		}
		if p, ok := granted[f.ID]; ok {
			perm = p
			break
		}
	}

	r.logger.Debug("permission resolved",
		"folder_id", chain[0].ID,
		"user_id", userID,
		"depth", len(chain),
		"permission", perm.String(),
	)
	return perm, nil
}

func resultLabel(p models.Permission) string {
	if p == models.PermissionNone {
		return "none"
	}
	return strings.ToLower(p.String())
}
