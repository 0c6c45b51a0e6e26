package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"foldershare/internal/domain"
	"foldershare/internal/domain/models"
	"foldershare/internal/domain/repositories"

	"github.com/google/uuid"
)

// ShareRepository implements repositories.ShareRepository
type ShareRepository struct {
	store *Store
}

// NewShareRepository creates a grant repository backed by store
func NewShareRepository(store *Store) repositories.ShareRepository {
	return &ShareRepository{store: store}
}

func (r *ShareRepository) CreateGrant(ctx context.Context, grant *models.SharedFolder) error {
	if !grant.Permission.IsGrantable() {
		return fmt.Errorf("%w: permission %q cannot be granted", domain.ErrValidation, grant.Permission)
	}
	return r.store.do(ctx, func(d *state) error {
		if _, ok := d.folders[grant.FolderID]; !ok {
			return fmt.Errorf("folder %s: %w", grant.FolderID, domain.ErrNotFound)
		}
		if _, ok := d.users[grant.UserID]; !ok {
			return fmt.Errorf("user %s: %w", grant.UserID, domain.ErrNotFound)
		}
		if _, ok := findGrant(d, grant.FolderID, grant.UserID); ok {
			return &domain.ConflictError{
				Message:      "folder is already shared with this user",
				ResourceType: "share",
				ResourceID:   grant.FolderID,
			}
		}
		if grant.ID == "" {
			grant.ID = uuid.NewString()
		}
		r.store.stamp(&grant.CreatedAt, nil)
		stored := *grant
		stored.User, stored.Folder = nil, nil
		d.grants[grant.ID] = stored
		return nil
	})
}

func (r *ShareRepository) GetGrant(ctx context.Context, folderID, userID string) (*models.SharedFolder, error) {
	var grant models.SharedFolder
	err := r.store.do(ctx, func(d *state) error {
		g, ok := findGrant(d, folderID, userID)
		if !ok {
			return fmt.Errorf("grant on folder %s: %w", folderID, domain.ErrNotFound)
		}
		grant = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (r *ShareRepository) UpdateGrantPermission(ctx context.Context, folderID, userID string, permission models.Permission) (int64, error) {
	if !permission.IsGrantable() {
		return 0, fmt.Errorf("%w: permission %q cannot be granted", domain.ErrValidation, permission)
	}
	var rows int64
	err := r.store.do(ctx, func(d *state) error {
		g, ok := findGrant(d, folderID, userID)
		if !ok {
			return nil
		}
		g.Permission = permission
		d.grants[g.ID] = g
		rows = 1
		return nil
	})
	return rows, err
}

func (r *ShareRepository) DeleteGrant(ctx context.Context, folderID, userID string) (int64, error) {
	var rows int64
	err := r.store.do(ctx, func(d *state) error {
		g, ok := findGrant(d, folderID, userID)
		if !ok {
			return nil
		}
		delete(d.grants, g.ID)
		rows = 1
		return nil
	})
	return rows, err
}

func (r *ShareRepository) ListGrantsForFolder(ctx context.Context, folderID string) ([]models.SharedFolder, error) {
	grants := []models.SharedFolder{}
	err := r.store.do(ctx, func(d *state) error {
		for _, g := range d.grants {
			if g.FolderID != folderID {
				continue
			}
			user, ok := d.users[g.UserID]
			if !ok {
				continue
			}
			user.PasswordHash = ""
			g.User = &user
			grants = append(grants, g)
		}
		return nil
	})
	slices.SortFunc(grants, func(a, b models.SharedFolder) int {
		return cmp.Or(cmp.Compare(a.User.Name, b.User.Name), cmp.Compare(a.ID, b.ID))
	})
	return grants, err
}

func (r *ShareRepository) ListGrantsForUser(ctx context.Context, userID string) ([]models.SharedFolder, error) {
	grants := []models.SharedFolder{}
	err := r.store.do(ctx, func(d *state) error {
		for _, g := range d.grants {
			if g.UserID != userID {
				continue
			}
			folder, ok := d.folders[g.FolderID]
			if !ok {
				continue
			}
			folder = cloneFolder(folder)
			g.Folder = &folder
			grants = append(grants, g)
		}
		return nil
	})
	slices.SortFunc(grants, func(a, b models.SharedFolder) int {
		return cmp.Or(cmp.Compare(a.Folder.Name, b.Folder.Name), cmp.Compare(a.ID, b.ID))
	})
	return grants, err
}

func (r *ShareRepository) ListUserGrantsOnFolders(ctx context.Context, userID string, folderIDs []string) ([]models.SharedFolder, error) {
	grants := []models.SharedFolder{}
	err := r.store.do(ctx, func(d *state) error {
		for _, id := range folderIDs {
			if g, ok := findGrant(d, id, userID); ok {
				grants = append(grants, g)
			}
		}
		return nil
	})
	return grants, err
}

func findGrant(d *state, folderID, userID string) (models.SharedFolder, bool) {
	for _, g := range d.grants {
		if g.FolderID == folderID && g.UserID == userID {
			return g, true
		}
	}
	return models.SharedFolder{}, false
}
