package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"

	"foldershare/internal/config"
	"foldershare/internal/domain"
	"foldershare/internal/domain/models"
	"foldershare/internal/domain/repositories"

	"github.com/google/uuid"
)

// FolderRepository implements repositories.FolderRepository
type FolderRepository struct {
	store *Store
}

// NewFolderRepository creates a folder repository backed by store
func NewFolderRepository(store *Store) repositories.FolderRepository {
	return &FolderRepository{store: store}
}

func (r *FolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	return r.store.do(ctx, func(d *state) error {
		if _, ok := d.users[folder.OwnerID]; !ok {
			return fmt.Errorf("owner %s: %w", folder.OwnerID, domain.ErrNotFound)
		}
		if folder.ParentID != nil {
			if _, ok := d.folders[*folder.ParentID]; !ok {
				return fmt.Errorf("parent folder: %w", domain.ErrNotFound)
			}
		}
		if folder.ID == "" {
			folder.ID = uuid.NewString()
		}
		r.store.stamp(&folder.CreatedAt, &folder.UpdatedAt)
		d.folders[folder.ID] = cloneFolder(*folder)
		return nil
	})
}

func (r *FolderRepository) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	var folder models.Folder
	err := r.store.do(ctx, func(d *state) error {
		f, ok := d.folders[id]
		if !ok {
			return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
		}
		folder = cloneFolder(f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &folder, nil
}

func (r *FolderRepository) Update(ctx context.Context, folder *models.Folder) error {
	return r.store.do(ctx, func(d *state) error {
		existing, ok := d.folders[folder.ID]
		if !ok {
			return fmt.Errorf("folder %s: %w", folder.ID, domain.ErrNotFound)
		}
		if folder.ParentID != nil {
			if _, ok := d.folders[*folder.ParentID]; !ok {
				return fmt.Errorf("parent folder: %w", domain.ErrNotFound)
			}
		}
		existing.Name = folder.Name
		existing.ParentID = folder.ParentID
		existing.UpdatedAt = folder.UpdatedAt
		if existing.UpdatedAt.IsZero() {
			existing.UpdatedAt = r.store.now()
		}
		d.folders[folder.ID] = cloneFolder(existing)
		return nil
	})
}

func (r *FolderRepository) Delete(ctx context.Context, id string) error {
	return r.store.do(ctx, func(d *state) error {
		if _, ok := d.folders[id]; !ok {
			return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
		}
		for _, f := range d.folders {
			if f.ParentID != nil && *f.ParentID == id {
				return &domain.ConflictError{Message: "cannot delete folder with children", ResourceType: "folder", ResourceID: id}
			}
		}
		for _, f := range d.files {
			if f.FolderID != nil && *f.FolderID == id {
				return &domain.ConflictError{Message: "cannot delete folder with files", ResourceType: "folder", ResourceID: id}
			}
		}

		delete(d.folders, id)
		maps.DeleteFunc(d.grants, func(_ string, g models.SharedFolder) bool { return g.FolderID == id })
		maps.DeleteFunc(d.publicShares, func(_ string, s models.PublicFolderShare) bool { return s.FolderID == id })
		return nil
	})
}

func (r *FolderRepository) ListChildren(ctx context.Context, parentID string) ([]models.Folder, error) {
	return r.filter(ctx, byName, func(f models.Folder) bool {
		return f.ParentID != nil && *f.ParentID == parentID
	})
}

func (r *FolderRepository) ListRootsByOwner(ctx context.Context, ownerID string) ([]models.Folder, error) {
	return r.filter(ctx, byName, func(f models.Folder) bool {
		return f.OwnerID == ownerID && f.ParentID == nil
	})
}

func (r *FolderRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Folder, error) {
	return r.filter(ctx, byCreated, func(f models.Folder) bool {
		return f.OwnerID == ownerID
	})
}

// ListAncestors follows parent links from folderID to its root, stopping
// after config.MaxFolderDepth levels
func (r *FolderRepository) ListAncestors(ctx context.Context, folderID string) ([]models.Folder, error) {
	chain := []models.Folder{}
	err := r.store.do(ctx, func(d *state) error {
		id := &folderID
		for depth := 0; id != nil && depth <= config.MaxFolderDepth; depth++ {
			f, ok := d.folders[*id]
			if !ok {
				break
			}
			chain = append(chain, cloneFolder(f))
			id = f.ParentID
		}
		return nil
	})
	return chain, err
}

// SubtreeHeight walks the subtree level by level
func (r *FolderRepository) SubtreeHeight(ctx context.Context, folderID string) (int, error) {
	height := 0
	err := r.store.do(ctx, func(d *state) error {
		if _, ok := d.folders[folderID]; !ok {
			return nil
		}
		children := map[string][]string{}
		for id, f := range d.folders {
			if f.ParentID != nil {
				children[*f.ParentID] = append(children[*f.ParentID], id)
			}
		}
		level := []string{folderID}
		for len(level) > 0 && height <= config.MaxFolderDepth {
			height++
			var next []string
			for _, id := range level {
				next = append(next, children[id]...)
			}
			level = next
		}
		return nil
	})
	return height, err
}

// LockTree is a no-op: a memory transaction already holds the store lock
func (r *FolderRepository) LockTree(ctx context.Context) error {
	return ctx.Err()
}

func (r *FolderRepository) filter(ctx context.Context, order func(a, b models.Folder) int, keep func(models.Folder) bool) ([]models.Folder, error) {
	folders := []models.Folder{}
	err := r.store.do(ctx, func(d *state) error {
		for _, f := range d.folders {
			if keep(f) {
				folders = append(folders, cloneFolder(f))
			}
		}
		return nil
	})
	slices.SortFunc(folders, order)
	return folders, err
}

func byName(a, b models.Folder) int {
	return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
}

func byCreated(a, b models.Folder) int {
	return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
}

func cloneFolder(f models.Folder) models.Folder {
	if f.ParentID != nil {
		parent := *f.ParentID
		f.ParentID = &parent
	}
	return f
}
