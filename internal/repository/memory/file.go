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

// FileRepository implements repositories.FileRepository
type FileRepository struct {
	store *Store
}

// NewFileRepository creates a file repository backed by store
func NewFileRepository(store *Store) repositories.FileRepository {
	return &FileRepository{store: store}
}

func (r *FileRepository) Create(ctx context.Context, file *models.File) error {
	return r.store.do(ctx, func(d *state) error {
		if _, ok := d.users[file.OwnerID]; !ok {
			return fmt.Errorf("owner %s: %w", file.OwnerID, domain.ErrNotFound)
		}
		if file.FolderID != nil {
			if _, ok := d.folders[*file.FolderID]; !ok {
				return fmt.Errorf("folder: %w", domain.ErrNotFound)
			}
		}
		for _, f := range d.files {
			if f.StorageKey == file.StorageKey {
				return &domain.ConflictError{Message: "storage key already in use", ResourceType: "file", ResourceID: f.ID}
			}
		}
		if file.ID == "" {
			file.ID = uuid.NewString()
		}
		r.store.stamp(&file.CreatedAt, &file.UpdatedAt)
		d.files[file.ID] = cloneFile(*file)
		return nil
	})
}

func (r *FileRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	var file models.File
	err := r.store.do(ctx, func(d *state) error {
		f, ok := d.files[id]
		if !ok {
			return fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
		}
		file = cloneFile(f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *FileRepository) Update(ctx context.Context, file *models.File) error {
	return r.store.do(ctx, func(d *state) error {
		existing, ok := d.files[file.ID]
		if !ok {
			return fmt.Errorf("file %s: %w", file.ID, domain.ErrNotFound)
		}
		if file.FolderID != nil {
			if _, ok := d.folders[*file.FolderID]; !ok {
				return fmt.Errorf("folder: %w", domain.ErrNotFound)
			}
		}
		existing.Name = file.Name
		existing.FolderID = file.FolderID
		existing.UpdatedAt = file.UpdatedAt
		if existing.UpdatedAt.IsZero() {
			existing.UpdatedAt = r.store.now()
		}
		d.files[file.ID] = cloneFile(existing)
		return nil
	})
}

func (r *FileRepository) Delete(ctx context.Context, id string) error {
	return r.store.do(ctx, func(d *state) error {
		if _, ok := d.files[id]; !ok {
			return fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
		}
		delete(d.files, id)
		return nil
	})
}

func (r *FileRepository) ListByFolder(ctx context.Context, folderID string) ([]models.File, error) {
	files, err := r.filter(ctx, func(f models.File) bool {
		return f.FolderID != nil && *f.FolderID == folderID
	})
	slices.SortFunc(files, func(a, b models.File) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return files, err
}

func (r *FileRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.File, error) {
	files, err := r.filter(ctx, func(f models.File) bool { return f.OwnerID == ownerID })
	slices.SortFunc(files, func(a, b models.File) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return files, err
}

func (r *FileRepository) filter(ctx context.Context, keep func(models.File) bool) ([]models.File, error) {
	files := []models.File{}
	err := r.store.do(ctx, func(d *state) error {
		for _, f := range d.files {
			if keep(f) {
				files = append(files, cloneFile(f))
			}
		}
		return nil
	})
	return files, err
}

func cloneFile(f models.File) models.File {
	if f.FolderID != nil {
		folder := *f.FolderID
		f.FolderID = &folder
	}
	return f
}
