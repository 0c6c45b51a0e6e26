package memory

import (
	"context"
	"fmt"

	"foldershare/internal/domain"
	"foldershare/internal/domain/models"
	"foldershare/internal/domain/repositories"

	"github.com/google/uuid"
)

// PublicShareRepository implements repositories.PublicShareRepository
type PublicShareRepository struct {
	store *Store
}

// NewPublicShareRepository creates a public link repository backed by store
func NewPublicShareRepository(store *Store) repositories.PublicShareRepository {
	return &PublicShareRepository{store: store}
}

// Upsert replaces the token and expiry of the folder's existing link, if any
func (r *PublicShareRepository) Upsert(ctx context.Context, share *models.PublicFolderShare) error {
	return r.store.do(ctx, func(d *state) error {
		if _, ok := d.folders[share.FolderID]; !ok {
			return fmt.Errorf("folder %s: %w", share.FolderID, domain.ErrNotFound)
		}
		var existing *models.PublicFolderShare
		for _, s := range d.publicShares {
			if s.Token == share.Token && s.FolderID != share.FolderID {
				return &domain.ConflictError{Message: "public link token already in use", ResourceType: "public_link"}
			}
			if s.FolderID == share.FolderID {
				existing = &s
			}
		}

		r.store.stamp(&share.CreatedAt, nil)
		if existing != nil {
			share.ID = existing.ID
		} else if share.ID == "" {
			share.ID = uuid.NewString()
		}
		d.publicShares[share.ID] = *share
		return nil
	})
}

func (r *PublicShareRepository) GetByToken(ctx context.Context, token string) (*models.PublicFolderShare, error) {
	return r.find(ctx, func(s models.PublicFolderShare) bool { return s.Token == token })
}

func (r *PublicShareRepository) GetByFolder(ctx context.Context, folderID string) (*models.PublicFolderShare, error) {
	return r.find(ctx, func(s models.PublicFolderShare) bool { return s.FolderID == folderID })
}

func (r *PublicShareRepository) DeleteByFolder(ctx context.Context, folderID string) (int64, error) {
	var rows int64
	err := r.store.do(ctx, func(d *state) error {
		for id, s := range d.publicShares {
			if s.FolderID == folderID {
				delete(d.publicShares, id)
				rows++
			}
		}
		return nil
	})
	return rows, err
}

func (r *PublicShareRepository) find(ctx context.Context, match func(models.PublicFolderShare) bool) (*models.PublicFolderShare, error) {
	var found *models.PublicFolderShare
	err := r.store.do(ctx, func(d *state) error {
		for _, s := range d.publicShares {
			if match(s) {
				found = &s
				return nil
			}
		}
		return fmt.Errorf("public link: %w", domain.ErrNotFound)
	})
	return found, err
}
