package memory

import (
	"cmp"
	"context"
	"slices"

	"foldershare/internal/domain/models"
	"foldershare/internal/domain/repositories"
)

// OrphanRepository implements repositories.OrphanRepository
type OrphanRepository struct {
	store *Store
}

// NewOrphanRepository creates an orphan repository backed by store
func NewOrphanRepository(store *Store) repositories.OrphanRepository {
	return &OrphanRepository{store: store}
}

func (r *OrphanRepository) Record(ctx context.Context, orphan *models.OrphanedBlob) error {
	return r.store.do(ctx, func(d *state) error {
		if existing, ok := d.orphans[orphan.StorageKey]; ok {
			existing.Reason = orphan.Reason
			d.orphans[orphan.StorageKey] = existing
			return nil
		}
		r.store.stamp(&orphan.CreatedAt, nil)
		d.orphans[orphan.StorageKey] = *orphan
		return nil
	})
}

func (r *OrphanRepository) List(ctx context.Context, limit int) ([]models.OrphanedBlob, error) {
	orphans := []models.OrphanedBlob{}
	err := r.store.do(ctx, func(d *state) error {
		for _, o := range d.orphans {
			orphans = append(orphans, o)
		}
		return nil
	})
	slices.SortFunc(orphans, func(a, b models.OrphanedBlob) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.StorageKey, b.StorageKey))
	})
	if limit > 0 && len(orphans) > limit {
		orphans = orphans[:limit]
	}
	return orphans, err
}

func (r *OrphanRepository) Delete(ctx context.Context, storageKey string) error {
	return r.store.do(ctx, func(d *state) error {
		delete(d.orphans, storageKey)
		return nil
	})
}
