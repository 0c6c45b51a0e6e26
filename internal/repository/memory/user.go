package memory

import (
	"context"
	"fmt"
	"strings"

	"foldershare/internal/domain"
	"foldershare/internal/domain/models"
	"foldershare/internal/domain/repositories"

	"github.com/google/uuid"
)

// UserRepository implements repositories.UserRepository
type UserRepository struct {
	store *Store
}

// NewUserRepository creates a user repository backed by store
func NewUserRepository(store *Store) repositories.UserRepository {
	return &UserRepository{store: store}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return r.store.do(ctx, func(d *state) error {
		return r.insert(d, user)
	})
}

func (r *UserRepository) Upsert(ctx context.Context, user *models.User) error {
	return r.store.do(ctx, func(d *state) error {
		existing, ok := d.users[user.ID]
		if user.ID == "" || !ok {
			return r.insert(d, user)
		}

		email := strings.ToLower(user.Email)
		if email != existing.Email {
			if err := conflicting(d, existing.ID, email, ""); err != nil {
				return err
			}
			existing.Email = email
			existing.UpdatedAt = r.store.now()
			d.users[existing.ID] = existing
		}
		*user = existing
		return nil
	})
}

func (r *UserRepository) insert(d *state, user *models.User) error {
	email := strings.ToLower(user.Email)
	if err := conflicting(d, "", email, user.Name); err != nil {
		return err
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = email
	r.store.stamp(&user.CreatedAt, &user.UpdatedAt)
	d.users[user.ID] = *user
	return nil
}

// conflicting reports another user (not selfID) holding email or name.
// An empty name is not compared.
func conflicting(d *state, selfID, email, name string) error {
	for _, existing := range d.users {
		if existing.ID == selfID {
			continue
		}
		if existing.Email == email || (name != "" && existing.Name == name) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("user '%s' already exists", email),
				ResourceType: "user",
				ResourceID:   existing.ID,
			}
		}
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.store.do(ctx, func(d *state) error {
		u, ok := d.users[id]
		if !ok {
			return fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var user *models.User
	err := r.store.do(ctx, func(d *state) error {
		for _, u := range d.users {
			if u.Email == email {
				user = &u
				return nil
			}
		}
		return fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
	})
	return user, err
}
