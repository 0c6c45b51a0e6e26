package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"foldershare/internal/domain"
	"foldershare/internal/domain/models"
	"foldershare/internal/domain/repositories"
	"foldershare/internal/domain/services"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	knownUsersSize = 10_000
	knownUsersTTL  = 10 * time.Minute
)

// Provisioner implements services.UserProvisioner. Subjects already present
// are remembered for a while so most requests skip the lookup.
type Provisioner struct {
	users  repositories.UserRepository
	known  *expirable.LRU[string, string]
	logger *slog.Logger
}

var _ services.UserProvisioner = (*Provisioner)(nil)

// NewProvisioner creates a user provisioner
func NewProvisioner(users repositories.UserRepository, logger *slog.Logger) *Provisioner {
	return &Provisioner{
		users:  users,
		known:  expirable.NewLRU[string, string](knownUsersSize, nil, knownUsersTTL),
		logger: logger,
	}
}

// EnsureUser makes sure a user row exists for the token subject. The email
// claim is required on first sight and refreshed when it changes. The
// display name falls back to the email when the name claim is taken.
func (p *Provisioner) EnsureUser(ctx context.Context, claims *models.AuthClaims) error {
	id := claims.GetUserID()
	if id == "" {
		return fmt.Errorf("token has no subject: %w", domain.ErrUnauthorized)
	}
	email := strings.ToLower(strings.TrimSpace(claims.Email))

	if known, ok := p.known.Get(id); ok && (email == "" || known == email) {
		return nil
	}

	existing, err := p.users.GetByID(ctx, id)
	switch {
	case err == nil:
		if email == "" || existing.Email == email {
			p.known.Add(id, existing.Email)
			return nil
		}
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}

	if email == "" {
		return &domain.ValidationError{Message: "token has no email claim"}
	}

	var lastErr error
	for _, name := range displayNames(claims.Name, email) {
		user := &models.User{ID: id, Name: name, Email: email}
		lastErr = p.users.Upsert(ctx, user)
		if errors.Is(lastErr, domain.ErrConflict) {
			continue
		}
		if lastErr != nil {
			return lastErr
		}

		p.known.Add(id, user.Email)
		if existing == nil {
			p.logger.Info("user provisioned", "id", user.ID, "email", user.Email, "name", user.Name)
		} else {
			p.logger.Info("user email updated", "id", user.ID, "email", user.Email)
		}
		return nil
	}
	return lastErr
}

func displayNames(name, email string) []string {
	name = strings.TrimSpace(name)
	if name == "" || name == email {
		return []string{email}
	}
	return []string{name, email}
}
