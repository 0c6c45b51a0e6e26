package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"foldershare/internal/domain"
	"foldershare/internal/domain/models"
	"foldershare/internal/repository/memory"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func claimsFor(subject, email, name string) *models.AuthClaims {
	return &models.AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
		Email:            email,
		Name:             name,
	}
}

func TestProvisioner_EnsureUser(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repos := memory.NewRepositories(memory.NewStore())
	p := NewProvisioner(repos.Users, logger)

	t.Run("first request creates the user", func(t *testing.T) {
		require.NoError(t, p.EnsureUser(ctx, claimsFor("sub-1", "Dana@Example.com", "Dana")))

		user, err := repos.Users.GetByID(ctx, "sub-1")
		require.NoError(t, err)
		assert.Equal(t, "dana@example.com", user.Email)
		assert.Equal(t, "Dana", user.Name)

		// The new account can own folders and be found for sharing
		require.NoError(t, repos.Folders.Create(ctx, &models.Folder{Name: "docs", OwnerID: "sub-1"}))
		found, err := repos.Users.GetByEmail(ctx, "dana@example.com")
		require.NoError(t, err)
		assert.Equal(t, "sub-1", found.ID)
	})

	t.Run("repeat requests keep the row", func(t *testing.T) {
		require.NoError(t, p.EnsureUser(ctx, claimsFor("sub-1", "dana@example.com", "Someone Else")))
		user, err := repos.Users.GetByID(ctx, "sub-1")
		require.NoError(t, err)
		assert.Equal(t, "Dana", user.Name)
	})

	t.Run("changed email is refreshed", func(t *testing.T) {
		require.NoError(t, p.EnsureUser(ctx, claimsFor("sub-1", "dana@new.example.com", "Dana")))
		user, err := repos.Users.GetByID(ctx, "sub-1")
		require.NoError(t, err)
		assert.Equal(t, "dana@new.example.com", user.Email)
	})

	require.NoError(t, repos.Users.Create(ctx, &models.User{Name: "Erin", Email: "erin@example.com"}))

	t.Run("taken name falls back to the email", func(t *testing.T) {
		require.NoError(t, p.EnsureUser(ctx, claimsFor("sub-2", "erin2@example.com", "Erin")))
		user, err := repos.Users.GetByID(ctx, "sub-2")
		require.NoError(t, err)
		assert.Equal(t, "erin2@example.com", user.Name)
	})

	tests := []struct {
		name    string
		claims  *models.AuthClaims
		wantErr error
	}{
		{"email owned by another account", claimsFor("sub-3", "erin@example.com", ""), domain.ErrConflict},
		{"email required on first sight", claimsFor("sub-4", "", "Nobody"), domain.ErrValidation},
		{"subject required", claimsFor("", "x@example.com", ""), domain.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, p.EnsureUser(ctx, tt.claims), tt.wantErr)
		})
	}
}
