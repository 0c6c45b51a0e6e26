package seed

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"foldershare/internal/domain/models"
	"foldershare/internal/repository/memory"
	"foldershare/internal/service/auth"
	"foldershare/internal/service/drive"
	"foldershare/internal/service/sharing"
	blobmem "foldershare/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const fixtureYAML = `
users:
  - id: 7f1c1b7e-0000-4000-8000-000000000001
    name: alice
    email: alice@example.com
    password: wonderland
  - name: bob
    email: bob@example.com
    password: builder
folders:
  - name: Projects
    owner: alice@example.com
    public: true
    shares:
      - email: bob@example.com
        permission: EDIT
    files:
      - name: readme.md
        mime_type: text/markdown
        content: "# hello"
    children:
      - name: Drafts
        owner: alice@example.com
`

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	_, err := Load(strings.NewReader("users:\n  - nickname: x\n"))
	assert.Error(t, err)

	fx, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, fx.Users)
}

func TestSeeder_Apply(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repos := memory.NewRepositories(memory.NewStore())
	blobs := blobmem.NewBlobStore()
	resolver := auth.NewPermissionResolver(repos.Folders, repos.Shares, logger)
	gate := auth.NewGate(resolver, repos.Folders, repos.Files, logger)
	shares := sharing.NewShareService(repos, resolver, gate, sharing.Options{}, logger)
	seeder := NewSeeder(
		repos.Users,
		drive.NewFolderService(repos, resolver, gate, blobs, logger),
		drive.NewFileService(repos, gate, shares, blobs, 0, logger),
		shares,
		logger,
	)

	fx, err := Load(strings.NewReader(fixtureYAML))
	require.NoError(t, err)

	summary, err := seeder.Apply(ctx, fx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Users)
	assert.Equal(t, 2, summary.Folders)
	assert.Equal(t, 1, summary.Files)
	assert.Equal(t, 1, summary.Shares)
	assert.Len(t, summary.PublicLinks, 1)

	alice, err := repos.Users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "7f1c1b7e-0000-4000-8000-000000000001", alice.ID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(alice.PasswordHash), []byte("wonderland")))

	bob, err := repos.Users.GetByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	grants, err := repos.Shares.ListGrantsForUser(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, models.PermissionEdit, grants[0].Permission)

	// Users are reused on a second run
	summary, err = seeder.Apply(ctx, &Fixture{Users: fx.Users})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Users)
}

func TestSeeder_UnknownOwner(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repos := memory.NewRepositories(memory.NewStore())
	seeder := NewSeeder(repos.Users, nil, nil, nil, logger)

	_, err := seeder.Apply(context.Background(), &Fixture{
		Folders: []FolderFixture{{Name: "x", Owner: "ghost@example.com"}},
	})
	assert.ErrorContains(t, err, "unknown owner")
}
