package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"foldershare/internal/config"
	"foldershare/internal/domain"
	"foldershare/internal/domain/models"
	"foldershare/internal/domain/repositories"
	"foldershare/internal/domain/services"
	"foldershare/internal/httputil"
	"foldershare/internal/repository/memory"
	"foldershare/internal/service/auth"
	"foldershare/internal/service/sharing"
	blobmem "foldershare/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repos    *repositories.Set
	resolver *auth.PermissionResolver
	blobs   *blobmem.BlobStore
	gate    *auth.Gate
	folders services.FolderService
	files   services.FileService
	shares  services.ShareService
	sweeper *OrphanSweeper
	alice   *models.User
	bob     *models.User
	carol   *models.User
}

// newFixture wires the services over an in-memory store. wrap, when set,
// may replace repositories before the services are built.
func newFixture(t *testing.T, wrap func(*repositories.Set)) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repos := memory.NewRepositories(memory.NewStore())
	blobs := blobmem.NewBlobStore()

	f := &fixture{repos: repos, blobs: blobs}
	for _, name := range []string{"alice", "bob", "carol"} {
		u := &models.User{Name: name, Email: name + "@example.com"}
		require.NoError(t, repos.Users.Create(context.Background(), u))
		switch name {
		case "alice":
			f.alice = u
		case "bob":
			f.bob = u
		case "carol":
			f.carol = u
		}
	}

	if wrap != nil {
		wrap(repos)
	}

	resolver := auth.NewPermissionResolver(repos.Folders, repos.Shares, logger)
	f.resolver = resolver
	f.gate = auth.NewGate(resolver, repos.Folders, repos.Files, logger)
	f.shares = sharing.NewShareService(repos, resolver, f.gate, sharing.Options{}, logger)
	f.folders = NewFolderService(repos, resolver, f.gate, blobs, logger)
	f.files = NewFileService(repos, f.gate, f.shares, blobs, 1<<20, logger)
	f.sweeper = NewOrphanSweeper(repos.Orphans, blobs, logger)
	return f
}

func (f *fixture) mkdir(t *testing.T, owner *models.User, parent *models.Folder, name string) *models.Folder {
	t.Helper()
	req := &services.CreateFolderRequest{Name: name}
	if parent != nil {
		req.ParentID = &parent.ID
	}
	folder, err := f.folders.CreateFolder(context.Background(), owner.ID, req)
	require.NoError(t, err)
	return folder
}

func (f *fixture) upload(t *testing.T, owner *models.User, folder *models.Folder, name, body string) *models.File {
	t.Helper()
	req := &services.UploadFileRequest{
		Name:     name,
		MimeType: "text/plain",
		Size:     int64(len(body)),
		Body:     strings.NewReader(body),
	}
	if folder != nil {
		req.FolderID = &folder.ID
	}
	file, err := f.files.UploadFile(context.Background(), owner.ID, req)
	require.NoError(t, err)
	return file
}

func (f *fixture) grant(t *testing.T, folder *models.Folder, user *models.User, perm string) {
	t.Helper()
	_, err := f.shares.ShareWithUser(context.Background(), folder.OwnerID, &services.ShareRequest{
		FolderID: folder.ID, Email: user.Email, Permission: perm,
	})
	require.NoError(t, err)
}

func strPtr(s string) *string { return &s }

func TestCreateFolder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	root := f.mkdir(t, f.alice, nil, "root")

	t.Run("root folder", func(t *testing.T) {
		assert.Equal(t, f.alice.ID, root.OwnerID)
		assert.Nil(t, root.ParentID)
	})

	t.Run("name is trimmed", func(t *testing.T) {
		folder, err := f.folders.CreateFolder(ctx, f.alice.ID, &services.CreateFolderRequest{Name: "  docs  ", ParentID: &root.ID})
		require.NoError(t, err)
		assert.Equal(t, "docs", folder.Name)
	})

	t.Run("empty parent means root", func(t *testing.T) {
		folder, err := f.folders.CreateFolder(ctx, f.alice.ID, &services.CreateFolderRequest{Name: "other", ParentID: strPtr("")})
		require.NoError(t, err)
		assert.True(t, folder.IsRoot())
	})

	t.Run("invalid names", func(t *testing.T) {
		for _, name := range []string{"", "   ", "a/b", strings.Repeat("x", 256)} {
			_, err := f.folders.CreateFolder(ctx, f.alice.ID, &services.CreateFolderRequest{Name: name})
			assert.ErrorIs(t, err, domain.ErrValidation, "name %q", name)
		}
	})

	t.Run("no access to parent", func(t *testing.T) {
		_, err := f.folders.CreateFolder(ctx, f.bob.ID, &services.CreateFolderRequest{Name: "x", ParentID: &root.ID})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("read grant is not enough", func(t *testing.T) {
		f.grant(t, root, f.bob, "READ")
		_, err := f.folders.CreateFolder(ctx, f.bob.ID, &services.CreateFolderRequest{Name: "x", ParentID: &root.ID})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("edit grant creates a folder owned by the editor", func(t *testing.T) {
		f.grant(t, root, f.carol, "EDIT")
		folder, err := f.folders.CreateFolder(ctx, f.carol.ID, &services.CreateFolderRequest{Name: "carol's", ParentID: &root.ID})
		require.NoError(t, err)
		assert.Equal(t, f.carol.ID, folder.OwnerID)
	})
}

func TestUpdateFolder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	a := f.mkdir(t, f.alice, nil, "a")
	b := f.mkdir(t, f.alice, a, "b")
	c := f.mkdir(t, f.alice, b, "c")
	other := f.mkdir(t, f.alice, nil, "other")

	t.Run("rename", func(t *testing.T) {
		updated, err := f.folders.UpdateFolder(ctx, f.alice.ID, c.ID, &services.UpdateFolderRequest{Name: strPtr("renamed")})
		require.NoError(t, err)
		assert.Equal(t, "renamed", updated.Name)
		assert.Equal(t, b.ID, *updated.ParentID)
	})

	t.Run("empty request", func(t *testing.T) {
		_, err := f.folders.UpdateFolder(ctx, f.alice.ID, c.ID, &services.UpdateFolderRequest{})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("cannot move into itself", func(t *testing.T) {
		_, err := f.folders.UpdateFolder(ctx, f.alice.ID, a.ID, &services.UpdateFolderRequest{
			ParentID: httputil.OptionalString{Present: true, Value: &a.ID},
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("cannot move into a descendant", func(t *testing.T) {
		_, err := f.folders.UpdateFolder(ctx, f.alice.ID, a.ID, &services.UpdateFolderRequest{
			ParentID: httputil.OptionalString{Present: true, Value: &c.ID},
		})
		assert.ErrorIs(t, err, domain.ErrValidation)

		got, err := f.repos.Folders.GetByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Nil(t, got.ParentID)
	})

	t.Run("move to another parent and back to root", func(t *testing.T) {
		moved, err := f.folders.UpdateFolder(ctx, f.alice.ID, c.ID, &services.UpdateFolderRequest{
			ParentID: httputil.OptionalString{Present: true, Value: &other.ID},
		})
		require.NoError(t, err)
		assert.Equal(t, other.ID, *moved.ParentID)

		moved, err = f.folders.UpdateFolder(ctx, f.alice.ID, c.ID, &services.UpdateFolderRequest{
			ParentID: httputil.OptionalString{Present: true},
		})
		require.NoError(t, err)
		assert.Nil(t, moved.ParentID)
	})

	t.Run("editors cannot rename", func(t *testing.T) {
		f.grant(t, a, f.bob, "EDIT")
		_, err := f.folders.UpdateFolder(ctx, f.bob.ID, b.ID, &services.UpdateFolderRequest{Name: strPtr("mine")})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("target must be editable", func(t *testing.T) {
		bobRoot := f.mkdir(t, f.bob, nil, "bob-root")
		_, err := f.folders.UpdateFolder(ctx, f.alice.ID, b.ID, &services.UpdateFolderRequest{
			ParentID: httputil.OptionalString{Present: true, Value: &bobRoot.ID},
		})
		assert.ErrorIs(t, err, domain.ErrForbidden)

		f.grant(t, bobRoot, f.alice, "EDIT")
		moved, err := f.folders.UpdateFolder(ctx, f.alice.ID, b.ID, &services.UpdateFolderRequest{
			ParentID: httputil.OptionalString{Present: true, Value: &bobRoot.ID},
		})
		require.NoError(t, err)
		assert.Equal(t, bobRoot.ID, *moved.ParentID)
		assert.Equal(t, f.alice.ID, moved.OwnerID)
	})

	t.Run("missing folder", func(t *testing.T) {
		_, err := f.folders.UpdateFolder(ctx, f.alice.ID, "missing", &services.UpdateFolderRequest{Name: strPtr("x")})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

// nest creates n folders, each inside the previous one, directly in the store
func (f *fixture) nest(t *testing.T, owner *models.User, n int) []*models.Folder {
	t.Helper()
	chain := make([]*models.Folder, 0, n)
	var parentID *string
	for i := range n {
		folder := &models.Folder{Name: fmt.Sprintf("level-%d", i), OwnerID: owner.ID, ParentID: parentID}
		require.NoError(t, f.repos.Folders.Create(context.Background(), folder))
		chain = append(chain, folder)
		parentID = &folder.ID
	}
	return chain
}

func TestUpdateFolder_DepthCountsMovedSubtree(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	a := f.nest(t, f.alice, 200)
	b := f.nest(t, f.alice, 200)
	tipA := a[len(a)-1]
	f.grant(t, a[0], f.bob, "READ")

	t.Run("subtree too tall for the target", func(t *testing.T) {
		_, err := f.folders.UpdateFolder(ctx, f.alice.ID, b[0].ID, &services.UpdateFolderRequest{
			ParentID: httputil.OptionalString{Present: true, Value: &tipA.ID},
		})
		assert.ErrorIs(t, err, domain.ErrValidation)

		got, err := f.repos.Folders.GetByID(ctx, b[0].ID)
		require.NoError(t, err)
		assert.Nil(t, got.ParentID)
	})

	// 200 + 56 levels lands exactly on the limit
	c := f.nest(t, f.alice, config.MaxFolderDepth-len(a))
	leaf := c[len(c)-1]

	t.Run("subtree that fits", func(t *testing.T) {
		_, err := f.folders.UpdateFolder(ctx, f.alice.ID, c[0].ID, &services.UpdateFolderRequest{
			ParentID: httputil.OptionalString{Present: true, Value: &tipA.ID},
		})
		require.NoError(t, err)

		perm, err := f.resolver.ResolvePermission(ctx, leaf.ID, f.bob.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PermissionRead, perm, "grant on the root reaches the deepest leaf")

		perm, err = f.resolver.ResolvePermission(ctx, leaf.ID, f.alice.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PermissionOwner, perm)

		inside, err := f.resolver.IsDescendant(ctx, leaf.ID, a[0].ID)
		require.NoError(t, err)
		assert.True(t, inside)
	})

	t.Run("no room below the deepest folder", func(t *testing.T) {
		_, err := f.folders.CreateFolder(ctx, f.alice.ID, &services.CreateFolderRequest{Name: "one-too-many", ParentID: &leaf.ID})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("owner can still delete the whole tree", func(t *testing.T) {
		result, err := f.folders.DeleteFolder(ctx, f.alice.ID, a[0].ID)
		require.NoError(t, err)
		assert.Equal(t, config.MaxFolderDepth, result.FoldersDeleted)
	})
}

// recordingFolders logs the structural calls the services make
type recordingFolders struct {
	repositories.FolderRepository
	calls []string
}

func (r *recordingFolders) LockTree(ctx context.Context) error {
	r.calls = append(r.calls, "lock")
	return r.FolderRepository.LockTree(ctx)
}

func (r *recordingFolders) ListAncestors(ctx context.Context, folderID string) ([]models.Folder, error) {
	r.calls = append(r.calls, "ancestors")
	return r.FolderRepository.ListAncestors(ctx, folderID)
}

func (r *recordingFolders) SubtreeHeight(ctx context.Context, folderID string) (int, error) {
	r.calls = append(r.calls, "height")
	return r.FolderRepository.SubtreeHeight(ctx, folderID)
}

func TestStructuralChanges_LockTreeBeforeChecks(t *testing.T) {
	ctx := context.Background()
	recorder := &recordingFolders{}
	f := newFixture(t, func(repos *repositories.Set) {
		recorder.FolderRepository = repos.Folders
		repos.Folders = recorder
	})
	a := f.mkdir(t, f.alice, nil, "a")
	b := f.mkdir(t, f.alice, nil, "b")

	t.Run("reparent", func(t *testing.T) {
		recorder.calls = nil
		_, err := f.folders.UpdateFolder(ctx, f.alice.ID, b.ID, &services.UpdateFolderRequest{
			ParentID: httputil.OptionalString{Present: true, Value: &a.ID},
		})
		require.NoError(t, err)
		require.NotEmpty(t, recorder.calls)
		assert.Equal(t, "lock", recorder.calls[0], "cycle and depth checks run under the lock")
		assert.Contains(t, recorder.calls, "height")
	})

	t.Run("create under a parent", func(t *testing.T) {
		recorder.calls = nil
		f.mkdir(t, f.alice, a, "c")
		require.NotEmpty(t, recorder.calls)
		assert.Equal(t, "lock", recorder.calls[0])
	})

	t.Run("rename alone takes no lock", func(t *testing.T) {
		recorder.calls = nil
		_, err := f.folders.UpdateFolder(ctx, f.alice.ID, b.ID, &services.UpdateFolderRequest{Name: strPtr("renamed")})
		require.NoError(t, err)
		assert.NotContains(t, recorder.calls, "lock")
	})

	t.Run("cascade delete", func(t *testing.T) {
		recorder.calls = nil
		_, err := f.folders.DeleteFolder(ctx, f.alice.ID, a.ID)
		require.NoError(t, err)
		assert.Contains(t, recorder.calls, "lock")
	})
}

func TestDeleteFolder_Cascade(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	top := f.mkdir(t, f.alice, nil, "F")
	child := f.mkdir(t, f.alice, top, "C")
	f1 := f.upload(t, f.alice, top, "f1.txt", "one")
	f2 := f.upload(t, f.alice, top, "f2.txt", "two")
	f3 := f.upload(t, f.alice, child, "f3.txt", "three")
	keep := f.upload(t, f.alice, nil, "keep.txt", "keep")

	f.grant(t, child, f.bob, "READ")
	_, err := f.shares.CreatePublicShare(ctx, f.alice.ID, &services.CreatePublicShareRequest{FolderID: top.ID})
	require.NoError(t, err)

	result, err := f.folders.DeleteFolder(ctx, f.alice.ID, top.ID)
	require.NoError(t, err)
	assert.Equal(t, &services.DeleteResult{FoldersDeleted: 2, FilesDeleted: 3}, result)

	for _, id := range []string{top.ID, child.ID} {
		_, err := f.repos.Folders.GetByID(ctx, id)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	}
	for _, file := range []*models.File{f1, f2, f3} {
		_, err := f.repos.Files.GetByID(ctx, file.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.False(t, f.blobs.Has(file.StorageKey))
	}
	assert.True(t, f.blobs.Has(keep.StorageKey))

	grants, err := f.repos.Shares.ListGrantsForUser(ctx, f.bob.ID)
	require.NoError(t, err)
	assert.Empty(t, grants)

	_, err = f.repos.PublicShares.GetByFolder(ctx, top.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// failingFiles fails the nth Delete call
type failingFiles struct {
	repositories.FileRepository
	failOn int
	calls  int
}

func (r *failingFiles) Delete(ctx context.Context, id string) error {
	r.calls++
	if r.calls == r.failOn {
		return errors.New("disk on fire")
	}
	return r.FileRepository.Delete(ctx, id)
}

func TestDeleteFolder_RollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	failing := &failingFiles{failOn: 2}
	f := newFixture(t, func(repos *repositories.Set) {
		failing.FileRepository = repos.Files
		repos.Files = failing
	})

	top := f.mkdir(t, f.alice, nil, "F")
	child := f.mkdir(t, f.alice, top, "C")
	uploaded := []*models.File{
		f.upload(t, f.alice, top, "f1.txt", "one"),
		f.upload(t, f.alice, top, "f2.txt", "two"),
		f.upload(t, f.alice, child, "f3.txt", "three"),
	}

	_, err := f.folders.DeleteFolder(ctx, f.alice.ID, top.ID)
	require.Error(t, err)

	for _, id := range []string{top.ID, child.ID} {
		_, err := f.repos.Folders.GetByID(ctx, id)
		assert.NoError(t, err)
	}
	for _, file := range uploaded {
		_, err := f.repos.Files.GetByID(ctx, file.ID)
		assert.NoError(t, err, "file %s should be restored", file.Name)
		assert.True(t, f.blobs.Has(file.StorageKey), "blob %s should be untouched", file.Name)
	}
}

func TestDeleteFolder_Permissions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	root := f.mkdir(t, f.alice, nil, "root")
	sub := f.mkdir(t, f.alice, root, "sub")
	f.grant(t, root, f.bob, "EDIT")
	f.grant(t, root, f.carol, "READ")

	t.Run("stranger", func(t *testing.T) {
		other := f.mkdir(t, f.bob, nil, "bob-only")
		_, err := f.folders.DeleteFolder(ctx, f.carol.ID, other.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("reader", func(t *testing.T) {
		_, err := f.folders.DeleteFolder(ctx, f.carol.ID, sub.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("editor cannot delete a root", func(t *testing.T) {
		_, err := f.folders.DeleteFolder(ctx, f.bob.ID, root.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("editor deletes a subfolder", func(t *testing.T) {
		result, err := f.folders.DeleteFolder(ctx, f.bob.ID, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, result.FoldersDeleted)
	})

	t.Run("missing folder", func(t *testing.T) {
		_, err := f.folders.DeleteFolder(ctx, f.alice.ID, "missing")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("owner deletes the root", func(t *testing.T) {
		_, err := f.folders.DeleteFolder(ctx, f.alice.ID, root.ID)
		require.NoError(t, err)
	})
}

func TestDeleteFolder_BlobFailureRecordsOrphan(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	folder := f.mkdir(t, f.alice, nil, "F")
	file := f.upload(t, f.alice, folder, "f.txt", "bytes")

	f.blobs.FailDelete = func(string) error { return errors.New("bucket unavailable") }
	result, err := f.folders.DeleteFolder(ctx, f.alice.ID, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.OrphanedBlobs)
	assert.True(t, f.blobs.Has(file.StorageKey))

	orphans, err := f.sweeper.ListOrphans(ctx, 10)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, file.StorageKey, orphans[0].StorageKey)

	// Still failing: nothing reclaimed, record kept
	reclaimed, err := f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, reclaimed)

	f.blobs.FailDelete = nil
	reclaimed, err = f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reclaimed)
	assert.False(t, f.blobs.Has(file.StorageKey))

	orphans, err = f.sweeper.ListOrphans(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, orphans)
}

func TestUploadFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	folder := f.mkdir(t, f.alice, nil, "F")

	t.Run("stores blob and row", func(t *testing.T) {
		file := f.upload(t, f.alice, folder, "Report.PDF", "%PDF")
		assert.Equal(t, f.alice.ID, file.OwnerID)
		assert.Equal(t, folder.ID, *file.FolderID)
		assert.True(t, strings.HasPrefix(file.StorageKey, "uploads/"))
		assert.True(t, strings.HasSuffix(file.StorageKey, ".pdf"))
		assert.True(t, f.blobs.Has(file.StorageKey))
	})

	t.Run("unfiled", func(t *testing.T) {
		file := f.upload(t, f.bob, nil, "loose.bin", "x")
		assert.Nil(t, file.FolderID)
	})

	t.Run("default mime type", func(t *testing.T) {
		file, err := f.files.UploadFile(ctx, f.alice.ID, &services.UploadFileRequest{
			Name: "raw", Size: 1, Body: strings.NewReader("x"),
		})
		require.NoError(t, err)
		assert.Equal(t, "application/octet-stream", file.MimeType)
	})

	t.Run("too large", func(t *testing.T) {
		_, err := f.files.UploadFile(ctx, f.alice.ID, &services.UploadFileRequest{
			Name: "big", Size: 2 << 20, Body: strings.NewReader("x"),
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("needs edit on the folder", func(t *testing.T) {
		_, err := f.files.UploadFile(ctx, f.carol.ID, &services.UploadFileRequest{
			Name: "x.txt", Size: 1, Body: strings.NewReader("x"), FolderID: &folder.ID,
		})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("blob failure creates no row", func(t *testing.T) {
		f.blobs.FailPut = func(string) error { return errors.New("bucket unavailable") }
		defer func() { f.blobs.FailPut = nil }()

		before, err := f.files.ListFiles(ctx, f.carol.ID)
		require.NoError(t, err)

		_, err = f.files.UploadFile(ctx, f.carol.ID, &services.UploadFileRequest{
			Name: "x.txt", Size: 1, Body: strings.NewReader("x"),
		})
		assert.ErrorIs(t, err, domain.ErrBlob)

		after, err := f.files.ListFiles(ctx, f.carol.ID)
		require.NoError(t, err)
		assert.Len(t, after, len(before))
	})
}

func TestDownloadFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	folder := f.mkdir(t, f.alice, nil, "F")
	file := f.upload(t, f.alice, folder, "hello.txt", "hello")

	_, _, err := f.files.DownloadFile(ctx, f.bob.ID, file.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	f.grant(t, folder, f.bob, "READ")
	got, body, err := f.files.DownloadFile(ctx, f.bob.ID, file.ID)
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, file.ID, got.ID)

	share, err := f.shares.CreatePublicShare(ctx, f.alice.ID, &services.CreatePublicShareRequest{FolderID: folder.ID})
	require.NoError(t, err)
	_, public, err := f.files.DownloadPublicFile(ctx, share.Token, file.ID)
	require.NoError(t, err)
	public.Close()

	_, _, err = f.files.DownloadPublicFile(ctx, "bogus", file.ID)
	assert.Error(t, err)
}

func TestMoveFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	src := f.mkdir(t, f.alice, nil, "src")
	dst := f.mkdir(t, f.bob, nil, "dst")
	f.grant(t, src, f.bob, "EDIT")
	file := f.upload(t, f.alice, src, "a.txt", "a")

	t.Run("editor who is not the uploader", func(t *testing.T) {
		_, err := f.files.MoveFile(ctx, f.bob.ID, file.ID, &dst.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("target not editable", func(t *testing.T) {
		_, err := f.files.MoveFile(ctx, f.alice.ID, file.ID, &dst.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("into a shared folder keeps the owner", func(t *testing.T) {
		f.grant(t, dst, f.alice, "EDIT")
		moved, err := f.files.MoveFile(ctx, f.alice.ID, file.ID, &dst.ID)
		require.NoError(t, err)
		assert.Equal(t, dst.ID, *moved.FolderID)
		assert.Equal(t, f.alice.ID, moved.OwnerID)
	})

	t.Run("nil clears the folder", func(t *testing.T) {
		moved, err := f.files.MoveFile(ctx, f.alice.ID, file.ID, nil)
		require.NoError(t, err)
		assert.Nil(t, moved.FolderID)

		stored, err := f.repos.Files.GetByID(ctx, file.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.FolderID)
	})
}

func TestDeleteFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	folder := f.mkdir(t, f.alice, nil, "F")
	f.grant(t, folder, f.bob, "READ")
	f.grant(t, folder, f.carol, "EDIT")

	file := f.upload(t, f.alice, folder, "a.txt", "a")

	err := f.files.DeleteFile(ctx, f.bob.ID, file.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, f.files.DeleteFile(ctx, f.carol.ID, file.ID))
	_, err = f.repos.Files.GetByID(ctx, file.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, f.blobs.Has(file.StorageKey))

	err = f.files.DeleteFile(ctx, f.alice.ID, file.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStorageKey(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Regexp(t, `^uploads/2025/03/01/[0-9a-f-]{36}\.txt$`, storageKey(now, "notes.TXT"))
	assert.Regexp(t, `^uploads/2025/03/01/[0-9a-f-]{36}$`, storageKey(now, "no-extension"))
	assert.Regexp(t, `^uploads/2025/03/01/[0-9a-f-]{36}$`, storageKey(now, "weird.ex t"))
}
