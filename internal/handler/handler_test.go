package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"foldershare/internal/domain/models"
	"foldershare/internal/domain/repositories"
	"foldershare/internal/httputil"
	"foldershare/internal/repository/memory"
	"foldershare/internal/service/auth"
	"foldershare/internal/service/drive"
	"foldershare/internal/service/sharing"
	blobmem "foldershare/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMaxUpload = 64

type testServer struct {
	handler http.Handler
	repos   *repositories.Set
	blobs   *blobmem.BlobStore
	alice   *models.User
	bob     *models.User
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repos := memory.NewRepositories(memory.NewStore())
	blobs := blobmem.NewBlobStore()

	resolver := auth.NewPermissionResolver(repos.Folders, repos.Shares, logger)
	gate := auth.NewGate(resolver, repos.Folders, repos.Files, logger)
	shareService := sharing.NewShareService(repos, resolver, gate, sharing.Options{}, logger)
	folderService := drive.NewFolderService(repos, resolver, gate, blobs, logger)
	fileService := drive.NewFileService(repos, gate, shareService, blobs, testMaxUpload, logger)

	handlers := &Handlers{
		Folders: NewFolderHandler(folderService, logger),
		Files:   NewFileHandler(fileService, testMaxUpload, logger),
		Shares:  NewShareHandler(shareService, logger),
		Public:  NewPublicHandler(shareService, fileService, logger),
	}
	mux := http.NewServeMux()
	handlers.Register(mux)

	s := &testServer{repos: repos, blobs: blobs}
	// Stands in for the JWT middleware
	s.handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get("X-Test-User"); id != "" {
			r = httputil.WithUserID(r, id)
		}
		mux.ServeHTTP(w, r)
	})

	for _, name := range []string{"alice", "bob"} {
		u := &models.User{Name: name, Email: name + "@example.com"}
		require.NoError(t, repos.Users.Create(context.Background(), u))
		if name == "alice" {
			s.alice = u
		} else {
			s.bob = u
		}
	}
	return s
}

func (s *testServer) do(t *testing.T, method, path string, user *models.User, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req.Header.Set("X-Test-User", user.ID)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) upload(t *testing.T, user *models.User, folderID, name, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if folderID != "" {
		require.NoError(t, mw.WriteField("folder_id", folderID))
	}
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Test-User", user.ID)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) createFolder(t *testing.T, user *models.User, name string, parentID *string) models.Folder {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/folders", user, map[string]interface{}{"name": name, "parent_id": parentID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Folder](t, rec)
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]interface{}](t, rec)["status"])
}

func TestFolderRoutes(t *testing.T) {
	s := newTestServer(t)
	root := s.createFolder(t, s.alice, "root", nil)
	child := s.createFolder(t, s.alice, "child", &root.ID)

	t.Run("get returns contents and permission", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/folders/"+root.ID, s.alice, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[map[string]interface{}](t, rec)
		assert.Equal(t, "OWNER", body["permission"])
		assert.Len(t, body["folders"], 1)
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/folders/"+root.ID, s.bob, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	})

	t.Run("list roots and all", func(t *testing.T) {
		roots := decode[[]models.Folder](t, s.do(t, http.MethodGet, "/api/folders", s.alice, nil))
		assert.Len(t, roots, 1)
		all := decode[[]models.Folder](t, s.do(t, http.MethodGet, "/api/folders?all=true", s.alice, nil))
		assert.Len(t, all, 2)
	})

	t.Run("invalid name", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/folders", s.alice, map[string]string{"name": "a/b"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/folders", strings.NewReader("{"))
		req.Header.Set("X-Test-User", s.alice.ID)
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("move to root with null parent", func(t *testing.T) {
		rec := s.do(t, http.MethodPatch, "/api/folders/"+child.ID, s.alice, map[string]interface{}{"parent_id": nil})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Nil(t, decode[models.Folder](t, rec).ParentID)
	})

	t.Run("delete reports counts", func(t *testing.T) {
		rec := s.do(t, http.MethodDelete, "/api/folders/"+root.ID, s.alice, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 1, decode[map[string]interface{}](t, rec)["folders_deleted"])
	})
}

func TestShareRoutes(t *testing.T) {
	s := newTestServer(t)
	folder := s.createFolder(t, s.alice, "team", nil)
	sharesPath := "/api/folders/" + folder.ID + "/shares"

	rec := s.do(t, http.MethodPost, sharesPath, s.alice, map[string]string{"email": "bob@example.com", "permission": "EDIT"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, sharesPath, s.alice, map[string]string{"email": "bob@example.com", "permission": "READ"})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "share", decode[map[string]interface{}](t, rec)["resource_type"])

	rec = s.do(t, http.MethodGet, "/api/folders/"+folder.ID, s.bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "EDIT", decode[map[string]interface{}](t, rec)["permission"])

	shared := decode[[]models.SharedFolder](t, s.do(t, http.MethodGet, "/api/shared-with-me", s.bob, nil))
	require.Len(t, shared, 1)
	assert.Equal(t, folder.ID, shared[0].FolderID)

	// Only the owner manages grants
	rec = s.do(t, http.MethodGet, sharesPath, s.bob, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPatch, sharesPath+"/"+s.bob.ID, s.alice, map[string]string{"permission": "READ"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/folders/"+folder.ID, s.bob, nil)
	assert.Equal(t, "READ", decode[map[string]interface{}](t, rec)["permission"])

	rec = s.do(t, http.MethodDelete, sharesPath+"/"+s.bob.ID, s.alice, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodDelete, sharesPath+"/"+s.bob.ID, s.alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, http.MethodPatch, sharesPath+"/"+s.bob.ID, s.alice, map[string]string{"permission": "READ"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFileAndPublicRoutes(t *testing.T) {
	s := newTestServer(t)
	folder := s.createFolder(t, s.alice, "docs", nil)

	rec := s.upload(t, s.alice, folder.ID, "hello.txt", "hello world")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	file := decode[models.File](t, rec)
	assert.Equal(t, int64(len("hello world")), file.Size)

	t.Run("download", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/files/"+file.ID+"/content", s.alice, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "hello world", rec.Body.String())
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "hello.txt")
	})

	t.Run("stranger cannot download", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/files/"+file.ID+"/content", s.bob, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("oversized upload", func(t *testing.T) {
		rec := s.upload(t, s.alice, "", "big.bin", strings.Repeat("x", testMaxUpload+1))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("blob outage", func(t *testing.T) {
		s.blobs.FailPut = func(string) error { return errors.New("bucket unavailable") }
		defer func() { s.blobs.FailPut = nil }()
		rec := s.upload(t, s.alice, "", "x.txt", "x")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("public link", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/folders/"+folder.ID+"/public-link", s.alice, nil)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		link := decode[models.PublicFolderShare](t, rec)

		rec = s.do(t, http.MethodGet, "/public/"+link.Token, nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "READ", decode[map[string]interface{}](t, rec)["permission"])

		rec = s.do(t, http.MethodGet, "/public/"+link.Token+"/files/"+file.ID+"/content", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "hello world", rec.Body.String())

		rec = s.do(t, http.MethodGet, "/public/not-a-token", nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = s.do(t, http.MethodDelete, "/api/folders/"+folder.ID+"/public-link", s.alice, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = s.do(t, http.MethodGet, "/public/"+link.Token, nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("none unfiles the file", func(t *testing.T) {
		rec := s.do(t, http.MethodPatch, "/api/files/"+file.ID+"/folder", s.alice, map[string]string{"folder_id": "none"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Nil(t, decode[models.File](t, rec).FolderID)

		rec = s.do(t, http.MethodPatch, "/api/files/"+file.ID+"/folder", s.alice, map[string]string{"folder_id": folder.ID})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		moved := decode[models.File](t, rec)
		require.NotNil(t, moved.FolderID)
		assert.Equal(t, folder.ID, *moved.FolderID)
	})

	t.Run("move out of folder and delete", func(t *testing.T) {
		rec := s.do(t, http.MethodPatch, "/api/files/"+file.ID+"/folder", s.alice, map[string]interface{}{"folder_id": nil})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Nil(t, decode[models.File](t, rec).FolderID)

		rec = s.do(t, http.MethodDelete, "/api/files/"+file.ID, s.alice, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = s.do(t, http.MethodGet, "/api/files/"+file.ID, s.alice, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
