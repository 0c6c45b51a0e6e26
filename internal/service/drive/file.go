package drive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"time"

	"foldershare/internal/config"
	"foldershare/internal/domain"
	"foldershare/internal/domain/models"
	"foldershare/internal/domain/repositories"
	"foldershare/internal/domain/services"
	"foldershare/internal/service/auth"

	"github.com/google/uuid"
)

type fileService struct {
	fileRepo       repositories.FileRepository
	txManager      repositories.TransactionManager
	gate           *auth.Gate
	shares         services.ShareService
	blobs          services.BlobStore
	reaper         *blobReaper
	maxUploadBytes int64
	now            func() time.Time
	logger         *slog.Logger
}

// NewFileService creates the file service. maxUploadBytes <= 0 uses
// config.DefaultMaxUploadBytes.
func NewFileService(
	repos *repositories.Set,
	gate *auth.Gate,
	shares services.ShareService,
	blobs services.BlobStore,
	maxUploadBytes int64,
	logger *slog.Logger,
) services.FileService {
	if maxUploadBytes <= 0 {
		maxUploadBytes = config.DefaultMaxUploadBytes
	}
	return &fileService{
		fileRepo:       repos.Files,
		txManager:      repos.Tx,
		gate:           gate,
		shares:         shares,
		blobs:          blobs,
		reaper:         &blobReaper{blobs: blobs, orphans: repos.Orphans, logger: logger},
		maxUploadBytes: maxUploadBytes,
		now:            time.Now,
		logger:         logger,
	}
}

var safeExtension = regexp.MustCompile(`^\.[a-z0-9]{1,16}$`)

// storageKey returns a random key of the form uploads/yyyy/mm/dd/<uuid><ext>
func storageKey(now time.Time, name string) string {
	ext := strings.ToLower(path.Ext(name))
	if !safeExtension.MatchString(ext) {
		ext = ""
	}
	return fmt.Sprintf("uploads/%s/%s%s", now.UTC().Format("2006/01/02"), uuid.NewString(), ext)
}

// UploadFile stores the blob, then the metadata row. A failed blob write
// creates no row; a failed row insert removes the blob again.
func (s *fileService) UploadFile(ctx context.Context, actorID string, req *services.UploadFileRequest) (*models.File, error) {
	if req.FolderID != nil && *req.FolderID == "" {
		req.FolderID = nil
	}
	if err := validateUploadRequest(req, s.maxUploadBytes); err != nil {
		return nil, err
	}

	if req.FolderID != nil {
		if _, err := s.gate.RequirePermission(ctx, actorID, *req.FolderID, models.PermissionEdit); err != nil {
			return nil, err
		}
	}

	now := s.now()
	key := storageKey(now, req.Name)
	if err := s.blobs.Put(ctx, key, req.Body, req.Size, req.MimeType); err != nil {
		s.logger.Error("blob upload failed", "storage_key", key, "error", err)
		return nil, fmt.Errorf("upload %q: %w", req.Name, err)
	}

	file := &models.File{
		Name:       req.Name,
		MimeType:   req.MimeType,
		Size:       req.Size,
		StorageKey: key,
		OwnerID:    actorID,
		FolderID:   req.FolderID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.fileRepo.Create(ctx, file); err != nil {
		s.reaper.reap(ctx, []string{key}, "upload aborted")
		return nil, err
	}

	s.logger.Info("file uploaded",
		"id", file.ID,
		"name", file.Name,
		"size", file.Size,
		"folder_id", file.FolderID,
		"owner_id", actorID,
	)
	return file, nil
}

// GetFile returns the file with the caller's permission on it
func (s *fileService) GetFile(ctx context.Context, actorID, fileID string) (*services.FileAccess, error) {
	return s.gate.GetAccessibleFile(ctx, actorID, fileID)
}

// DownloadFile opens the bytes of a file the caller can see
func (s *fileService) DownloadFile(ctx context.Context, actorID, fileID string) (*models.File, io.ReadCloser, error) {
	access, err := s.gate.GetAccessibleFile(ctx, actorID, fileID)
	if err != nil {
		return nil, nil, err
	}
	return s.open(ctx, access.File)
}

// DownloadPublicFile opens the bytes of a file inside a public link's subtree
func (s *fileService) DownloadPublicFile(ctx context.Context, token, fileID string) (*models.File, io.ReadCloser, error) {
	file, err := s.shares.OpenPublicFile(ctx, token, fileID)
	if err != nil {
		return nil, nil, err
	}
	return s.open(ctx, file)
}

func (s *fileService) open(ctx context.Context, file *models.File) (*models.File, io.ReadCloser, error) {
	body, err := s.blobs.Get(ctx, file.StorageKey)
	if err != nil {
		s.logger.Error("blob read failed", "file_id", file.ID, "storage_key", file.StorageKey, "error", err)
		return nil, nil, fmt.Errorf("open file %s: %w", file.ID, err)
	}
	return file, body, nil
}

// MoveFile moves a file into targetFolderID, or out of any folder when it
// is nil. Only the uploader may move a file and the target must be
// editable by them. The owner never changes.
func (s *fileService) MoveFile(ctx context.Context, actorID, fileID string, targetFolderID *string) (*models.File, error) {
	access, err := s.gate.GetAccessibleFile(ctx, actorID, fileID)
	if err != nil {
		return nil, err
	}
	file := access.File
	if file.OwnerID != actorID {
		return nil, &domain.ForbiddenError{Message: "only the uploader can move this file"}
	}

	if targetFolderID != nil && *targetFolderID == "" {
		targetFolderID = nil
	}
	if targetFolderID != nil {
		if _, err := s.gate.RequirePermission(ctx, actorID, *targetFolderID, models.PermissionEdit); err != nil {
			return nil, err
		}
	}

	file.FolderID = targetFolderID
	file.UpdatedAt = s.now()
	if err := s.fileRepo.Update(ctx, file); err != nil {
		return nil, err
	}

	s.logger.Info("file moved", "id", file.ID, "folder_id", file.FolderID)
	return file, nil
}

// DeleteFile removes a file the caller can edit. The row delete commits
// first; the blob goes afterwards on a best-effort basis.
func (s *fileService) DeleteFile(ctx context.Context, actorID, fileID string) error {
	access, err := s.gate.GetAccessibleFile(ctx, actorID, fileID)
	if err != nil {
		return err
	}
	if !access.Permission.Satisfies(models.PermissionEdit) {
		return &domain.ForbiddenError{Message: "EDIT permission required to delete this file"}
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		return s.fileRepo.Delete(txCtx, fileID)
	})
	if err != nil {
		return err
	}

	orphaned := s.reaper.reap(ctx, []string{access.File.StorageKey}, fmt.Sprintf("file %s deleted", fileID))

	s.logger.Info("file deleted",
		"id", fileID,
		"name", access.File.Name,
		"by", actorID,
		"blob_orphaned", orphaned > 0,
	)
	return nil
}

// ListFiles lists every file the caller uploaded
func (s *fileService) ListFiles(ctx context.Context, ownerID string) ([]models.File, error) {
	return s.fileRepo.ListByOwner(ctx, ownerID)
}
