// Package sharing manages per-user folder grants and anonymous public links.
package sharing

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"foldershare/internal/config"
	"foldershare/internal/domain"
	"foldershare/internal/domain/models"
	"foldershare/internal/domain/repositories"
	"foldershare/internal/domain/services"
	"foldershare/internal/service/auth"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// maxTokenAttempts bounds regeneration when a token collides
const maxTokenAttempts = 3

// Options tunes public link behaviour
type Options struct {
	// LinkTTL is the default lifetime of a new public link; 0 never expires
	LinkTTL   time.Duration
	CacheSize int
	CacheTTL  time.Duration
}

type shareService struct {
	userRepo   repositories.UserRepository
	folderRepo repositories.FolderRepository
	fileRepo   repositories.FileRepository
	shareRepo  repositories.ShareRepository
	publicRepo repositories.PublicShareRepository
	txManager  repositories.TransactionManager
	resolver   *auth.PermissionResolver
	gate       *auth.Gate
	tokens     *tokenCache
	linkTTL    time.Duration
	newToken   func() (string, error)
	now        func() time.Time
	logger     *slog.Logger
}

// NewShareService creates the share manager
func NewShareService(
	repos *repositories.Set,
	resolver *auth.PermissionResolver,
	gate *auth.Gate,
	opts Options,
	logger *slog.Logger,
) services.ShareService {
	return &shareService{
		userRepo:   repos.Users,
		folderRepo: repos.Folders,
		fileRepo:   repos.Files,
		shareRepo:  repos.Shares,
		publicRepo: repos.PublicShares,
		txManager:  repos.Tx,
		resolver:   resolver,
		gate:       gate,
		tokens:     newTokenCache(opts.CacheSize, opts.CacheTTL),
		linkTTL:    opts.LinkTTL,
		newToken:   generateToken,
		now:        time.Now,
		logger:     logger,
	}
}

// generateToken returns config.PublicTokenBytes of crypto randomness, hex encoded
func generateToken() (string, error) {
	buf := make([]byte, config.PublicTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ShareWithUser grants READ or EDIT on a folder to the user with the given email
func (s *shareService) ShareWithUser(ctx context.Context, actorID string, req *services.ShareRequest) (*models.SharedFolder, error) {
	folder, err := s.gate.RequireFolderOwner(ctx, actorID, req.FolderID)
	if err != nil {
		return nil, err
	}

	if err := validation.ValidateStruct(req,
		validation.Field(&req.Email, validation.Required, is.EmailFormat),
		validation.Field(&req.Permission, validation.Required),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	perm, err := models.ParseGrantPermission(req.Permission)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("no user with email %s", req.Email)}
		}
		return nil, err
	}
	if user.ID == folder.OwnerID {
		return nil, &domain.ValidationError{Message: "cannot share a folder with its owner"}
	}

	grant := &models.SharedFolder{
		FolderID:   folder.ID,
		UserID:     user.ID,
		Permission: perm,
		CreatedAt:  s.now(),
	}
	if err := s.shareRepo.CreateGrant(ctx, grant); err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	grant.User = user

	s.logger.Info("folder shared",
		"folder_id", folder.ID,
		"user_id", user.ID,
		"permission", perm.String(),
	)
	return grant, nil
}

// UpdatePermission changes an existing grant's level
func (s *shareService) UpdatePermission(ctx context.Context, actorID string, req *services.UpdatePermissionRequest) (int64, error) {
	if req.TargetUserID == actorID {
		return 0, &domain.ValidationError{Message: "cannot change your own permission"}
	}
	if _, err := s.gate.RequireFolderOwner(ctx, actorID, req.FolderID); err != nil {
		return 0, err
	}
	perm, err := models.ParseGrantPermission(req.Permission)
	if err != nil {
		return 0, err
	}

	rows, err := s.shareRepo.UpdateGrantPermission(ctx, req.FolderID, req.TargetUserID, perm)
	if err != nil {
		return 0, err
	}

	s.logger.Info("share permission updated",
		"folder_id", req.FolderID,
		"user_id", req.TargetUserID,
		"permission", perm.String(),
		"rows", rows,
	)
	return rows, nil
}

// RemoveShare deletes a grant and reports whether one existed
func (s *shareService) RemoveShare(ctx context.Context, actorID, folderID, targetUserID string) (bool, error) {
	if targetUserID == actorID {
		return false, &domain.ValidationError{Message: "cannot remove your own access"}
	}
	if _, err := s.gate.RequireFolderOwner(ctx, actorID, folderID); err != nil {
		return false, err
	}

	rows, err := s.shareRepo.DeleteGrant(ctx, folderID, targetUserID)
	if err != nil {
		return false, err
	}

	s.logger.Info("share removed", "folder_id", folderID, "user_id", targetUserID, "removed", rows > 0)
	return rows > 0, nil
}

// ListSharedUsers lists the grants on a folder (owner only)
func (s *shareService) ListSharedUsers(ctx context.Context, actorID, folderID string) ([]models.SharedFolder, error) {
	if _, err := s.gate.RequireFolderOwner(ctx, actorID, folderID); err != nil {
		return nil, err
	}
	return s.shareRepo.ListGrantsForFolder(ctx, folderID)
}

// ListFoldersSharedWithUser lists the folders other users shared with userID
func (s *shareService) ListFoldersSharedWithUser(ctx context.Context, userID string) ([]models.SharedFolder, error) {
	return s.shareRepo.ListGrantsForUser(ctx, userID)
}

// CreatePublicShare creates or replaces the folder's public link (owner only)
func (s *shareService) CreatePublicShare(ctx context.Context, actorID string, req *services.CreatePublicShareRequest) (*models.PublicFolderShare, error) {
	if _, err := s.gate.RequireFolderOwner(ctx, actorID, req.FolderID); err != nil {
		return nil, err
	}

	ttl := req.ExpiresIn
	if ttl == 0 && req.ExpiresInSeconds != 0 {
		ttl = time.Duration(req.ExpiresInSeconds) * time.Second
	}
	if ttl < 0 {
		return nil, &domain.ValidationError{Message: "expiry must be in the future"}
	}
	if ttl == 0 {
		ttl = s.linkTTL
	}

	now := s.now()
	share := &models.PublicFolderShare{FolderID: req.FolderID, CreatedAt: now}
	if ttl > 0 {
		expiresAt := now.Add(ttl)
		share.ExpiresAt = &expiresAt
	}

	var replaced string
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		token, err := s.uniqueToken(txCtx)
		if err != nil {
			return err
		}
		share.Token = token

		existing, err := s.publicRepo.GetByFolder(txCtx, req.FolderID)
		switch {
		case err == nil:
			replaced = existing.Token
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		return s.publicRepo.Upsert(txCtx, share)
	})
	if err != nil {
		return nil, err
	}
	s.tokens.remove(replaced)

	s.logger.Info("public link created",
		"folder_id", req.FolderID,
		"expires_at", share.ExpiresAt,
		"replaced", replaced != "",
	)
	return share, nil
}

// uniqueToken draws tokens until one is unused
func (s *shareService) uniqueToken(ctx context.Context) (string, error) {
	for range maxTokenAttempts {
		token, err := s.newToken()
		if err != nil {
			return "", err
		}
		_, err = s.publicRepo.GetByToken(ctx, token)
		if errors.Is(err, domain.ErrNotFound) {
			return token, nil
		}
		if err != nil {
			return "", err
		}
		s.logger.Warn("public link token collision, regenerating")
	}
	return "", &domain.ConflictError{
		Message:      "could not generate a unique public link token",
		ResourceType: "public_link",
	}
}

// RevokePublicShare deletes the folder's public link (owner only)
func (s *shareService) RevokePublicShare(ctx context.Context, actorID, folderID string) (bool, error) {
	if _, err := s.gate.RequireFolderOwner(ctx, actorID, folderID); err != nil {
		return false, err
	}

	existing, err := s.publicRepo.GetByFolder(ctx, folderID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}

	rows, err := s.publicRepo.DeleteByFolder(ctx, folderID)
	if err != nil {
		return false, err
	}
	if existing != nil {
		s.tokens.remove(existing.Token)
	}

	s.logger.Info("public link revoked", "folder_id", folderID, "removed", rows > 0)
	return rows > 0, nil
}

// GetPublicShare returns the folder's current public link (owner only)
func (s *shareService) GetPublicShare(ctx context.Context, actorID, folderID string) (*models.PublicFolderShare, error) {
	if _, err := s.gate.RequireFolderOwner(ctx, actorID, folderID); err != nil {
		return nil, err
	}
	return s.publicRepo.GetByFolder(ctx, folderID)
}

// ResolvePublicShare returns the shared root folder for a valid, unexpired token
func (s *shareService) ResolvePublicShare(ctx context.Context, token string) (*models.Folder, error) {
	share, err := s.lookupToken(ctx, token)
	if err != nil {
		return nil, err
	}
	folder, err := s.folderRepo.GetByID(ctx, share.FolderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.tokens.remove(token)
		}
		return nil, err
	}
	return folder, nil
}

// lookupToken finds the link for token, enforcing expiry on every path
func (s *shareService) lookupToken(ctx context.Context, token string) (*models.PublicFolderShare, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, &domain.NotFoundError{Message: "public link not found"}
	}

	share, ok := s.tokens.get(token)
	if !ok {
		found, err := s.publicRepo.GetByToken(ctx, token)
		if err != nil {
			return nil, err
		}
		share = *found
	}

	if share.Expired(s.now()) {
		s.tokens.remove(token)
		return nil, &domain.NotFoundError{Message: "public link has expired"}
	}
	if !ok {
		s.tokens.add(share)
	}
	return &share, nil
}

// OpenPublicFolder returns a folder in the token's subtree with READ
// permission. The breadcrumb starts at the shared root.
func (s *shareService) OpenPublicFolder(ctx context.Context, token, folderID string) (*services.FolderAccess, error) {
	share, err := s.lookupToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if folderID == "" {
		folderID = share.FolderID
	}

	inside, err := s.resolver.IsDescendant(ctx, folderID, share.FolderID)
	if err != nil {
		return nil, err
	}
	if !inside {
		return nil, &domain.ForbiddenError{Message: "folder is outside the shared folder"}
	}

	access, err := s.gate.OpenFolder(ctx, folderID, models.PermissionRead)
	if err != nil {
		return nil, err
	}
	for i, f := range access.Breadcrumb {
		if f.ID == share.FolderID {
			access.Breadcrumb = access.Breadcrumb[i:]
			break
		}
	}
	return access, nil
}

// OpenPublicFile returns a file in the token's subtree. Unfiled files are
// never reachable through a link.
func (s *shareService) OpenPublicFile(ctx context.Context, token, fileID string) (*models.File, error) {
	share, err := s.lookupToken(ctx, token)
	if err != nil {
		return nil, err
	}

	file, err := s.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.FolderID == nil {
		return nil, &domain.ForbiddenError{Message: "file is outside the shared folder"}
	}

	inside, err := s.resolver.IsDescendant(ctx, *file.FolderID, share.FolderID)
	if err != nil {
		return nil, err
	}
	if !inside {
		return nil, &domain.ForbiddenError{Message: "file is outside the shared folder"}
	}
	return file, nil
}
