// Package seed loads YAML fixtures of users, folder trees, grants and files
// into a fresh deployment.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"foldershare/internal/domain"
	"foldershare/internal/domain/models"
	"foldershare/internal/domain/repositories"
	"foldershare/internal/domain/services"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Fixture is the root of a seed file
type Fixture struct {
	Users   []UserFixture   `yaml:"users"`
	Folders []FolderFixture `yaml:"folders"`
}

// UserFixture describes one account. ID should match the identity
// provider's subject for the user; empty generates one.
type UserFixture struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// FolderFixture describes a folder and everything below it
type FolderFixture struct {
	Name     string          `yaml:"name"`
	Owner    string          `yaml:"owner"` // email
	Shares   []ShareFixture  `yaml:"shares"`
	Public   bool            `yaml:"public"`
	Files    []FileFixture   `yaml:"files"`
	Children []FolderFixture `yaml:"children"`
}

// ShareFixture grants a folder to another user
type ShareFixture struct {
	Email      string `yaml:"email"`
	Permission string `yaml:"permission"`
}

// FileFixture is a small inline file
type FileFixture struct {
	Name     string `yaml:"name"`
	MimeType string `yaml:"mime_type"`
	Content  string `yaml:"content"`
}

// Load parses a fixture, rejecting unknown keys
func Load(r io.Reader) (*Fixture, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var fx Fixture
	if err := decoder.Decode(&fx); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &fx, nil
}

// Summary counts what Apply created
type Summary struct {
	Users       int
	Folders     int
	Files       int
	Shares      int
	PublicLinks []string // tokens
}

// Seeder writes fixtures through the regular services so every permission
// rule applies to seeded data too
type Seeder struct {
	users   repositories.UserRepository
	folders services.FolderService
	files   services.FileService
	shares  services.ShareService
	logger  *slog.Logger
}

// NewSeeder creates a seeder
func NewSeeder(
	users repositories.UserRepository,
	folders services.FolderService,
	files services.FileService,
	shares services.ShareService,
	logger *slog.Logger,
) *Seeder {
	return &Seeder{
		users:   users,
		folders: folders,
		files:   files,
		shares:  shares,
		logger:  logger,
	}
}

// Apply creates every user, then every folder tree. Existing users (same
// email) are reused so a fixture can be applied to a populated database.
func (s *Seeder) Apply(ctx context.Context, fx *Fixture) (*Summary, error) {
	summary := &Summary{}
	ids := make(map[string]string, len(fx.Users))

	for _, u := range fx.Users {
		user, created, err := s.ensureUser(ctx, u)
		if err != nil {
			return summary, err
		}
		ids[strings.ToLower(user.Email)] = user.ID
		if created {
			summary.Users++
		}
	}

	for _, folder := range fx.Folders {
		if err := s.applyFolder(ctx, ids, folder, nil, summary); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

func (s *Seeder) ensureUser(ctx context.Context, u UserFixture) (*models.User, bool, error) {
	existing, err := s.users.GetByEmail(ctx, u.Email)
	if err == nil {
		s.logger.Debug("seed user exists", "email", u.Email, "id", existing.ID)
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, fmt.Errorf("hash password for %s: %w", u.Email, err)
	}

	now := time.Now()
	user := &models.User{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, false, fmt.Errorf("create user %s: %w", u.Email, err)
	}
	s.logger.Info("seeded user", "email", user.Email, "id", user.ID)
	return user, true, nil
}

func (s *Seeder) applyFolder(ctx context.Context, ids map[string]string, fx FolderFixture, parentID *string, summary *Summary) error {
	ownerID, ok := ids[strings.ToLower(fx.Owner)]
	if !ok {
		return fmt.Errorf("folder %q: unknown owner %q", fx.Name, fx.Owner)
	}

	folder, err := s.folders.CreateFolder(ctx, ownerID, &services.CreateFolderRequest{Name: fx.Name, ParentID: parentID})
	if err != nil {
		return fmt.Errorf("create folder %q: %w", fx.Name, err)
	}
	summary.Folders++

	for _, share := range fx.Shares {
		if _, err := s.shares.ShareWithUser(ctx, folder.OwnerID, &services.ShareRequest{
			FolderID:   folder.ID,
			Email:      share.Email,
			Permission: share.Permission,
		}); err != nil {
			return fmt.Errorf("share folder %q with %s: %w", fx.Name, share.Email, err)
		}
		summary.Shares++
	}

	if fx.Public {
		link, err := s.shares.CreatePublicShare(ctx, folder.OwnerID, &services.CreatePublicShareRequest{FolderID: folder.ID})
		if err != nil {
			return fmt.Errorf("publish folder %q: %w", fx.Name, err)
		}
		summary.PublicLinks = append(summary.PublicLinks, link.Token)
	}

	for _, f := range fx.Files {
		if _, err := s.files.UploadFile(ctx, ownerID, &services.UploadFileRequest{
			Name:     f.Name,
			MimeType: f.MimeType,
			Size:     int64(len(f.Content)),
			Body:     strings.NewReader(f.Content),
			FolderID: &folder.ID,
		}); err != nil {
			return fmt.Errorf("upload %q into %q: %w", f.Name, fx.Name, err)
		}
		summary.Files++
	}

	for _, child := range fx.Children {
		if err := s.applyFolder(ctx, ids, child, &folder.ID, summary); err != nil {
			return err
		}
	}
	return nil
}
