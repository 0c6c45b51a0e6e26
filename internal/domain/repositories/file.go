package repositories

import (
	"context"

	"foldershare/internal/domain/models"
)

// FileRepository defines data access operations for file metadata
type FileRepository interface {
	Create(ctx context.Context, file *models.File) error
	GetByID(ctx context.Context, id string) (*models.File, error)

	// Update persists name and folder changes; owner and storage key are immutable
	Update(ctx context.Context, file *models.File) error

	Delete(ctx context.Context, id string) error
	ListByFolder(ctx context.Context, folderID string) ([]models.File, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.File, error)
}
