package drive

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"foldershare/internal/config"
	"foldershare/internal/domain"
	"foldershare/internal/domain/models"
	"foldershare/internal/domain/repositories"
	"foldershare/internal/domain/services"
	"foldershare/internal/metrics"
)

// cascade accumulates the effects of one recursive delete. It is threaded
// through every level of the recursion alongside the transaction context;
// blob keys are only acted on after the transaction commits.
type cascade struct {
	folders int
	files   int
	keys    []string
}

// deleteTree removes the files of folderID, then each child subtree, then
// the folder row. Siblings are walked one at a time.
func deleteTree(ctx context.Context, folderRepo repositories.FolderRepository, fileRepo repositories.FileRepository, folderID string, depth int, c *cascade) error {
	if depth > config.MaxFolderDepth {
		return fmt.Errorf("folder %s: %w: tree exceeds %d levels", folderID, domain.ErrStorage, config.MaxFolderDepth)
	}

	files, err := fileRepo.ListByFolder(ctx, folderID)
	if err != nil {
		return fmt.Errorf("list files of folder %s: %w", folderID, err)
	}
	for _, f := range files {
		if err := fileRepo.Delete(ctx, f.ID); err != nil {
			return fmt.Errorf("delete file %s: %w", f.ID, err)
		}
		c.files++
		c.keys = append(c.keys, f.StorageKey)
	}

	children, err := folderRepo.ListChildren(ctx, folderID)
	if err != nil {
		return fmt.Errorf("list children of folder %s: %w", folderID, err)
	}
	for _, child := range children {
		if err := deleteTree(ctx, folderRepo, fileRepo, child.ID, depth+1, c); err != nil {
			return err
		}
	}

	if err := folderRepo.Delete(ctx, folderID); err != nil {
		return fmt.Errorf("delete folder %s: %w", folderID, err)
	}
	c.folders++
	return nil
}

// blobReaper deletes blobs whose metadata is already gone. Failures never
// propagate: they are logged, counted and recorded for the orphan sweeper.
type blobReaper struct {
	blobs   services.BlobStore
	orphans repositories.OrphanRepository
	logger  *slog.Logger
}

// reap deletes keys and returns how many could not be removed
func (r *blobReaper) reap(ctx context.Context, keys []string, reason string) int {
	// Metadata is committed; finish cleanup even if the caller went away
	ctx = context.WithoutCancel(ctx)

	failed := 0
	for _, key := range keys {
		err := r.blobs.Delete(ctx, key)
		if err == nil {
			continue
		}

		failed++
		metrics.BlobDeleteFailures.Inc()
		r.logger.Warn("blob delete failed, recording orphan",
			"storage_key", key,
			"reason", reason,
			"error", err,
		)
		orphan := &models.OrphanedBlob{
			StorageKey: key,
			Reason:     fmt.Sprintf("%s: %v", reason, err),
			CreatedAt:  time.Now(),
		}
		if err := r.orphans.Record(ctx, orphan); err != nil {
			r.logger.Error("failed to record orphaned blob", "storage_key", key, "error", err)
		}
	}
	return failed
}
