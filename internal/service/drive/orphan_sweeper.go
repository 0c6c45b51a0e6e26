package drive

import (
	"context"
	"log/slog"
	"time"

	"foldershare/internal/domain/models"
	"foldershare/internal/domain/repositories"
	"foldershare/internal/domain/services"
	"foldershare/internal/metrics"
)

// defaultSweepBatch bounds how many orphans one sweep retries
const defaultSweepBatch = 100

// OrphanSweeper retries deletion of blobs recorded as orphaned and clears
// the records that succeed
type OrphanSweeper struct {
	orphans   repositories.OrphanRepository
	blobs     services.BlobStore
	batchSize int
	logger    *slog.Logger
}

// NewOrphanSweeper creates a sweeper
func NewOrphanSweeper(orphans repositories.OrphanRepository, blobs services.BlobStore, logger *slog.Logger) *OrphanSweeper {
	return &OrphanSweeper{
		orphans:   orphans,
		blobs:     blobs,
		batchSize: defaultSweepBatch,
		logger:    logger,
	}
}

// ListOrphans returns up to limit recorded orphans, oldest first
func (s *OrphanSweeper) ListOrphans(ctx context.Context, limit int) ([]models.OrphanedBlob, error) {
	return s.orphans.List(ctx, limit)
}

// Sweep makes one pass over the oldest orphans and returns how many were reclaimed
func (s *OrphanSweeper) Sweep(ctx context.Context) (int, error) {
	pending, err := s.orphans.List(ctx, s.batchSize)
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	for _, orphan := range pending {
		if err := s.blobs.Delete(ctx, orphan.StorageKey); err != nil {
			s.logger.Warn("orphan still not deletable", "storage_key", orphan.StorageKey, "error", err)
			continue
		}
		if err := s.orphans.Delete(ctx, orphan.StorageKey); err != nil {
			return reclaimed, err
		}
		reclaimed++
		metrics.OrphansReclaimed.Inc()
	}

	if len(pending) > 0 {
		s.logger.Info("orphan sweep finished", "pending", len(pending), "reclaimed", reclaimed)
	}
	return reclaimed, nil
}

// Run sweeps every interval until ctx is cancelled
func (s *OrphanSweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("orphan sweeper started", "interval", interval)

	for {
		select {
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("orphan sweep failed", "error", err)
			}

		case <-ctx.Done():
			s.logger.Info("orphan sweeper stopped")
			return
		}
	}
}
