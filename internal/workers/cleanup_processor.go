// internal/workers/cleanup_processor.go
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/warehouse-crm/internal/core/ports"
)

// CleanupProcessor handles cleanup tasks
type CleanupProcessor struct {
	storage ports.ObjectStorage
	maxAge  time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// NewCleanupProcessor creates a new cleanup processor
func NewCleanupProcessor(storage ports.ObjectStorage, maxAge time.Duration, logger *slog.Logger) *CleanupProcessor {
	return &CleanupProcessor{
		storage: storage,
		maxAge:  maxAge,
		now:     time.Now,
		logger:  logger.With(slog.String("processor", "cleanup")),
	}
}

// CleanupObjects removes import uploads and reports older than maxAge
func (p *CleanupProcessor) CleanupObjects(ctx context.Context, _ *asynq.Task) error {
	cutoff := p.now().Add(-p.maxAge)

	var deleted, failed int
	for _, prefix := range []string{ImportPrefix, ReportPrefix} {
		objects, err := p.storage.List(ctx, prefix)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", prefix, err)
		}

		for _, obj := range objects {
			if !obj.LastModified.Before(cutoff) {
				continue
			}
			if err := p.storage.Delete(ctx, obj.Key); err != nil {
				failed++
				p.logger.WarnContext(ctx, "failed to delete object",
					slog.String("key", obj.Key),
					slog.String("error", err.Error()))
				continue
			}
			deleted++
		}
	}

	p.logger.InfoContext(ctx, "expired objects cleaned up",
		slog.Int("objects_deleted", deleted),
		slog.Int("objects_failed", failed))

	return nil
}
