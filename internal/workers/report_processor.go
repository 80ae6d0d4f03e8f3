// internal/workers/report_processor.go
package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/warehouse-crm/internal/adapters/spreadsheet"
	"github.com/ammerola/warehouse-crm/internal/core/ports"
)

// ReportProcessor renders the low-stock list into a workbook and uploads it
type ReportProcessor struct {
	service    ports.CatalogService
	storage    ports.ObjectStorage
	linkExpiry time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// NewReportProcessor creates a new report processor
func NewReportProcessor(service ports.CatalogService, storage ports.ObjectStorage, linkExpiry time.Duration, logger *slog.Logger) *ReportProcessor {
	return &ReportProcessor{
		service:    service,
		storage:    storage,
		linkExpiry: linkExpiry,
		now:        time.Now,
		logger:     logger.With(slog.String("processor", "low_stock_report")),
	}
}

// ProcessLowStockReport handles TypeLowStockReport
func (p *ReportProcessor) ProcessLowStockReport(ctx context.Context, t *asynq.Task) error {
	var payload ReportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	records, err := p.service.LowStock(ctx)
	if err != nil {
		return fmt.Errorf("failed to load low stock records: %w", err)
	}

	workbook, err := spreadsheet.WriteCatalog("Low Stock", records)
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	generatedAt := p.now().UTC()
	key := fmt.Sprintf("%s%s_%s.xlsx", ReportPrefix, generatedAt.Format("20060102_150405"), payload.JobID)

	if _, err := p.storage.Upload(ctx, key, bytes.NewReader(workbook), spreadsheet.ContentType); err != nil {
		return fmt.Errorf("failed to upload report: %w", err)
	}

	link, err := p.storage.PresignedURL(ctx, key, p.linkExpiry)
	if err != nil {
		return fmt.Errorf("failed to sign report link: %w", err)
	}

	result := ReportResult{
		ObjectKey:   key,
		DownloadURL: link,
		ItemCount:   len(records),
		GeneratedAt: generatedAt,
	}
	if err := writeResult(t, result); err != nil {
		p.logger.WarnContext(ctx, "failed to store report result", slog.String("error", err.Error()))
	}

	p.logger.InfoContext(ctx, "low stock report generated",
		slog.String("job_id", payload.JobID),
		slog.String("object_key", key),
		slog.Int("item_count", len(records)))

	return nil
}
