// internal/workers/import_processor.go
package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/warehouse-crm/internal/adapters/spreadsheet"
	"github.com/ammerola/warehouse-crm/internal/adapters/storage"
	"github.com/ammerola/warehouse-crm/internal/core/domain"
	"github.com/ammerola/warehouse-crm/internal/core/ports"
)

// ImportProcessor creates catalog records from an uploaded workbook
type ImportProcessor struct {
	service ports.CatalogService
	storage ports.ObjectStorage
	logger  *slog.Logger
}

// NewImportProcessor creates a new import processor
func NewImportProcessor(service ports.CatalogService, storage ports.ObjectStorage, logger *slog.Logger) *ImportProcessor {
	return &ImportProcessor{
		service: service,
		storage: storage,
		logger:  logger.With(slog.String("processor", "catalog_import")),
	}
}

// ProcessImport handles TypeCatalogImport. Rows whose SKU already exists are
// reported as duplicates, so a retried job does not create records twice.
func (p *ImportProcessor) ProcessImport(ctx context.Context, t *asynq.Task) error {
	start := time.Now()

	var payload ImportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	log := p.logger.With(
		slog.String("job_id", payload.JobID),
		slog.String("object_key", payload.ObjectKey))
	log.InfoContext(ctx, "processing catalog import")

	data, err := p.storage.Download(ctx, payload.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return fmt.Errorf("import file missing: %v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("failed to download import file: %w", err)
	}

	rows, rowErrs, err := spreadsheet.ReadCatalog(data)
	if err != nil {
		return fmt.Errorf("failed to parse workbook: %v: %w", err, asynq.SkipRetry)
	}

	result := ImportResult{}
	for _, re := range rowErrs {
		result.Invalid = append(result.Invalid, RowIssue{Row: re.Row, Message: re.Message})
	}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, err := p.service.Create(ctx, row.Input)
		switch {
		case err == nil:
			result.Created++
		case errors.Is(err, domain.ErrDuplicateKey):
			result.Duplicates = append(result.Duplicates, row.Input.SKU)
		case errors.Is(err, domain.ErrValidation):
			result.Invalid = append(result.Invalid, RowIssue{Row: row.Row, SKU: row.Input.SKU, Message: err.Error()})
		default:
			return fmt.Errorf("failed to import row %d: %w", row.Row, err)
		}
	}

	result.ProcessingTime = time.Since(start).String()
	if err := writeResult(t, result); err != nil {
		log.WarnContext(ctx, "failed to store import result", slog.String("error", err.Error()))
	}

	if err := p.storage.Delete(ctx, payload.ObjectKey); err != nil {
		log.WarnContext(ctx, "failed to remove import file", slog.String("error", err.Error()))
	}

	log.InfoContext(ctx, "catalog import completed",
		slog.Int("created", result.Created),
		slog.Int("duplicates", len(result.Duplicates)),
		slog.Int("invalid", len(result.Invalid)),
		slog.String("processing_time", result.ProcessingTime))

	return nil
}
