// internal/workers/tasks.go
package workers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeCatalogImport  = "catalog:import"
	TypeLowStockReport = "catalog:low_stock_report"
	TypeCleanupObjects = "cleanup:objects"
)

// Queue names, matching the priorities configured for the worker server
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// Object key prefixes
const (
	ImportPrefix = "imports/"
	ReportPrefix = "reports/low-stock/"
)

// Queues lists every queue a job can land on
var Queues = []string{QueueCritical, QueueDefault, QueueLow}

// ImportPayload is the payload of a catalog import job
type ImportPayload struct {
	JobID     string `json:"job_id"`
	ObjectKey string `json:"object_key"`
	Filename  string `json:"filename,omitempty"`
}

// ImportResult is written as the task result of an import job
type ImportResult struct {
	Created        int        `json:"created"`
	Duplicates     []string   `json:"duplicates,omitempty"`
	Invalid        []RowIssue `json:"invalid,omitempty"`
	ProcessingTime string     `json:"processing_time"`
}

// RowIssue is a spreadsheet row that was not imported
type RowIssue struct {
	Row     int    `json:"row"`
	SKU     string `json:"sku,omitempty"`
	Message string `json:"message"`
}

// ReportPayload is the payload of a low-stock report job
type ReportPayload struct {
	JobID       string `json:"job_id"`
	RequestedBy string `json:"requested_by,omitempty"`
}

// ReportResult is written as the task result of a report job
type ReportResult struct {
	ObjectKey   string    `json:"object_key"`
	DownloadURL string    `json:"download_url"`
	ItemCount   int       `json:"item_count"`
	GeneratedAt time.Time `json:"generated_at"`
}

// NewImportTask builds an import task whose asynq id is the job id
func NewImportTask(p ImportPayload) (*asynq.Task, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal import payload: %w", err)
	}
	return asynq.NewTask(TypeCatalogImport, b,
		asynq.TaskID(p.JobID),
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(3),
		asynq.Retention(24*time.Hour)), nil
}

// NewReportTask builds a low-stock report task whose asynq id is the job id
func NewReportTask(p ReportPayload) (*asynq.Task, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report payload: %w", err)
	}
	return asynq.NewTask(TypeLowStockReport, b,
		asynq.TaskID(p.JobID),
		asynq.Queue(QueueLow),
		asynq.MaxRetry(2),
		asynq.Retention(24*time.Hour)), nil
}

// NewCleanupTask builds the periodic object cleanup task
func NewCleanupTask() *asynq.Task {
	return asynq.NewTask(TypeCleanupObjects, nil,
		asynq.Queue(QueueLow),
		asynq.MaxRetry(1),
		asynq.Unique(time.Hour))
}

// writeResult stores a JSON result when the task runs under a server
func writeResult(t *asynq.Task, v any) error {
	rw := t.ResultWriter()
	if rw == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal task result: %w", err)
	}
	if _, err := rw.Write(b); err != nil {
		return fmt.Errorf("failed to write task result: %w", err)
	}
	return nil
}
