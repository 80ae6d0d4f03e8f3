// internal/handlers/import.go
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/ammerola/warehouse-crm/internal/adapters/spreadsheet"
	"github.com/ammerola/warehouse-crm/internal/core/ports"
	"github.com/ammerola/warehouse-crm/internal/workers"
)

// JobHandler accepts spreadsheet imports and report requests and reports
// on the background jobs they start
type JobHandler struct {
	responder
	storage     ports.ObjectStorage
	queue       ports.TaskEnqueuer
	inspector   ports.TaskInspector
	maxFileSize int64
}

// NewJobHandler creates a new job handler
func NewJobHandler(storage ports.ObjectStorage, queue ports.TaskEnqueuer, inspector ports.TaskInspector, maxFileSize int64, logger *slog.Logger) *JobHandler {
	return &JobHandler{
		responder:   responder{logger: logger.With(slog.String("handler", "jobs"))},
		storage:     storage,
		queue:       queue,
		inspector:   inspector,
		maxFileSize: maxFileSize,
	}
}

// JobAccepted is returned when a background job has been queued
type JobAccepted struct {
	JobID   string `json:"jobId"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// JobStatus describes a queued, running or finished job
type JobStatus struct {
	JobID       string          `json:"jobId"`
	Type        string          `json:"type"`
	Queue       string          `json:"queue"`
	State       string          `json:"state"`
	Retried     int             `json:"retried"`
	MaxRetry    int             `json:"maxRetry"`
	LastError   string          `json:"lastError,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// ImportExcel handles POST /api/v1/catalog/import/excel
func (h *JobHandler) ImportExcel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+1<<20)
	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		h.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()

	if header.Size > h.maxFileSize {
		h.respondError(w, http.StatusBadRequest, "File is too large")
		return
	}
	if !isWorkbook(header.Filename, header.Header.Get("Content-Type")) {
		h.respondError(w, http.StatusBadRequest, "Only .xlsx files are allowed")
		return
	}

	jobID := uuid.New().String()
	key := workers.ImportPrefix + jobID + ".xlsx"

	if _, err := h.storage.Upload(ctx, key, file, spreadsheet.ContentType); err != nil {
		h.logger.ErrorContext(ctx, "failed to store upload",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to save upload")
		return
	}

	task, err := workers.NewImportTask(workers.ImportPayload{
		JobID:     jobID,
		ObjectKey: key,
		Filename:  header.Filename,
	})
	if err == nil {
		_, err = h.queue.EnqueueContext(ctx, task)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to queue import job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()))
		if delErr := h.storage.Delete(ctx, key); delErr != nil {
			h.logger.WarnContext(ctx, "failed to remove orphaned upload",
				slog.String("key", key),
				slog.String("error", delErr.Error()))
		}
		h.respondError(w, http.StatusInternalServerError, "Failed to queue import job")
		return
	}

	h.logger.InfoContext(ctx, "Excel import queued",
		slog.String("job_id", jobID),
		slog.String("filename", header.Filename))

	h.respondJSON(w, http.StatusAccepted, JobAccepted{
		JobID:   jobID,
		Status:  "queued",
		Message: "Excel import has been queued for processing",
	})
}

// RequestLowStockReport handles POST /api/v1/catalog/low-stock/report
func (h *JobHandler) RequestLowStockReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := uuid.New().String()

	task, err := workers.NewReportTask(workers.ReportPayload{
		JobID:       jobID,
		RequestedBy: r.Header.Get("X-User-ID"),
	})
	if err == nil {
		_, err = h.queue.EnqueueContext(ctx, task)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to queue report job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to queue report job")
		return
	}

	h.logger.InfoContext(ctx, "low stock report queued", slog.String("job_id", jobID))

	h.respondJSON(w, http.StatusAccepted, JobAccepted{
		JobID:   jobID,
		Status:  "queued",
		Message: "Low stock report has been queued for processing",
	})
}

// GetJobStatus handles GET /api/v1/catalog/jobs/{id}
func (h *JobHandler) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	jobID := r.PathValue("id")
	if _, err := uuid.Parse(jobID); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid job ID format")
		return
	}

	for _, queue := range workers.Queues {
		info, err := h.inspector.GetTaskInfo(queue, jobID)
		if err != nil {
			if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
				continue
			}
			h.logger.ErrorContext(ctx, "failed to inspect job",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()))
			h.respondError(w, http.StatusInternalServerError, "Failed to retrieve job status")
			return
		}
		h.respondJSON(w, http.StatusOK, toJobStatus(info))
		return
	}

	h.respondError(w, http.StatusNotFound, "Job not found")
}

func toJobStatus(info *asynq.TaskInfo) JobStatus {
	status := JobStatus{
		JobID:     info.ID,
		Type:      info.Type,
		Queue:     info.Queue,
		State:     info.State.String(),
		Retried:   info.Retried,
		MaxRetry:  info.MaxRetry,
		LastError: info.LastErr,
	}
	if !info.CompletedAt.IsZero() {
		completed := info.CompletedAt
		status.CompletedAt = &completed
	}
	if len(info.Result) > 0 && json.Valid(info.Result) {
		status.Result = json.RawMessage(info.Result)
	}
	return status
}

func isWorkbook(filename, contentType string) bool {
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		return true
	}
	return contentType == spreadsheet.ContentType
}
