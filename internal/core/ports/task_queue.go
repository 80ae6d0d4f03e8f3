// internal/core/ports/task_queue.go
package ports

import (
	"context"

	"github.com/hibiken/asynq"
)

// TaskEnqueuer is the subset of *asynq.Client used by the HTTP handlers
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskInspector is the subset of *asynq.Inspector used to report job status
type TaskInspector interface {
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
}
