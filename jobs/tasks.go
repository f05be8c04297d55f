package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskImportExecute submits an uploaded import session to the backend.
	TaskImportExecute = "import:execute"
	// TaskReferenceWarmup reloads the reference snapshot cache.
	TaskReferenceWarmup = "reference:warmup"
)

// importTaskTimeout bounds one batch run; rows are paced by the backend rate limit.
const importTaskTimeout = 6 * time.Hour

// ImportExecutePayload identifies the session to execute.
type ImportExecutePayload struct {
	SessionID string `json:"session_id"`
}

// NewImportExecuteTask constructs an Asynq task. The session id doubles as the
// task id so a session cannot be queued twice.
func NewImportExecuteTask(payload ImportExecutePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskImportExecute, data,
		asynq.TaskID("import:"+payload.SessionID),
		asynq.MaxRetry(3),
		asynq.Timeout(importTaskTimeout),
	), nil
}

// NewReferenceWarmupTask constructs the periodic cache warmup task.
func NewReferenceWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskReferenceWarmup, nil, asynq.MaxRetry(1))
}
