package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/hirepurchase/hpadmin/internal/importer"
	jobmetrics "github.com/hirepurchase/hpadmin/internal/jobs"
)

// ImportExecutor is the part of importer.Service the job needs.
type ImportExecutor interface {
	Execute(ctx context.Context, id string, progress importer.ProgressFunc) (*importer.Session, error)
}

// ImportExecuteJob runs queued import sessions.
type ImportExecuteJob struct {
	Imports ImportExecutor
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewImportExecuteJob wires dependencies for the import handler.
func NewImportExecuteJob(imports ImportExecutor, logger *slog.Logger, metrics *jobmetrics.Metrics) *ImportExecuteJob {
	return &ImportExecuteJob{Imports: imports, Logger: logger, Metrics: metrics}
}

// Handle processes TaskImportExecute tasks.
func (j *ImportExecuteJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Imports == nil {
		return errors.New("import execute: handler not configured")
	}
	var payload ImportExecutePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.SessionID == "" {
		return fmt.Errorf("import execute: bad payload: %w", asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskImportExecute)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger().With(slog.String("session", payload.SessionID))
	logger.Info("starting import")
	sess, err := j.Imports.Execute(ctx, payload.SessionID, func(msg string) {
		logger.Info("import progress", slog.String("step", msg))
	})
	switch {
	case errors.Is(err, importer.ErrSessionNotFound),
		errors.Is(err, importer.ErrNotImportable),
		errors.Is(err, importer.ErrAlreadyExecuted):
		logger.Warn("import skipped", slog.Any("error", err))
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	case err != nil && sess != nil && sess.Status == importer.StatusValidated:
		// Aborted before any row was created; the claim was released.
		logger.Warn("import aborted, will retry", slog.Any("error", err))
		return err
	case err != nil:
		// The session is claimed, so a retry would only report it as executed.
		logger.Error("import failed", slog.Any("error", err))
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	logger.Info("import finished",
		slog.Int("created", sess.Result.Created()),
		slog.Int("failed", sess.Result.Failed()),
	)
	return nil
}

func (j *ImportExecuteJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
