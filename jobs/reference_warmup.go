package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/hirepurchase/hpadmin/internal/jobs"
	"github.com/hirepurchase/hpadmin/internal/reference"
)

// SnapshotLoader is the part of reference.Service the warmup job needs.
type SnapshotLoader interface {
	Invalidate(ctx context.Context)
	Snapshot(ctx context.Context) (*reference.Snapshot, error)
}

// ReferenceWarmupJob refreshes the cached reference snapshot so template
// downloads do not wait on the backend.
type ReferenceWarmupJob struct {
	Reference SnapshotLoader
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewReferenceWarmupJob wires dependencies for the warmup handler.
func NewReferenceWarmupJob(ref SnapshotLoader, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReferenceWarmupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReferenceWarmupJob{Reference: ref, Logger: logger, Metrics: metrics}
}

// Handle processes TaskReferenceWarmup tasks.
func (j *ReferenceWarmupJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Reference == nil {
		return errors.New("reference warmup: handler not configured")
	}
	tracker := j.Metrics.Track(TaskReferenceWarmup)
	j.Reference.Invalidate(ctx)
	snap, err := j.Reference.Snapshot(ctx)
	if err != nil {
		j.Logger.Error("reference warmup", slog.Any("error", err))
		return tracker.End(err)
	}
	j.Logger.Info("reference warmed",
		slog.Int("branches", len(snap.Branches)),
		slog.Int("customers", len(snap.Customers)),
		slog.Int("products", len(snap.Products)),
	)
	return tracker.End(nil)
}
