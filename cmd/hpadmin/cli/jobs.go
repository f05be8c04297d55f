package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hibiken/asynq"

	"github.com/hirepurchase/hpadmin/jobs"
)

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string) (*JobsCLI, error) {
	if redisAddr == "" {
		return nil, errors.New("jobs cli: redis address required")
	}
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: redisAddr})
	return &JobsCLI{client: client, inspector: inspector}, nil
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// Trigger enqueues a supported job by name. import:execute needs the session id
// as its argument.
func (c *JobsCLI) Trigger(ctx context.Context, name, arg string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	var task *asynq.Task
	switch name {
	case jobs.TaskReferenceWarmup:
		task = jobs.NewReferenceWarmupTask()
	case jobs.TaskImportExecute:
		if arg == "" {
			return nil, errors.New("jobs cli: import:execute needs a session id")
		}
		var err error
		task, err = jobs.NewImportExecuteTask(jobs.ImportExecutePayload{SessionID: arg})
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueDefault))
}

// Inspector exposes the queue inspector for StatsCommand.
func (c *JobsCLI) Inspector() jobs.QueueInspector {
	if c == nil || c.inspector == nil {
		return nil
	}
	return c.inspector
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue(ctx context.Context) (jobs.QueueStats, error) {
	if c == nil || c.inspector == nil {
		return jobs.QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	return jobs.Stats(c.inspector)
}

// ListScheduled returns scheduled task infos for observability.
func (c *JobsCLI) ListScheduled(ctx context.Context, size int) ([]*asynq.TaskInfo, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	if size <= 0 {
		size = 10
	}
	return c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
}

// StatsOptions configures the jobs stats command.
type StatsOptions struct {
	Inspector  jobs.QueueInspector
	JSONOutput bool
	IO
}

// StatsCommand prints the default queue statistics.
func StatsCommand(opts StatsOptions) int {
	opts.IO = opts.IO.withDefaults()
	if opts.Inspector == nil {
		fmt.Fprintln(opts.Stderr, "jobs: inspector not configured")
		return ExitFailure
	}
	stats, err := jobs.Stats(opts.Inspector)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "jobs: %v\n", err)
		return ExitFailure
	}
	if opts.JSONOutput {
		if err := writeJSON(opts.Stdout, stats); err != nil {
			fmt.Fprintf(opts.Stderr, "jobs: %v\n", err)
			return ExitFailure
		}
		return ExitOK
	}
	renderStatsHuman(opts.Stdout, stats)
	return ExitOK
}

func renderStatsHuman(out io.Writer, s jobs.QueueStats) {
	fmt.Fprintf(out, "Queue %s (paused=%t)\n", s.Queue, s.Paused)
	fmt.Fprintf(out, "  pending   %d\n", s.Pending)
	fmt.Fprintf(out, "  active    %d\n", s.Active)
	fmt.Fprintf(out, "  retry     %d\n", s.Retry)
	fmt.Fprintf(out, "  archived  %d\n", s.Archived)
	fmt.Fprintf(out, "  processed %d\n", s.Processed)
	fmt.Fprintf(out, "  failed    %d\n", s.Failed)
}
