package river

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
)

// LifecycleWorker writes the audit trail of provider lifecycle events.
type LifecycleWorker struct {
	river.WorkerDefaults[LifecycleEventArgs]
	logger *slog.Logger
}

// NewLifecycleWorker creates a worker logging to logger.
func NewLifecycleWorker(logger *slog.Logger) *LifecycleWorker {
	return &LifecycleWorker{logger: logger}
}

// Work records one lifecycle event.
func (w *LifecycleWorker) Work(ctx context.Context, job *river.Job[LifecycleEventArgs]) error {
	w.logger.InfoContext(ctx, "provider lifecycle event",
		"event", job.Args.Event,
		"provider_id", job.Args.ProviderID,
		"provider_name", job.Args.Name,
		"status", job.Args.Status,
		"actor_id", job.Args.ActorID,
		"public", job.Args.PublicVisible,
		"occurred_at", job.Args.OccurredAt,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}
