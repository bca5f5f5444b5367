package river

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riversqlite"
	"github.com/riverqueue/river/rivermigrate"
)

// DefaultMaxWorkers is used when Setup is given a non-positive worker count.
const DefaultMaxWorkers = 2

// Setup runs River's migrations on db and returns a client with the
// lifecycle worker registered. The caller starts and stops the client.
func Setup(ctx context.Context, db *sql.DB, maxWorkers int, logger *slog.Logger) (*Client, error) {
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}

	driver := riversqlite.New(db)

	// River keeps its own tables (river_job, river_leader, ...) next to the
	// providers table; they are migrated separately from goose.
	migrator, err := rivermigrate.New(driver, nil)
	if err != nil {
		return nil, fmt.Errorf("creating river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return nil, fmt.Errorf("running river migrations: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewLifecycleWorker(logger))

	client, err := river.NewClient(driver, &river.Config{
		Logger: logger,
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: maxWorkers},
		},
		Workers: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("creating river client: %w", err)
	}

	return client, nil
}
