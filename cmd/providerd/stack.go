package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/neomorfeo/providerhub/internal/adapter/fsm"
	oteladapter "github.com/neomorfeo/providerhub/internal/adapter/otel"
	riveradapter "github.com/neomorfeo/providerhub/internal/adapter/river"
	"github.com/neomorfeo/providerhub/internal/adapter/sqlite"
	"github.com/neomorfeo/providerhub/internal/app"
	"github.com/neomorfeo/providerhub/internal/config"
	"github.com/neomorfeo/providerhub/internal/importer"
)

// stack is the wired application shared by the server and the offline
// commands.
type stack struct {
	db        *sql.DB
	jobs      *riveradapter.Client
	service   *app.ProviderService
	imports   importer.Importer
	lifecycle *fsm.Validator
	telemetry *oteladapter.Providers
}

// buildStack wires telemetry, storage, the event queue, the service and the
// import pipeline. On error everything opened so far is released.
func buildStack(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *stack, err error) {
	var closers []func() error
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				_ = closers[i]()
			}
		}
	}()

	// --- Telemetry ---
	telemetry, err := oteladapter.Setup(ctx, oteladapter.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Environment:    cfg.Telemetry.Environment,
		Exporter:       cfg.Telemetry.Exporter,
		Insecure:       cfg.Telemetry.Insecure(),
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	closers = append(closers, func() error { return telemetry.Shutdown(context.Background()) })

	// --- Adapters (out) ---
	db, err := oteladapter.OpenDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	closers = append(closers, db.Close)

	repo, err := sqlite.NewFromDB(db)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	jobs, err := riveradapter.Setup(ctx, db, cfg.EventWorkers, logger)
	if err != nil {
		return nil, fmt.Errorf("event queue: %w", err)
	}

	publisher, err := oteladapter.NewTracingPublisher(riveradapter.NewPublisher(jobs))
	if err != nil {
		return nil, fmt.Errorf("event publisher: %w", err)
	}

	// --- Application ---
	lifecycle := fsm.New()
	// The raw repository owns the transaction; the River publisher joins it
	// through the context, so a provider write and its event commit together.
	svc := app.NewProviderService(oteladapter.NewTracingRepository(repo), publisher, lifecycle,
		app.WithTransactor(repo),
	)

	pipeline := importer.NewPipeline(svc, svc, importer.WithMaxBytes(cfg.Import.MaxBytes))
	imports, err := oteladapter.NewInstrumentedImporter(pipeline, nil)
	if err != nil {
		return nil, fmt.Errorf("import instrumentation: %w", err)
	}

	return &stack{
		db:        db,
		jobs:      jobs,
		service:   svc,
		imports:   imports,
		lifecycle: lifecycle,
		telemetry: telemetry,
	}, nil
}

// close flushes telemetry and closes the database.
func (s *stack) close(ctx context.Context) error {
	return errors.Join(
		s.telemetry.Shutdown(ctx),
		s.db.Close(),
	)
}
