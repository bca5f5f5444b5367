package otel

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/providerhub/internal/domain"
	"github.com/neomorfeo/providerhub/internal/importer"
)

// InstrumentedImporter wraps an importer.Importer with a span per call and
// counters for runs and row outcomes.
type InstrumentedImporter struct {
	next   importer.Importer
	tracer trace.Tracer
	runs   metric.Int64Counter
	rows   metric.Int64Counter
}

var _ importer.Importer = (*InstrumentedImporter)(nil)

// NewInstrumentedImporter creates the decorator. A nil meter provider
// selects the global one.
func NewInstrumentedImporter(next importer.Importer, mp metric.MeterProvider) (*InstrumentedImporter, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	runs, err := meter.Int64Counter("providerhub.import.runs",
		metric.WithDescription("Import and preview calls, by mode and result."),
	)
	if err != nil {
		return nil, err
	}
	rows, err := meter.Int64Counter("providerhub.import.rows",
		metric.WithDescription("Imported rows, by mode and outcome."),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedImporter{
		next:   next,
		tracer: otel.Tracer(instrumentationName),
		runs:   runs,
		rows:   rows,
	}, nil
}

func (i *InstrumentedImporter) Import(ctx context.Context, actor domain.Actor, upload importer.Upload) (importer.Report, error) {
	ctx, span := i.start(ctx, "Importer.Import", upload)
	report, err := i.next.Import(ctx, actor, upload)
	i.record(ctx, span, "import", report, err)
	return report, err
}

func (i *InstrumentedImporter) Preview(ctx context.Context, upload importer.Upload) (importer.Report, error) {
	ctx, span := i.start(ctx, "Importer.Preview", upload)
	report, err := i.next.Preview(ctx, upload)
	i.record(ctx, span, "preview", report, err)
	return report, err
}

func (i *InstrumentedImporter) start(ctx context.Context, name string, upload importer.Upload) (context.Context, trace.Span) {
	return i.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("import.filename", upload.Filename),
		attribute.Int64("import.size", upload.Size),
	))
}

func (i *InstrumentedImporter) record(ctx context.Context, span trace.Span, mode string, report importer.Report, err error) {
	modeAttr := attribute.String("import.mode", mode)

	result := "ok"
	var fatal *domain.FatalImportError
	switch {
	case errors.As(err, &fatal):
		result = "fatal"
		span.SetAttributes(attribute.String("import.fatal_kind", string(fatal.Kind)))
	case err != nil:
		result = "error"
	}
	i.runs.Add(ctx, 1, metric.WithAttributes(modeAttr, attribute.String("result", result)))

	if err == nil {
		span.SetAttributes(
			attribute.Int("import.imported", report.Imported),
			attribute.Int("import.skipped_blank", report.SkippedBlank),
			attribute.Int("import.errors", report.ErrorCount()),
		)
		for outcome, n := range map[string]int{
			"imported":      report.Imported,
			"skipped_blank": report.SkippedBlank,
			"error":         report.ErrorCount(),
		} {
			if n > 0 {
				i.rows.Add(ctx, int64(n), metric.WithAttributes(modeAttr, attribute.String("outcome", outcome)))
			}
		}
	}

	finish(span, err)
}
