package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/providerhub/internal/domain"
)

// TracingRepository wraps a domain.ProviderRepository with OpenTelemetry
// tracing. Each method creates a span with provider attributes and records
// errors.
type TracingRepository struct {
	next   domain.ProviderRepository
	tracer trace.Tracer
}

// Compile-time check: TracingRepository implements domain.ProviderRepository.
var _ domain.ProviderRepository = (*TracingRepository)(nil)

// NewTracingRepository creates a tracing decorator around the given repository.
func NewTracingRepository(next domain.ProviderRepository) *TracingRepository {
	return &TracingRepository{
		next:   next,
		tracer: otel.Tracer(instrumentationName),
	}
}

func (r *TracingRepository) Create(ctx context.Context, p domain.Provider) (err error) {
	ctx, span := r.tracer.Start(ctx, "ProviderRepository.Create",
		trace.WithAttributes(
			attribute.String("provider.id", p.ID),
			attribute.String("provider.status", string(p.Status)),
		),
	)
	defer func() { finish(span, err) }()

	return r.next.Create(ctx, p)
}

func (r *TracingRepository) GetByID(ctx context.Context, id string) (p domain.Provider, err error) {
	ctx, span := r.tracer.Start(ctx, "ProviderRepository.GetByID",
		trace.WithAttributes(attribute.String("provider.id", id)),
	)
	defer func() { finish(span, err) }()

	return r.next.GetByID(ctx, id)
}

func (r *TracingRepository) FindByName(ctx context.Context, name string) (p domain.Provider, found bool, err error) {
	ctx, span := r.tracer.Start(ctx, "ProviderRepository.FindByName")
	defer func() {
		span.SetAttributes(attribute.Bool("result.found", found))
		finish(span, err)
	}()

	return r.next.FindByName(ctx, name)
}

func (r *TracingRepository) List(ctx context.Context, filter domain.ListFilter) (providers []domain.Provider, err error) {
	ctx, span := r.tracer.Start(ctx, "ProviderRepository.List",
		trace.WithAttributes(
			attribute.Int("filter.limit", filter.Limit),
			attribute.Int("filter.offset", filter.Offset),
		),
	)
	defer func() { finish(span, err) }()

	if filter.Status != nil {
		span.SetAttributes(attribute.String("filter.status", string(*filter.Status)))
	}

	providers, err = r.next.List(ctx, filter)
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", len(providers)))
	}
	return providers, err
}

func (r *TracingRepository) UpdateLifecycle(ctx context.Context, p domain.Provider, expected domain.Status) (err error) {
	ctx, span := r.tracer.Start(ctx, "ProviderRepository.UpdateLifecycle",
		trace.WithAttributes(
			attribute.String("provider.id", p.ID),
			attribute.String("provider.status.expected", string(expected)),
			attribute.String("provider.status", string(p.Status)),
		),
	)
	defer func() { finish(span, err) }()

	return r.next.UpdateLifecycle(ctx, p, expected)
}
