package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/providerhub/internal/domain"
)

// TracingPublisher wraps a domain.EventPublisher with a span per event and a
// counter of published lifecycle events.
type TracingPublisher struct {
	next   domain.EventPublisher
	tracer trace.Tracer
	events metric.Int64Counter
}

// Compile-time check: TracingPublisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*TracingPublisher)(nil)

// NewTracingPublisher creates a tracing decorator around the given publisher,
// using the global tracer and meter providers.
func NewTracingPublisher(next domain.EventPublisher) (*TracingPublisher, error) {
	events, err := otel.Meter(instrumentationName).Int64Counter("providerhub.lifecycle.events",
		metric.WithDescription("Provider lifecycle events published, by event and resulting status."),
	)
	if err != nil {
		return nil, err
	}

	return &TracingPublisher{
		next:   next,
		tracer: otel.Tracer(instrumentationName),
		events: events,
	}, nil
}

func (p *TracingPublisher) Publish(ctx context.Context, event domain.Event, provider domain.Provider) error {
	attrs := []attribute.KeyValue{
		attribute.String("event.type", string(event)),
		attribute.String("provider.status", string(provider.Status)),
	}

	ctx, span := p.tracer.Start(ctx, "EventPublisher.Publish",
		trace.WithAttributes(append(attrs, attribute.String("provider.id", provider.ID))...),
	)

	err := p.next.Publish(ctx, event, provider)
	if err == nil {
		p.events.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	finish(span, err)
	return err
}
