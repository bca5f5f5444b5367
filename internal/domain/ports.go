package domain

import "context"

// ProviderRepository defines the persistence contract for providers.
type ProviderRepository interface {
	Create(ctx context.Context, provider Provider) error
	GetByID(ctx context.Context, id string) (Provider, error)
	// FindByName looks a provider up by its name key. found is false when
	// no provider matches; err is reserved for query failures.
	FindByName(ctx context.Context, name string) (provider Provider, found bool, err error)
	List(ctx context.Context, filter ListFilter) ([]Provider, error)
	// UpdateLifecycle writes status and audit fields only if the stored
	// status still equals expected. Otherwise it returns ErrStaleStatus.
	UpdateLifecycle(ctx context.Context, provider Provider, expected Status) error
}

// ListFilter holds optional criteria for listing providers.
type ListFilter struct {
	Status *Status
	Limit  int
	Offset int
}

// EventPublisher defines the contract for emitting domain events.
type EventPublisher interface {
	Publish(ctx context.Context, event Event, provider Provider) error
}

// TransitionValidator resolves the destination status of an event.
type TransitionValidator interface {
	Apply(ctx context.Context, current Status, event Event) (Status, error)
}

// Transactor runs fn atomically. Repository writes and event publishing
// performed with the context passed to fn commit or roll back together.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
