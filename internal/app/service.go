package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neomorfeo/providerhub/internal/domain"
)

// ProviderService orchestrates provider creation and lifecycle transitions.
// It is the only write path to the provider store.
type ProviderService struct {
	repo      domain.ProviderRepository
	publisher domain.EventPublisher
	validator domain.TransitionValidator
	tx        domain.Transactor
	now       func() time.Time
	newID     func() (string, error)
}

// Option customizes a ProviderService.
type Option func(*ProviderService)

// WithClock overrides the time source used for audit and creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *ProviderService) { s.now = now }
}

// WithIDGenerator overrides provider ID generation.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(s *ProviderService) { s.newID = gen }
}

// WithTransactor makes each write and its event publication atomic. Without
// one, a publish failure is still returned but the write has already been
// made.
func WithTransactor(tx domain.Transactor) Option {
	return func(s *ProviderService) { s.tx = tx }
}

// directTx runs fn without a transaction.
type directTx struct{}

func (directTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// NewProviderService creates a service with the given adapters.
func NewProviderService(repo domain.ProviderRepository, publisher domain.EventPublisher, validator domain.TransitionValidator, opts ...Option) *ProviderService {
	s := &ProviderService{
		repo:      repo,
		publisher: publisher,
		validator: validator,
		tx:        directTx{},
		now:       time.Now,
		newID:     generateID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create persists a new provider in the "pending" state and publishes a
// creation event. Any status carried by the draft is ignored.
func (s *ProviderService) Create(ctx context.Context, actor domain.Actor, draft domain.ProviderDraft) (domain.Provider, error) {
	draft.Status = ""
	return s.create(ctx, actor, draft)
}

// CreateImported is the creation path used by bulk import. The draft may
// request any valid initial status; non-pending providers are stamped with
// the importing actor so their audit fields are never empty.
func (s *ProviderService) CreateImported(ctx context.Context, actor domain.Actor, draft domain.ProviderDraft) (domain.Provider, error) {
	return s.create(ctx, actor, draft)
}

func (s *ProviderService) create(ctx context.Context, actor domain.Actor, draft domain.ProviderDraft) (domain.Provider, error) {
	if actor.ID == "" {
		return domain.Provider{}, domain.ErrActorRequired
	}

	now := s.now()
	if err := draft.Validate(now); err != nil {
		return domain.Provider{}, err
	}

	if _, found, err := s.repo.FindByName(ctx, draft.Name); err != nil {
		return domain.Provider{}, fmt.Errorf("checking provider name: %w", err)
	} else if found {
		return domain.Provider{}, &domain.NameConflictError{Name: draft.Name}
	}

	id, err := s.newID()
	if err != nil {
		return domain.Provider{}, fmt.Errorf("generating provider id: %w", err)
	}

	provider := domain.NewProvider(id, draft, now)
	if initial, ok := domain.ParseStatus(string(draft.Status)); ok && initial != domain.StatusPending {
		provider.Stamp(initial, actor, "", now)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		// The repository enforces the name key as well, so a concurrent
		// insert surfaces here as a *domain.NameConflictError.
		if err := s.repo.Create(ctx, provider); err != nil {
			return err
		}
		if err := s.publisher.Publish(ctx, domain.EventCreate, provider); err != nil {
			return fmt.Errorf("publishing creation event: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Provider{}, err
	}

	return provider, nil
}

// GetByID returns a provider by its unique identifier.
func (s *ProviderService) GetByID(ctx context.Context, id string) (domain.Provider, error) {
	return s.repo.GetByID(ctx, id)
}

// FindByName looks up a provider by name using the duplicate-detection key.
func (s *ProviderService) FindByName(ctx context.Context, name string) (domain.Provider, bool, error) {
	return s.repo.FindByName(ctx, name)
}

// List returns providers matching the given filter.
func (s *ProviderService) List(ctx context.Context, filter domain.ListFilter) ([]domain.Provider, error) {
	return s.repo.List(ctx, filter)
}

// ListPublic returns only providers visible in the public listing.
func (s *ProviderService) ListPublic(ctx context.Context, limit, offset int) ([]domain.Provider, error) {
	active := domain.StatusActive
	return s.repo.List(ctx, domain.ListFilter{Status: &active, Limit: limit, Offset: offset})
}

// Approve activates a pending or suspended provider.
func (s *ProviderService) Approve(ctx context.Context, id string, actor domain.Actor, notes string) (domain.Provider, error) {
	return s.transition(ctx, id, actor, notes, domain.EventApprove)
}

// Reject rejects a pending provider.
func (s *ProviderService) Reject(ctx context.Context, id string, actor domain.Actor, notes string) (domain.Provider, error) {
	return s.transition(ctx, id, actor, notes, domain.EventReject)
}

// Suspend hides an active provider from the public listing.
func (s *ProviderService) Suspend(ctx context.Context, id string, actor domain.Actor, notes string) (domain.Provider, error) {
	return s.transition(ctx, id, actor, notes, domain.EventSuspend)
}

// transition re-reads the provider, checks the guard and writes the new
// status conditioned on the status it read. Losing a race is reported as a
// TransitionError against the fresh status; it is never retried here.
func (s *ProviderService) transition(ctx context.Context, id string, actor domain.Actor, notes string, event domain.Event) (domain.Provider, error) {
	if actor.ID == "" {
		return domain.Provider{}, domain.ErrActorRequired
	}

	provider, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Provider{}, err
	}

	newStatus, err := s.validator.Apply(ctx, provider.Status, event)
	if err != nil {
		return domain.Provider{}, err
	}

	expected := provider.Status
	provider.Stamp(newStatus, actor, notes, s.now())

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdateLifecycle(ctx, provider, expected); err != nil {
			return fmt.Errorf("updating provider: %w", err)
		}
		if err := s.publisher.Publish(ctx, event, provider); err != nil {
			return fmt.Errorf("publishing event %q: %w", event, err)
		}
		return nil
	})
	if errors.Is(err, domain.ErrStaleStatus) {
		fresh, getErr := s.repo.GetByID(ctx, id)
		if getErr != nil {
			return domain.Provider{}, getErr
		}
		return domain.Provider{}, &domain.TransitionError{Event: event, Current: fresh.Status}
	}
	if err != nil {
		return domain.Provider{}, err
	}

	return provider, nil
}
