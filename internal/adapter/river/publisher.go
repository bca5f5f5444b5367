package river

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/providerhub/internal/adapter/sqlite"
	"github.com/neomorfeo/providerhub/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher)(nil)

// LifecycleEventArgs is a snapshot of a provider taken when a lifecycle event
// is published. The worker never reads the provider table.
type LifecycleEventArgs struct {
	Event         string    `json:"event"`
	ProviderID    string    `json:"provider_id"`
	Name          string    `json:"name"`
	Status        string    `json:"status"`
	ActorID       string    `json:"actor_id,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
	PublicVisible bool      `json:"public_visible"`
}

// Kind returns the job type used by River's job routing.
func (LifecycleEventArgs) Kind() string { return "provider.lifecycle" }

// InsertOpts bounds retries of audit jobs.
func (LifecycleEventArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{MaxAttempts: 5}
}

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.EventPublisher by enqueuing River jobs.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues a lifecycle event as an async job. When ctx carries a
// repository transaction the job is inserted in it, so it exists only if
// the provider write commits.
func (p *Publisher) Publish(ctx context.Context, event domain.Event, provider domain.Provider) error {
	args := argsFor(event, provider)

	var err error
	if tx, ok := sqlite.TxFromContext(ctx); ok {
		_, err = p.client.InsertTx(ctx, tx, args, nil)
	} else {
		_, err = p.client.Insert(ctx, args, nil)
	}
	if err != nil {
		return fmt.Errorf("enqueuing %s job: %w", event, err)
	}
	return nil
}

func argsFor(event domain.Event, p domain.Provider) LifecycleEventArgs {
	args := LifecycleEventArgs{
		Event:         string(event),
		ProviderID:    p.ID,
		Name:          p.Name,
		Status:        string(p.Status),
		OccurredAt:    p.UpdatedAt,
		PublicVisible: p.IsPublic(),
	}
	if p.ApprovedBy != nil {
		args.ActorID = *p.ApprovedBy
	}
	if p.ApprovalNotes != nil {
		args.Notes = *p.ApprovalNotes
	}
	return args
}
