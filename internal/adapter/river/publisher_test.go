package river_test

import (
	"bytes"
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	goriver "github.com/riverqueue/river"

	_ "modernc.org/sqlite"

	riveradapter "github.com/neomorfeo/providerhub/internal/adapter/river"
	"github.com/neomorfeo/providerhub/internal/adapter/sqlite"
	"github.com/neomorfeo/providerhub/internal/domain"
)

// syncBuffer guards a bytes.Buffer written by worker goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := t.TempDir() + "/river_test.db"
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		t.Fatalf("setting WAL: %v", err)
	}

	return db
}

// startClient sets up and starts a client, returning a channel of completed jobs.
func startClient(t *testing.T, logger *slog.Logger) (*riveradapter.Client, <-chan *goriver.Event) {
	t.Helper()

	db := setupTestDB(t)
	ctx := context.Background()

	client, err := riveradapter.Setup(ctx, db, 1, logger)
	if err != nil {
		t.Fatalf("river setup: %v", err)
	}

	completed, cancel := client.Subscribe(goriver.EventKindJobCompleted)
	t.Cleanup(cancel)

	if err := client.Start(ctx); err != nil {
		t.Fatalf("river start: %v", err)
	}
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Stop(stopCtx); err != nil {
			t.Errorf("river stop: %v", err)
		}
	})

	return client, completed
}

func approvedProvider() domain.Provider {
	at := time.Date(2024, 4, 2, 8, 0, 0, 0, time.UTC)
	p := domain.NewProvider("p-42", domain.ProviderDraft{
		Name:           "Andes Solar",
		Country:        "Chile",
		FoundationYear: 2001,
		MembersCount:   5,
	}, at)
	p.Stamp(domain.StatusActive, domain.Actor{ID: "admin-7"}, "docs verified", at.Add(time.Hour))
	return p
}

func TestPublisher_Publish_EnqueuesJob(t *testing.T) {
	client, completed := startClient(t, nil)

	pub := riveradapter.NewPublisher(client)
	if err := pub.Publish(context.Background(), domain.EventCreate, domain.NewProvider("p-1", domain.ProviderDraft{Name: "A"}, time.Now())); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case event := <-completed:
		if event.Job.Kind != "provider.lifecycle" {
			t.Errorf("job kind = %q, want %q", event.Job.Kind, "provider.lifecycle")
		}
		if event.Job.MaxAttempts != 5 {
			t.Errorf("MaxAttempts = %d, want 5", event.Job.MaxAttempts)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job completion")
	}
}

func TestPublisher_Publish_PreservesEventData(t *testing.T) {
	var out syncBuffer
	logger := slog.New(slog.NewTextHandler(&out, nil))
	client, completed := startClient(t, logger)

	pub := riveradapter.NewPublisher(client)
	if err := pub.Publish(context.Background(), domain.EventApprove, approvedProvider()); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case event := <-completed:
		args := string(event.Job.EncodedArgs)
		for _, want := range []string{
			`"event":"approve"`,
			`"provider_id":"p-42"`,
			`"status":"active"`,
			`"actor_id":"admin-7"`,
			`"notes":"docs verified"`,
			`"public_visible":true`,
		} {
			if !strings.Contains(args, want) {
				t.Errorf("encoded args missing %s, got: %s", want, args)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job completion")
	}

	logged := out.String()
	if !strings.Contains(logged, "provider lifecycle event") || !strings.Contains(logged, "provider_id=p-42") {
		t.Errorf("worker did not log the event, got: %s", logged)
	}
}

func countJobs(t *testing.T, client *riveradapter.Client) int {
	t.Helper()
	res, err := client.JobList(context.Background(), goriver.NewJobListParams().Kinds("provider.lifecycle"))
	if err != nil {
		t.Fatalf("listing jobs: %v", err)
	}
	return len(res.Jobs)
}

func TestPublisher_Publish_InsideTxFollowsOutcome(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// Not started: jobs stay queued so they can be counted.
	client, err := riveradapter.Setup(ctx, db, 1, nil)
	if err != nil {
		t.Fatalf("river setup: %v", err)
	}
	pub := riveradapter.NewPublisher(client)

	publishInTx := func(commit bool) {
		t.Helper()
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			t.Fatalf("begin: %v", err)
		}
		if err := pub.Publish(sqlite.ContextWithTx(ctx, tx), domain.EventApprove, approvedProvider()); err != nil {
			_ = tx.Rollback()
			t.Fatalf("Publish failed: %v", err)
		}
		if commit {
			err = tx.Commit()
		} else {
			err = tx.Rollback()
		}
		if err != nil {
			t.Fatalf("ending tx: %v", err)
		}
	}

	publishInTx(false)
	if n := countJobs(t, client); n != 0 {
		t.Errorf("after rollback: %d jobs, want 0", n)
	}

	publishInTx(true)
	if n := countJobs(t, client); n != 1 {
		t.Errorf("after commit: %d jobs, want 1", n)
	}
}
