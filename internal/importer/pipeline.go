// Package importer onboards providers in bulk from CSV documents.
//
// An import either fails fatally before any row is examined, or runs every
// row in file order and reports per-row failures without stopping. Rows are
// processed one at a time so that duplicate detection sees every row
// accepted earlier in the same document.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neomorfeo/providerhub/internal/domain"
	"github.com/neomorfeo/providerhub/internal/logging"
)

// Sink persists an accepted row. It is satisfied by the provider service's
// import creation path.
type Sink interface {
	CreateImported(ctx context.Context, actor domain.Actor, draft domain.ProviderDraft) (domain.Provider, error)
}

// NameLookup finds an already persisted provider by name.
type NameLookup interface {
	FindByName(ctx context.Context, name string) (domain.Provider, bool, error)
}

// Importer is the import surface consumed by transports.
type Importer interface {
	Import(ctx context.Context, actor domain.Actor, upload Upload) (Report, error)
	Preview(ctx context.Context, upload Upload) (Report, error)
}

// Pipeline validates uploads and creates one provider per valid row.
type Pipeline struct {
	sink     Sink
	names    NameLookup
	maxBytes int64
	now      func() time.Time
}

var _ Importer = (*Pipeline)(nil)

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithMaxBytes sets the upload size limit.
func WithMaxBytes(n int64) Option {
	return func(p *Pipeline) { p.maxBytes = n }
}

// WithClock overrides the clock that bounds foundation_year.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline creates a pipeline writing through sink and checking
// duplicates against names.
func NewPipeline(sink Sink, names NameLookup, opts ...Option) *Pipeline {
	p := &Pipeline{
		sink:     sink,
		names:    names,
		maxBytes: DefaultMaxBytes,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Import loads the upload and creates a provider for every valid row on
// behalf of actor. A *domain.FatalImportError means nothing was written.
func (p *Pipeline) Import(ctx context.Context, actor domain.Actor, upload Upload) (Report, error) {
	if actor.ID == "" {
		return Report{}, domain.ErrActorRequired
	}

	log := logging.WithFields(ctx, "file", upload.Filename, "actor", actor.ID)

	doc, err := Load(upload, p.maxBytes)
	if err != nil {
		log.Warn("import rejected", "error", err)
		return Report{}, err
	}

	report := run(ctx, doc.Rows, p.now(), p.lookup, func(ctx context.Context, draft domain.ProviderDraft) error {
		_, err := p.sink.CreateImported(ctx, actor, draft)
		return err
	})

	log.Info("import finished",
		"rows", len(doc.Rows),
		"imported", report.Imported,
		"skipped_blank", report.SkippedBlank,
		"errors", report.ErrorCount(),
	)
	return report, nil
}

// Preview runs every check Import runs, including duplicate detection
// against persisted providers, without writing anything.
func (p *Pipeline) Preview(ctx context.Context, upload Upload) (Report, error) {
	doc, err := Load(upload, p.maxBytes)
	if err != nil {
		return Report{}, err
	}

	report := run(ctx, doc.Rows, p.now(), p.lookup, accept)

	logging.FromContext(ctx).Debug("import previewed",
		"file", upload.Filename,
		"would_import", report.Imported,
		"errors", report.ErrorCount(),
	)
	return report, nil
}

func (p *Pipeline) lookup(ctx context.Context, name string) (bool, error) {
	_, found, err := p.names.FindByName(ctx, name)
	return found, err
}

// Evaluate computes the report for rows against a fixed set of existing
// names, with no side effects.
func Evaluate(rows []Row, existingNames []string, now time.Time) Report {
	existing := make(map[string]struct{}, len(existingNames))
	for _, name := range existingNames {
		existing[domain.NameKey(name)] = struct{}{}
	}

	exists := func(_ context.Context, name string) (bool, error) {
		_, ok := existing[domain.NameKey(name)]
		return ok, nil
	}
	return run(context.Background(), rows, now, exists, accept)
}

type existsFunc func(ctx context.Context, name string) (bool, error)

type persistFunc func(ctx context.Context, draft domain.ProviderDraft) error

func accept(context.Context, domain.ProviderDraft) error { return nil }

// run is the row loop shared by Import, Preview and Evaluate.
func run(ctx context.Context, rows []Row, now time.Time, exists existsFunc, persist persistFunc) Report {
	var report Report
	seen := make(map[string]struct{})
	log := logging.FromContext(ctx)

	reject := func(line int, format string, args ...any) {
		report.fail(line, format, args...)
		log.Debug("row rejected", "line", line, "reason", report.Errors[len(report.Errors)-1].Reason)
	}

	for _, row := range rows {
		if row.Blank() {
			report.SkippedBlank++
			continue
		}

		draft, err := ParseRow(row, now)
		if err != nil {
			reject(row.Line, "%v", err)
			continue
		}

		key := domain.NameKey(draft.Name)
		if _, dup := seen[key]; dup {
			reject(row.Line, "duplicate name %q: already accepted earlier in this file", draft.Name)
			continue
		}

		found, err := exists(ctx, draft.Name)
		if err != nil {
			reject(row.Line, "checking name %q: %v", draft.Name, err)
			continue
		}
		if found {
			reject(row.Line, "duplicate name %q: provider already exists", draft.Name)
			continue
		}

		if err := persist(ctx, draft); err != nil {
			reject(row.Line, "%s", persistReason(err))
			continue
		}

		seen[key] = struct{}{}
		report.Imported++
	}

	return report
}

func persistReason(err error) string {
	var nameErr *domain.NameConflictError
	if errors.As(err, &nameErr) {
		return fmt.Sprintf("duplicate name %q: provider already exists", nameErr.Name)
	}
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		return vErr.Error()
	}
	return "could not be saved: " + err.Error()
}
