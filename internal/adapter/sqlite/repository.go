package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/neomorfeo/providerhub/internal/domain"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// Compile-time check: ProviderRepository implements domain.ProviderRepository.
var _ domain.ProviderRepository = (*ProviderRepository)(nil)

// ProviderRepository implements domain.ProviderRepository using SQLite.
type ProviderRepository struct {
	db *sql.DB
}

// New opens a SQLite database, runs migrations, and returns a ready repository.
func New(dataSourceName string) (*ProviderRepository, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// In-memory databases are per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return NewFromDB(db)
}

// NewFromDB wraps an existing database connection, runs migrations, and returns a ready repository.
// Use this when the *sql.DB has been pre-configured (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB) (*ProviderRepository, error) {
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return &ProviderRepository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *ProviderRepository) Close() error {
	return r.db.Close()
}

// DB returns the underlying database connection for use by other adapters (e.g., river).
func (r *ProviderRepository) DB() *sql.DB {
	return r.db
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

// timeFormat is fixed-width so that text ordering matches time ordering.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

const selectColumns = `SELECT id, name, title, short_description, country, state, city, address,
	phone, revenue, foundation_year, members_count, social_links, tags, status,
	approved_by, approved_at, approval_notes, created_at, updated_at FROM providers`

func (r *ProviderRepository) Create(ctx context.Context, p domain.Provider) error {
	links, err := encodeList(p.SocialLinks)
	if err != nil {
		return err
	}
	tags, err := encodeList(p.Tags)
	if err != nil {
		return err
	}

	_, err = r.conn(ctx).ExecContext(ctx,
		`INSERT INTO providers (id, name, name_key, title, short_description, country, state, city,
			address, phone, revenue, foundation_year, members_count, social_links, tags, status,
			approved_by, approved_at, approval_notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, domain.NameKey(p.Name), p.Title, p.ShortDescription, p.Country, p.State, p.City,
		p.Address, p.Phone, p.Revenue, p.FoundationYear, p.MembersCount, links, tags, string(p.Status),
		nullString(p.ApprovedBy), nullTime(p.ApprovedAt), nullString(p.ApprovalNotes),
		p.CreatedAt.UTC().Format(timeFormat),
		p.UpdatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.NameConflictError{Name: p.Name}
		}
		return fmt.Errorf("inserting provider: %w", err)
	}
	return nil
}

func (r *ProviderRepository) GetByID(ctx context.Context, id string) (domain.Provider, error) {
	p, err := scanProvider(r.conn(ctx).QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Provider{}, domain.ErrProviderNotFound
	}
	return p, err
}

func (r *ProviderRepository) FindByName(ctx context.Context, name string) (domain.Provider, bool, error) {
	p, err := scanProvider(r.conn(ctx).QueryRowContext(ctx, selectColumns+` WHERE name_key = ?`, domain.NameKey(name)))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Provider{}, false, nil
	}
	if err != nil {
		return domain.Provider{}, false, err
	}
	return p, true, nil
}

func (r *ProviderRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Provider, error) {
	query := selectColumns
	var args []any

	if filter.Status != nil {
		query += ` WHERE status = ?`
		args = append(args, string(*filter.Status))
	}

	query += ` ORDER BY created_at DESC, id`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		query += ` LIMIT -1`
	}

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := r.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing providers: %w", err)
	}
	defer rows.Close()

	var providers []domain.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}

	return providers, rows.Err()
}

// UpdateLifecycle writes the status and audit fields in a single statement
// guarded by the expected status, so the check and the write cannot interleave
// with another transition.
func (r *ProviderRepository) UpdateLifecycle(ctx context.Context, p domain.Provider, expected domain.Status) error {
	result, err := r.conn(ctx).ExecContext(ctx,
		`UPDATE providers SET status = ?, approved_by = ?, approved_at = ?, approval_notes = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(p.Status), nullString(p.ApprovedBy), nullTime(p.ApprovedAt), nullString(p.ApprovalNotes),
		p.UpdatedAt.UTC().Format(timeFormat), p.ID, string(expected),
	)
	if err != nil {
		return fmt.Errorf("updating provider: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var exists int
	err = r.conn(ctx).QueryRowContext(ctx, `SELECT 1 FROM providers WHERE id = ?`, p.ID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrProviderNotFound
	}
	if err != nil {
		return fmt.Errorf("checking provider existence: %w", err)
	}
	return domain.ErrStaleStatus
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProvider(row rowScanner) (domain.Provider, error) {
	var (
		p                             domain.Provider
		status, links, tags           string
		approvedBy, approvedAt, notes sql.NullString
		createdAt, updatedAt          string
	)

	err := row.Scan(&p.ID, &p.Name, &p.Title, &p.ShortDescription, &p.Country, &p.State, &p.City,
		&p.Address, &p.Phone, &p.Revenue, &p.FoundationYear, &p.MembersCount, &links, &tags, &status,
		&approvedBy, &approvedAt, &notes, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Provider{}, err
		}
		return domain.Provider{}, fmt.Errorf("scanning provider: %w", err)
	}

	p.Status = domain.Status(status)
	if err := json.Unmarshal([]byte(links), &p.SocialLinks); err != nil {
		return domain.Provider{}, fmt.Errorf("decoding social links: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
		return domain.Provider{}, fmt.Errorf("decoding tags: %w", err)
	}
	if approvedBy.Valid {
		p.ApprovedBy = &approvedBy.String
	}
	if notes.Valid {
		p.ApprovalNotes = &notes.String
	}
	if approvedAt.Valid {
		at, err := time.Parse(timeFormat, approvedAt.String)
		if err != nil {
			return domain.Provider{}, fmt.Errorf("parsing approved_at: %w", err)
		}
		p.ApprovedAt = &at
	}
	p.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	p.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return p, nil
}

func encodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encoding list: %w", err)
	}
	return string(b), nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeFormat), Valid: true}
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
