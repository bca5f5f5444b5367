package otel

import (
	"database/sql"
	"fmt"

	"github.com/XSAM/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// OpenDB opens the SQLite database at path with otelsql instrumentation:
// every statement is traced and pool statistics are exported as metrics.
// The same handle is shared by the provider repository and River.
func OpenDB(path string) (*sql.DB, error) {
	attrs := otelsql.WithAttributes(semconv.DBSystemSqlite)

	db, err := otelsql.Open("sqlite", path, attrs)
	if err != nil {
		return nil, fmt.Errorf("opening instrumented database: %w", err)
	}

	// One connection avoids SQLITE_BUSY between River and lifecycle writes.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %q: %w", pragma, err)
		}
	}

	if _, err := otelsql.RegisterDBStatsMetrics(db, attrs); err != nil {
		db.Close()
		return nil, fmt.Errorf("registering db stats metrics: %w", err)
	}

	return db, nil
}
