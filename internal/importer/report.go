package importer

import (
	"fmt"
	"strings"
)

// DefaultDisplayLimit is how many row errors a human-facing summary shows.
const DefaultDisplayLimit = 10

// RowError is a validation failure isolated to a single line.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (e RowError) String() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Report is the outcome of one import call. Errors always holds every row
// error; truncation only happens in Visible and Summary.
type Report struct {
	Imported     int
	SkippedBlank int
	Errors       []RowError
}

// ErrorCount returns the total number of row errors.
func (r Report) ErrorCount() int {
	return len(r.Errors)
}

// Visible returns at most limit errors, in line order.
func (r Report) Visible(limit int) []RowError {
	if limit < 0 {
		limit = 0
	}
	if len(r.Errors) <= limit {
		return r.Errors
	}
	return r.Errors[:limit]
}

// Hidden returns how many errors Visible(limit) leaves out.
func (r Report) Hidden(limit int) int {
	return len(r.Errors) - len(r.Visible(limit))
}

// Summary renders the report for a human, showing at most limit errors
// followed by "... and N more".
func (r Report) Summary(limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "imported %d, skipped %d blank, %d errors", r.Imported, r.SkippedBlank, r.ErrorCount())
	for _, e := range r.Visible(limit) {
		b.WriteString("\n")
		b.WriteString(e.String())
	}
	if hidden := r.Hidden(limit); hidden > 0 {
		fmt.Fprintf(&b, "\n... and %d more", hidden)
	}
	return b.String()
}

func (r *Report) fail(line int, format string, args ...any) {
	r.Errors = append(r.Errors, RowError{Line: line, Reason: fmt.Sprintf(format, args...)})
}
