package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/neomorfeo/providerhub/internal/domain"
)

// DefaultMaxBytes is the default upload size limit.
const DefaultMaxBytes int64 = 5_000_000

// Upload is a document submitted for import.
type Upload struct {
	Filename string
	// Size is the declared size in bytes, or a negative value when unknown.
	Size int64
	Body io.Reader
}

// Row is one data record of a document, keyed by lower-cased header name.
type Row struct {
	Line   int
	Fields map[string]string
}

// Value returns the trimmed value of column, or "" when absent.
func (r Row) Value(column string) string {
	return strings.TrimSpace(r.Fields[column])
}

// Blank reports whether every field of the row is empty or whitespace.
func (r Row) Blank() bool {
	for _, v := range r.Fields {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Document is a parsed upload: its header and data rows in file order.
type Document struct {
	Header []string
	Rows   []Row
}

// Load applies the request-level checks to an upload and parses it. Any
// failure is a *domain.FatalImportError and no row has been looked at.
func Load(upload Upload, maxBytes int64) (*Document, error) {
	if !strings.EqualFold(filepath.Ext(upload.Filename), ".csv") {
		return nil, &domain.FatalImportError{
			Kind:    domain.FatalBadExtension,
			Message: fmt.Sprintf("file %q must have a .csv extension", upload.Filename),
		}
	}

	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if upload.Size > maxBytes {
		return nil, tooLarge(maxBytes)
	}
	if upload.Body == nil {
		return nil, &domain.FatalImportError{Kind: domain.FatalMalformed, Message: "document is empty"}
	}

	data, err := io.ReadAll(io.LimitReader(upload.Body, maxBytes+1))
	if err != nil {
		return nil, &domain.FatalImportError{Kind: domain.FatalMalformed, Message: "reading document", Err: err}
	}
	if int64(len(data)) > maxBytes {
		return nil, tooLarge(maxBytes)
	}

	if !utf8.Valid(data) {
		return nil, &domain.FatalImportError{Kind: domain.FatalEncoding, Message: "document is not valid UTF-8"}
	}
	data, _, err = transform.Bytes(unicode.UTF8BOM.NewDecoder(), data)
	if err != nil {
		return nil, &domain.FatalImportError{Kind: domain.FatalEncoding, Message: "decoding document", Err: err}
	}

	return parse(data)
}

func tooLarge(maxBytes int64) error {
	return &domain.FatalImportError{
		Kind:    domain.FatalTooLarge,
		Message: fmt.Sprintf("file exceeds the %d byte limit", maxBytes),
	}
}

// parse reads the header and every record. Empty lines are dropped by
// encoding/csv, so they are recovered from reader positions and emitted as
// blank rows to keep the running line number aligned with the file.
func parse(data []byte) (*Document, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, &domain.FatalImportError{Kind: domain.FatalHeader, Message: "document has no header row"}
	}
	if err != nil {
		return nil, malformed(err)
	}

	columns := make([]string, len(header))
	hasName := false
	for i, h := range header {
		columns[i] = strings.ToLower(strings.TrimSpace(h))
		if columns[i] != "" {
			hasName = true
		}
	}
	if !hasName {
		return nil, &domain.FatalImportError{Kind: domain.FatalHeader, Message: "header row is blank"}
	}

	doc := &Document{Header: columns}
	line := 1
	consumed := r.InputOffset()

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, malformed(err)
		}

		start, _ := r.FieldPos(0)
		next := 1 + bytes.Count(data[:consumed], []byte("\n"))
		for ; next < start; next++ {
			line++
			doc.Rows = append(doc.Rows, Row{Line: line, Fields: map[string]string{}})
		}

		line++
		doc.Rows = append(doc.Rows, Row{Line: line, Fields: zip(columns, record)})
		consumed = r.InputOffset()
	}

	trailing := bytes.Count(data[consumed:], []byte("\n"))
	for i := 0; i < trailing; i++ {
		line++
		doc.Rows = append(doc.Rows, Row{Line: line, Fields: map[string]string{}})
	}

	return doc, nil
}

// zip maps header columns to record values. Extra values without a header
// are dropped; the first occurrence of a repeated column wins.
func zip(columns, record []string) map[string]string {
	fields := make(map[string]string, len(columns))
	for i, col := range columns {
		if col == "" || i >= len(record) {
			continue
		}
		if _, dup := fields[col]; dup {
			continue
		}
		fields[col] = record[i]
	}
	return fields
}

func malformed(err error) error {
	return &domain.FatalImportError{Kind: domain.FatalMalformed, Message: "malformed CSV", Err: err}
}
