package importer_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/neomorfeo/providerhub/internal/domain"
	"github.com/neomorfeo/providerhub/internal/importer"
)

const header = "name,country,foundation_year,members_count,social_links,tags,status\n"

func csvUpload(name, body string) importer.Upload {
	return importer.Upload{Filename: name, Size: int64(len(body)), Body: strings.NewReader(body)}
}

func assertFatal(t *testing.T, err error, kind domain.FatalImportKind) {
	t.Helper()
	var fatal *domain.FatalImportError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected FatalImportError, got %v", err)
	}
	if fatal.Kind != kind {
		t.Errorf("Kind = %q, want %q", fatal.Kind, kind)
	}
}

func TestLoad_LineNumbersAndBlankRows(t *testing.T) {
	body := header +
		"Alpha,Chile,2000,1,,,\n" +
		"\n" +
		"Beta,Chile,2000,1,,,\n" +
		",,,,,,\n" +
		"   \n" +
		"Gamma,Peru,1999,3,,,\n" +
		"\n"

	doc, err := importer.Load(csvUpload("providers.csv", body), 0)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := []struct {
		line  int
		blank bool
		name  string
	}{
		{2, false, "Alpha"},
		{3, true, ""},
		{4, false, "Beta"},
		{5, true, ""},
		{6, true, ""},
		{7, false, "Gamma"},
		{8, true, ""},
	}
	if len(doc.Rows) != len(want) {
		t.Fatalf("got %d rows, want %d", len(doc.Rows), len(want))
	}
	for i, w := range want {
		row := doc.Rows[i]
		if row.Line != w.line {
			t.Errorf("row %d: Line = %d, want %d", i, row.Line, w.line)
		}
		if row.Blank() != w.blank {
			t.Errorf("row %d: Blank() = %v, want %v", i, row.Blank(), w.blank)
		}
		if row.Value("name") != w.name {
			t.Errorf("row %d: name = %q, want %q", i, row.Value("name"), w.name)
		}
	}
}

func TestLoad_HeaderNormalizedAndBOMStripped(t *testing.T) {
	body := "\ufeff Name ,COUNTRY,Foundation_Year,members_count\r\nAlpha,Chile,2000,1\r\n"

	doc, err := importer.Load(csvUpload("providers.CSV", body), 0)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if doc.Header[0] != "name" || doc.Header[1] != "country" || doc.Header[2] != "foundation_year" {
		t.Errorf("Header = %v", doc.Header)
	}
	if len(doc.Rows) != 1 || doc.Rows[0].Value("country") != "Chile" {
		t.Errorf("Rows = %+v", doc.Rows)
	}
}

func TestLoad_QuotedMultilineField(t *testing.T) {
	body := "name,country,foundation_year,members_count,short_description\n" +
		"Alpha,Chile,2000,1,\"two\nlines\"\n" +
		"Beta,Chile,2000,1,one\n"

	doc, err := importer.Load(csvUpload("p.csv", body), 0)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(doc.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(doc.Rows))
	}
	if doc.Rows[1].Line != 3 {
		t.Errorf("second record Line = %d, want 3", doc.Rows[1].Line)
	}
}

func TestLoad_ShortRowKeepsMissingColumnsEmpty(t *testing.T) {
	doc, err := importer.Load(csvUpload("p.csv", header+"Alpha,Chile\n"), 0)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := doc.Rows[0].Value("foundation_year"); got != "" {
		t.Errorf("foundation_year = %q, want empty", got)
	}
}

func TestLoad_FatalErrors(t *testing.T) {
	cases := []struct {
		name   string
		upload importer.Upload
		max    int64
		kind   domain.FatalImportKind
	}{
		{"wrong extension", csvUpload("providers.xlsx", header), 0, domain.FatalBadExtension},
		{"no extension", csvUpload("providers", header), 0, domain.FatalBadExtension},
		{"declared too large", importer.Upload{Filename: "p.csv", Size: 11, Body: strings.NewReader("x")}, 10, domain.FatalTooLarge},
		{"read too large", importer.Upload{Filename: "p.csv", Size: -1, Body: strings.NewReader(strings.Repeat("a", 11))}, 10, domain.FatalTooLarge},
		{"invalid utf-8", csvUpload("p.csv", header+"Alpha\xff,Chile,2000,1\n"), 0, domain.FatalEncoding},
		{"text after closing quote", csvUpload("p.csv", header+"\"Alpha\"x,Chile,2000,1\n"), 0, domain.FatalMalformed},
		{"bare quote", csvUpload("p.csv", header+"Al\"pha,Chile,2000,1\n"), 0, domain.FatalMalformed},
		{"empty document", csvUpload("p.csv", ""), 0, domain.FatalHeader},
		{"blank header", csvUpload("p.csv", ",,\nAlpha,Chile,2000\n"), 0, domain.FatalHeader},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := importer.Load(tc.upload, tc.max)
			assertFatal(t, err, tc.kind)
		})
	}
}

func TestLoad_ExactlyAtLimit(t *testing.T) {
	body := header + "Alpha,Chile,2000,1,,,\n"
	if _, err := importer.Load(csvUpload("p.csv", body), int64(len(body))); err != nil {
		t.Errorf("a document exactly at the limit should load, got %v", err)
	}
}
