package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/neomorfeo/providerhub/internal/domain"
)

func validDraft() domain.ProviderDraft {
	return domain.ProviderDraft{
		Name:           "Sunbeam Energy",
		Country:        "Brazil",
		FoundationYear: 2010,
		MembersCount:   12,
		SocialLinks:    []string{"https://sunbeam.example.com"},
		Tags:           []string{"residential", "commercial"},
	}
}

func TestNewProvider(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := domain.NewProvider("id-1", validDraft(), now)

	if p.ID != "id-1" {
		t.Errorf("ID = %q, want %q", p.ID, "id-1")
	}
	if p.Name != "Sunbeam Energy" {
		t.Errorf("Name = %q, want %q", p.Name, "Sunbeam Energy")
	}
	if p.Status != domain.StatusPending {
		t.Errorf("Status = %q, want %q", p.Status, domain.StatusPending)
	}
	if p.ApprovedBy != nil || p.ApprovedAt != nil || p.ApprovalNotes != nil {
		t.Error("audit fields should be nil on a pending provider")
	}
	if !p.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", p.CreatedAt, now)
	}
	if p.UpdatedAt != p.CreatedAt {
		t.Errorf("UpdatedAt should equal CreatedAt on new provider")
	}
}

func TestNewProvider_IgnoresDraftStatus(t *testing.T) {
	d := validDraft()
	d.Status = domain.StatusActive
	p := domain.NewProvider("id-1", d, time.Now())
	if p.Status != domain.StatusPending {
		t.Errorf("Status = %q, want %q", p.Status, domain.StatusPending)
	}
}

func TestProviderDraft_Validate_Boundaries(t *testing.T) {
	now := time.Now()
	year := now.Year()

	cases := []struct {
		name    string
		mutate  func(*domain.ProviderDraft)
		wantErr string
	}{
		{"current year", func(d *domain.ProviderDraft) { d.FoundationYear = year }, ""},
		{"next year", func(d *domain.ProviderDraft) { d.FoundationYear = year + 1 }, "foundation_year"},
		{"1800", func(d *domain.ProviderDraft) { d.FoundationYear = 1800 }, ""},
		{"1799", func(d *domain.ProviderDraft) { d.FoundationYear = 1799 }, "foundation_year"},
		{"zero members", func(d *domain.ProviderDraft) { d.MembersCount = 0 }, ""},
		{"negative members", func(d *domain.ProviderDraft) { d.MembersCount = -1 }, "members_count"},
		{"blank name", func(d *domain.ProviderDraft) { d.Name = "  " }, "name"},
		{"blank country", func(d *domain.ProviderDraft) { d.Country = "" }, "country"},
		{"bad link", func(d *domain.ProviderDraft) { d.SocialLinks = []string{"ftp://x.com"} }, "social_links"},
		{"bad status", func(d *domain.ProviderDraft) { d.Status = "archived" }, "status"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := validDraft()
			tc.mutate(&d)
			err := d.Validate(now)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var vErr *domain.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Field != tc.wantErr {
				t.Errorf("Field = %q, want %q", vErr.Field, tc.wantErr)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	cases := map[string]domain.Status{
		"pending":    domain.StatusPending,
		"ACTIVE":     domain.StatusActive,
		" Rejected ": domain.StatusRejected,
		"Suspended":  domain.StatusSuspended,
	}
	for in, want := range cases {
		got, ok := domain.ParseStatus(in)
		if !ok || got != want {
			t.Errorf("ParseStatus(%q) = %q, %v; want %q, true", in, got, ok, want)
		}
	}
	if _, ok := domain.ParseStatus("archived"); ok {
		t.Error("ParseStatus(archived) should fail")
	}
}

func TestIsSocialLink(t *testing.T) {
	valid := []string{"http://a.com", "https://ok.com/path?q=1", "HTTPS://x.io", "Http://Mixed.example.com"}
	invalid := []string{"not-a-url", "ftp://a.com", "https://", "https:// spaced.com", "", "FTP://x.io"}

	for _, s := range valid {
		if !domain.IsSocialLink(s) {
			t.Errorf("IsSocialLink(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if domain.IsSocialLink(s) {
			t.Errorf("IsSocialLink(%q) = true, want false", s)
		}
	}
}

func TestNameKey_CaseInsensitive(t *testing.T) {
	if domain.NameKey(" Acme Solar ") != domain.NameKey("ACME SOLAR") {
		t.Error("name keys should match regardless of case and surrounding space")
	}
	if domain.NameKey("Acme Solar") == domain.NameKey("Acme  Solar") {
		t.Error("inner whitespace is significant")
	}
}

func TestStamp_OverwritesAuditFields(t *testing.T) {
	p := domain.NewProvider("id-1", validDraft(), time.Now())
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p.Stamp(domain.StatusActive, domain.Actor{ID: "admin-1"}, "looks good", first)

	if *p.ApprovedBy != "admin-1" || !p.ApprovedAt.Equal(first) || *p.ApprovalNotes != "looks good" {
		t.Fatalf("unexpected audit fields after first stamp: %+v", p)
	}

	second := first.Add(time.Hour)
	p.Stamp(domain.StatusSuspended, domain.Actor{ID: "admin-2"}, "", second)

	if *p.ApprovedBy != "admin-2" {
		t.Errorf("ApprovedBy = %q, want %q", *p.ApprovedBy, "admin-2")
	}
	if !p.ApprovedAt.Equal(second) {
		t.Errorf("ApprovedAt = %v, want %v", *p.ApprovedAt, second)
	}
	if p.ApprovalNotes != nil {
		t.Errorf("ApprovalNotes = %q, want nil", *p.ApprovalNotes)
	}
}

func TestTransitions_ValidPaths(t *testing.T) {
	cases := []struct {
		event domain.Event
		src   domain.Status
		dst   domain.Status
	}{
		{domain.EventApprove, domain.StatusPending, domain.StatusActive},
		{domain.EventApprove, domain.StatusSuspended, domain.StatusActive},
		{domain.EventReject, domain.StatusPending, domain.StatusRejected},
		{domain.EventSuspend, domain.StatusActive, domain.StatusSuspended},
	}

	for _, tc := range cases {
		found := false
		for _, tr := range domain.Transitions {
			if tr.Event == tc.event && tr.Src == tc.src && tr.Dst == tc.dst {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing transition: %q from %q → %q", tc.event, tc.src, tc.dst)
		}
	}
}

func TestTransitions_InvalidPaths(t *testing.T) {
	invalid := []struct {
		event domain.Event
		src   domain.Status
	}{
		{domain.EventApprove, domain.StatusActive},
		{domain.EventApprove, domain.StatusRejected},
		{domain.EventReject, domain.StatusActive},
		{domain.EventReject, domain.StatusRejected},
		{domain.EventSuspend, domain.StatusPending},
		{domain.EventSuspend, domain.StatusSuspended},
	}

	for _, tc := range invalid {
		for _, tr := range domain.Transitions {
			if tr.Event == tc.event && tr.Src == tc.src {
				t.Errorf("unexpected transition: %q from %q should not exist", tc.event, tc.src)
			}
		}
	}
}

func TestCanBeApproved_MatchesTransitions(t *testing.T) {
	for _, st := range domain.Statuses {
		p := domain.Provider{Status: st}
		allowed := false
		for _, tr := range domain.Transitions {
			if tr.Event == domain.EventApprove && tr.Src == st {
				allowed = true
			}
		}
		if p.CanBeApproved() != allowed {
			t.Errorf("CanBeApproved() for %q = %v, want %v", st, p.CanBeApproved(), allowed)
		}
	}
}
