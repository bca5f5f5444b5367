package importer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/neomorfeo/providerhub/internal/domain"
)

// Columns is the full header accepted by the importer, in template order.
var Columns = []string{
	"name", "title", "short_description", "country", "address", "phone",
	"city", "state", "foundation_year", "members_count", "revenue",
	"social_links", "tags", "status",
}

// RequiredColumns must carry a non-blank value on every data row.
var RequiredColumns = []string{"name", "country", "foundation_year", "members_count"}

const listSeparator = ";"

// ParseRow turns a non-blank row into a draft. The returned error is the
// human-readable reason recorded against the row's line.
func ParseRow(row Row, now time.Time) (domain.ProviderDraft, error) {
	var missing []string
	for _, col := range RequiredColumns {
		if row.Value(col) == "" {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return domain.ProviderDraft{}, fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	year, err := strconv.Atoi(row.Value("foundation_year"))
	if err != nil || year < domain.MinFoundationYear || year > now.Year() {
		return domain.ProviderDraft{}, fmt.Errorf("foundation_year %q must be an integer between %d and %d",
			row.Value("foundation_year"), domain.MinFoundationYear, now.Year())
	}

	members, err := strconv.Atoi(row.Value("members_count"))
	if err != nil || members < 0 {
		return domain.ProviderDraft{}, fmt.Errorf("members_count %q must be a non-negative integer", row.Value("members_count"))
	}

	status := domain.StatusPending
	if raw := row.Value("status"); raw != "" {
		parsed, ok := domain.ParseStatus(raw)
		if !ok {
			return domain.ProviderDraft{}, fmt.Errorf("status %q must be one of pending, active, rejected, suspended", raw)
		}
		status = parsed
	}

	links := splitList(row.Value("social_links"))
	for _, link := range links {
		if !domain.IsSocialLink(link) {
			return domain.ProviderDraft{}, fmt.Errorf("social_links contains invalid URL %q", link)
		}
	}

	return domain.ProviderDraft{
		Name:             row.Value("name"),
		Title:            row.Value("title"),
		ShortDescription: row.Value("short_description"),
		Country:          row.Value("country"),
		State:            row.Value("state"),
		City:             row.Value("city"),
		Address:          row.Value("address"),
		Phone:            row.Value("phone"),
		Revenue:          row.Value("revenue"),
		FoundationYear:   year,
		MembersCount:     members,
		SocialLinks:      links,
		Tags:             splitList(row.Value("tags")),
		Status:           status,
	}, nil
}

// splitList splits a ";"-separated cell, trimming tokens and dropping empty ones.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, tok := range strings.Split(s, listSeparator) {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}
