package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Status represents the lifecycle state of a provider.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusRejected  Status = "rejected"
	StatusSuspended Status = "suspended"
)

// Statuses lists every valid status in a stable order.
var Statuses = []Status{StatusPending, StatusActive, StatusRejected, StatusSuspended}

// ParseStatus resolves a status name case-insensitively.
func ParseStatus(s string) (Status, bool) {
	want := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, st := range Statuses {
		if st == want {
			return st, true
		}
	}
	return "", false
}

// Event represents an action that triggers a state transition.
type Event string

const (
	EventCreate  Event = "create"
	EventApprove Event = "approve"
	EventReject  Event = "reject"
	EventSuspend Event = "suspend"
)

// Transition defines a valid state change: an event moves a provider from Src to Dst.
type Transition struct {
	Event Event
	Src   Status
	Dst   Status
}

// Transitions defines all valid state changes in the provider lifecycle.
// Rejected has no outgoing transition.
var Transitions = []Transition{
	{Event: EventApprove, Src: StatusPending, Dst: StatusActive},
	{Event: EventApprove, Src: StatusSuspended, Dst: StatusActive},
	{Event: EventReject, Src: StatusPending, Dst: StatusRejected},
	{Event: EventSuspend, Src: StatusActive, Dst: StatusSuspended},
}

// Actor is the administrative identity performing an action.
type Actor struct {
	ID string
}

// Provider is the core domain entity: a solar company listed in the directory.
type Provider struct {
	ID               string
	Name             string
	Title            string
	ShortDescription string
	Country          string
	State            string
	City             string
	Address          string
	Phone            string
	Revenue          string
	FoundationYear   int
	MembersCount     int
	SocialLinks      []string
	Tags             []string
	Status           Status
	ApprovedBy       *string
	ApprovedAt       *time.Time
	ApprovalNotes    *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsPublic reports whether the provider may appear in the public listing.
func (p Provider) IsPublic() bool {
	return p.Status == StatusActive
}

// CanBeApproved reports whether approve is a valid event from the current status.
func (p Provider) CanBeApproved() bool {
	return p.Status == StatusPending || p.Status == StatusSuspended
}

// ProviderDraft carries the fields needed to create a provider.
// Status is only honoured by the import creation path; empty means pending.
type ProviderDraft struct {
	Name             string
	Title            string
	ShortDescription string
	Country          string
	State            string
	City             string
	Address          string
	Phone            string
	Revenue          string
	FoundationYear   int
	MembersCount     int
	SocialLinks      []string
	Tags             []string
	Status           Status
}

// MinFoundationYear is the earliest accepted foundation year.
const MinFoundationYear = 1800

var socialLinkPattern = regexp.MustCompile(`(?i)^https?://[^\s/$.?#][^\s]*$`)

// IsSocialLink reports whether s is an http(s) URL. The scheme is
// matched case-insensitively.
func IsSocialLink(s string) bool {
	return socialLinkPattern.MatchString(s)
}

// Validate checks the creation invariants relative to now.
func (d ProviderDraft) Validate(now time.Time) error {
	if strings.TrimSpace(d.Name) == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	if strings.TrimSpace(d.Country) == "" {
		return &ValidationError{Field: "country", Message: "is required"}
	}
	if d.FoundationYear < MinFoundationYear || d.FoundationYear > now.Year() {
		return &ValidationError{
			Field:   "foundation_year",
			Message: fmt.Sprintf("must be between %d and %d", MinFoundationYear, now.Year()),
		}
	}
	if d.MembersCount < 0 {
		return &ValidationError{Field: "members_count", Message: "must be zero or greater"}
	}
	for _, link := range d.SocialLinks {
		if !IsSocialLink(link) {
			return &ValidationError{Field: "social_links", Message: fmt.Sprintf("invalid URL %q", link)}
		}
	}
	if d.Status != "" {
		if _, ok := ParseStatus(string(d.Status)); !ok {
			return &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", d.Status)}
		}
	}
	return nil
}

// NewProvider creates a provider from a validated draft in the "pending" state.
func NewProvider(id string, d ProviderDraft, now time.Time) Provider {
	now = now.UTC()
	return Provider{
		ID:               id,
		Name:             strings.TrimSpace(d.Name),
		Title:            d.Title,
		ShortDescription: d.ShortDescription,
		Country:          strings.TrimSpace(d.Country),
		State:            d.State,
		City:             d.City,
		Address:          d.Address,
		Phone:            d.Phone,
		Revenue:          d.Revenue,
		FoundationYear:   d.FoundationYear,
		MembersCount:     d.MembersCount,
		SocialLinks:      append([]string(nil), d.SocialLinks...),
		Tags:             append([]string(nil), d.Tags...),
		Status:           StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Stamp moves the provider to dst and overwrites the audit fields.
// Empty notes clear the previous notes.
func (p *Provider) Stamp(dst Status, actor Actor, notes string, at time.Time) {
	at = at.UTC()
	by := actor.ID
	p.Status = dst
	p.ApprovedBy = &by
	p.ApprovedAt = &at
	p.ApprovalNotes = nil
	if notes != "" {
		p.ApprovalNotes = &notes
	}
	p.UpdatedAt = at
}

// NameKey returns the duplicate-detection key for a provider name.
// Matching is case-insensitive and ignores surrounding whitespace.
func NameKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}
