package http

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/providerhub/internal/adapter/fsm"
	"github.com/neomorfeo/providerhub/internal/app"
	"github.com/neomorfeo/providerhub/internal/domain"
	"github.com/neomorfeo/providerhub/internal/importer"
)

// ActorHeader carries the identity of the administrator performing a request.
const ActorHeader = "X-Actor-ID"

// ProviderResponse is the admin API representation of a provider.
type ProviderResponse struct {
	ID               string   `json:"id" doc:"Unique identifier"`
	Name             string   `json:"name"`
	Title            string   `json:"title,omitempty"`
	ShortDescription string   `json:"short_description,omitempty"`
	Country          string   `json:"country"`
	State            string   `json:"state,omitempty"`
	City             string   `json:"city,omitempty"`
	Address          string   `json:"address,omitempty"`
	Phone            string   `json:"phone,omitempty"`
	Revenue          string   `json:"revenue,omitempty"`
	FoundationYear   int      `json:"foundation_year"`
	MembersCount     int      `json:"members_count"`
	SocialLinks      []string `json:"social_links"`
	Tags             []string `json:"tags"`
	Status           string   `json:"status" doc:"Lifecycle state"`
	AllowedEvents    []string `json:"allowed_events" doc:"Lifecycle actions valid from the current state"`
	ApprovedBy       *string  `json:"approved_by,omitempty" doc:"Actor of the last lifecycle action"`
	ApprovedAt       *string  `json:"approved_at,omitempty" doc:"Time of the last lifecycle action (RFC 3339)"`
	ApprovalNotes    *string  `json:"approval_notes,omitempty"`
	CreatedAt        string   `json:"created_at"`
	UpdatedAt        string   `json:"updated_at"`
}

// PublicProviderResponse is what the public listing exposes.
type PublicProviderResponse struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Title            string   `json:"title,omitempty"`
	ShortDescription string   `json:"short_description,omitempty"`
	Country          string   `json:"country"`
	State            string   `json:"state,omitempty"`
	City             string   `json:"city,omitempty"`
	FoundationYear   int      `json:"foundation_year"`
	MembersCount     int      `json:"members_count"`
	SocialLinks      []string `json:"social_links"`
	Tags             []string `json:"tags"`
	Status           string   `json:"status" doc:"Always active in the public listing"`
	ApprovedBy       *string  `json:"approved_by,omitempty" doc:"Administrator who approved the provider"`
	ApprovedAt       *string  `json:"approved_at,omitempty" doc:"Approval time (RFC 3339)"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (h *handler) toProviderResponse(p domain.Provider) ProviderResponse {
	allowed := []string{}
	for _, e := range h.lifecycle.Allowed(p.Status) {
		allowed = append(allowed, string(e))
	}

	return ProviderResponse{
		ID:               p.ID,
		Name:             p.Name,
		Title:            p.Title,
		ShortDescription: p.ShortDescription,
		Country:          p.Country,
		State:            p.State,
		City:             p.City,
		Address:          p.Address,
		Phone:            p.Phone,
		Revenue:          p.Revenue,
		FoundationYear:   p.FoundationYear,
		MembersCount:     p.MembersCount,
		SocialLinks:      nonNil(p.SocialLinks),
		Tags:             nonNil(p.Tags),
		Status:           string(p.Status),
		AllowedEvents:    allowed,
		ApprovedBy:       p.ApprovedBy,
		ApprovalNotes:    p.ApprovalNotes,
		ApprovedAt:       formatTime(p.ApprovedAt),
		CreatedAt:        p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        p.UpdatedAt.Format(time.RFC3339),
	}
}

func toPublicResponse(p domain.Provider) PublicProviderResponse {
	return PublicProviderResponse{
		ID:               p.ID,
		Name:             p.Name,
		Title:            p.Title,
		ShortDescription: p.ShortDescription,
		Country:          p.Country,
		State:            p.State,
		City:             p.City,
		FoundationYear:   p.FoundationYear,
		MembersCount:     p.MembersCount,
		SocialLinks:      nonNil(p.SocialLinks),
		Tags:             nonNil(p.Tags),
		Status:           string(p.Status),
		ApprovedBy:       p.ApprovedBy,
		ApprovedAt:       formatTime(p.ApprovedAt),
	}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

// --- Create Provider ---

type CreateProviderInput struct {
	ActorID string `header:"X-Actor-ID" required:"true" minLength:"1" doc:"Administrator performing the action"`
	Body    struct {
		Name             string   `json:"name" minLength:"1" maxLength:"255"`
		Title            string   `json:"title,omitempty" maxLength:"255"`
		ShortDescription string   `json:"short_description,omitempty"`
		Country          string   `json:"country" minLength:"1"`
		State            string   `json:"state,omitempty"`
		City             string   `json:"city,omitempty"`
		Address          string   `json:"address,omitempty"`
		Phone            string   `json:"phone,omitempty"`
		Revenue          string   `json:"revenue,omitempty"`
		FoundationYear   int      `json:"foundation_year" minimum:"1800"`
		MembersCount     int      `json:"members_count" minimum:"0"`
		SocialLinks      []string `json:"social_links,omitempty" doc:"http(s) URLs"`
		Tags             []string `json:"tags,omitempty"`
	}
}

type ProviderOutput struct {
	Body ProviderResponse
}

// --- Get Provider ---

type GetProviderInput struct {
	ID string `path:"id" doc:"Provider ID"`
}

// --- List Providers ---

type ListProvidersInput struct {
	Status string `query:"status" required:"false" enum:"pending,active,rejected,suspended" doc:"Filter by status"`
	Limit  int    `query:"limit" required:"false" default:"50" minimum:"0" maximum:"500" doc:"Max results"`
	Offset int    `query:"offset" required:"false" default:"0" minimum:"0" doc:"Pagination offset"`
}

type ListProvidersOutput struct {
	Body []ProviderResponse
}

type ListPublicInput struct {
	Limit  int `query:"limit" required:"false" default:"50" minimum:"0" maximum:"500"`
	Offset int `query:"offset" required:"false" default:"0" minimum:"0"`
}

type ListPublicOutput struct {
	Body []PublicProviderResponse
}

// --- Lifecycle ---

type LifecycleInput struct {
	ID      string `path:"id" doc:"Provider ID"`
	ActorID string `header:"X-Actor-ID" required:"true" minLength:"1" doc:"Administrator performing the action"`
	Body    struct {
		Notes string `json:"notes,omitempty" maxLength:"2000" doc:"Replaces any previous approval notes"`
	}
}

// Options configure the provider routes.
type Options struct {
	// DisplayLimit bounds how many row errors an import response lists.
	DisplayLimit int
	// MaxUploadBytes is the import size limit; the request body limit is
	// set slightly above it to leave room for multipart framing.
	MaxUploadBytes int64
}

type handler struct {
	svc       *app.ProviderService
	imports   importer.Importer
	lifecycle *fsm.Validator
	opts      Options
}

type lifecycleFunc func(ctx context.Context, id string, actor domain.Actor, notes string) (domain.Provider, error)

// Register adds the provider admin, public and import routes to api.
func Register(api huma.API, svc *app.ProviderService, imports importer.Importer, lifecycle *fsm.Validator, opts Options) {
	if opts.DisplayLimit <= 0 {
		opts.DisplayLimit = importer.DefaultDisplayLimit
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = importer.DefaultMaxBytes
	}
	h := &handler{svc: svc, imports: imports, lifecycle: lifecycle, opts: opts}

	huma.Register(api, huma.Operation{
		OperationID:   "create-provider",
		Method:        http.MethodPost,
		Path:          "/api/v1/providers",
		Summary:       "Create a provider in the pending state",
		Tags:          []string{"Providers"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateProviderInput) (*ProviderOutput, error) {
		b := input.Body
		p, err := svc.Create(ctx, domain.Actor{ID: input.ActorID}, domain.ProviderDraft{
			Name:             b.Name,
			Title:            b.Title,
			ShortDescription: b.ShortDescription,
			Country:          b.Country,
			State:            b.State,
			City:             b.City,
			Address:          b.Address,
			Phone:            b.Phone,
			Revenue:          b.Revenue,
			FoundationYear:   b.FoundationYear,
			MembersCount:     b.MembersCount,
			SocialLinks:      b.SocialLinks,
			Tags:             b.Tags,
		})
		if err != nil {
			return nil, toHumaError(ctx, err)
		}
		return &ProviderOutput{Body: h.toProviderResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-provider",
		Method:      http.MethodGet,
		Path:        "/api/v1/providers/{id}",
		Summary:     "Get a provider by ID",
		Tags:        []string{"Providers"},
	}, func(ctx context.Context, input *GetProviderInput) (*ProviderOutput, error) {
		p, err := svc.GetByID(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(ctx, err)
		}
		return &ProviderOutput{Body: h.toProviderResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-providers",
		Method:      http.MethodGet,
		Path:        "/api/v1/providers",
		Summary:     "List providers",
		Tags:        []string{"Providers"},
	}, func(ctx context.Context, input *ListProvidersInput) (*ListProvidersOutput, error) {
		filter := domain.ListFilter{Limit: input.Limit, Offset: input.Offset}
		if input.Status != "" {
			s, ok := domain.ParseStatus(input.Status)
			if !ok {
				return nil, huma.Error422UnprocessableEntity("unknown status " + input.Status)
			}
			filter.Status = &s
		}

		providers, err := svc.List(ctx, filter)
		if err != nil {
			return nil, toHumaError(ctx, err)
		}

		resp := make([]ProviderResponse, len(providers))
		for i, p := range providers {
			resp[i] = h.toProviderResponse(p)
		}
		return &ListProvidersOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-public-providers",
		Method:      http.MethodGet,
		Path:        "/api/v1/public/providers",
		Summary:     "List providers visible to the public",
		Tags:        []string{"Public"},
	}, func(ctx context.Context, input *ListPublicInput) (*ListPublicOutput, error) {
		providers, err := svc.ListPublic(ctx, input.Limit, input.Offset)
		if err != nil {
			return nil, toHumaError(ctx, err)
		}

		resp := make([]PublicProviderResponse, len(providers))
		for i, p := range providers {
			resp[i] = toPublicResponse(p)
		}
		return &ListPublicOutput{Body: resp}, nil
	})

	h.registerLifecycle(api, domain.EventApprove, "Approve a pending or suspended provider", svc.Approve)
	h.registerLifecycle(api, domain.EventReject, "Reject a pending provider", svc.Reject)
	h.registerLifecycle(api, domain.EventSuspend, "Suspend an active provider", svc.Suspend)

	h.registerImport(api)
}

func (h *handler) registerLifecycle(api huma.API, event domain.Event, summary string, apply lifecycleFunc) {
	huma.Register(api, huma.Operation{
		OperationID: string(event) + "-provider",
		Method:      http.MethodPost,
		Path:        "/api/v1/providers/{id}/" + string(event),
		Summary:     summary,
		Tags:        []string{"Lifecycle"},
	}, func(ctx context.Context, input *LifecycleInput) (*ProviderOutput, error) {
		p, err := apply(ctx, input.ID, domain.Actor{ID: input.ActorID}, input.Body.Notes)
		if err != nil {
			return nil, toHumaError(ctx, err)
		}
		return &ProviderOutput{Body: h.toProviderResponse(p)}, nil
	})
}
