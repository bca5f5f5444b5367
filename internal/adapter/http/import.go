package http

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/providerhub/internal/domain"
	"github.com/neomorfeo/providerhub/internal/importer"
)

// multipartOverhead is the room left above the upload limit for multipart
// boundaries and part headers.
const multipartOverhead = 64 << 10

type uploadForm struct {
	File huma.FormFile `form:"file" required:"true" doc:"CSV document"`
}

type ImportInput struct {
	ActorID string `header:"X-Actor-ID" required:"true" minLength:"1" doc:"Administrator performing the import"`
	RawBody huma.MultipartFormFiles[uploadForm]
}

type PreviewInput struct {
	RawBody huma.MultipartFormFiles[uploadForm]
}

// ImportResult is the bounded view of an import report.
type ImportResult struct {
	Imported     int                 `json:"imported" doc:"Rows persisted (or that would be, for a preview)"`
	SkippedBlank int                 `json:"skipped_blank" doc:"Entirely blank rows"`
	ErrorCount   int                 `json:"error_count" doc:"Total row errors"`
	Errors       []importer.RowError `json:"errors" doc:"The first row errors, in line order"`
	HiddenErrors int                 `json:"hidden_errors" doc:"Row errors not listed in errors"`
	Summary      string              `json:"summary"`
}

type ImportOutput struct {
	Body ImportResult
}

type TemplateOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

func (h *handler) toImportResult(r importer.Report) ImportResult {
	visible := r.Visible(h.opts.DisplayLimit)
	if visible == nil {
		visible = []importer.RowError{}
	}
	return ImportResult{
		Imported:     r.Imported,
		SkippedBlank: r.SkippedBlank,
		ErrorCount:   r.ErrorCount(),
		Errors:       visible,
		HiddenErrors: r.Hidden(h.opts.DisplayLimit),
		Summary:      r.Summary(h.opts.DisplayLimit),
	}
}

// openUpload returns the uploaded file as an importer.Upload. The caller
// closes the file.
func openUpload(form huma.MultipartFormFiles[uploadForm]) (importer.Upload, huma.FormFile, error) {
	f := form.Data().File
	if !f.IsSet || f.File == nil {
		return importer.Upload{}, f, huma.Error422UnprocessableEntity("multipart field \"file\" is required")
	}
	return importer.Upload{Filename: f.Filename, Size: f.Size, Body: f}, f, nil
}

func (h *handler) registerImport(api huma.API) {
	bodyLimit := h.opts.MaxUploadBytes + multipartOverhead

	huma.Register(api, huma.Operation{
		OperationID:  "import-providers",
		Method:       http.MethodPost,
		Path:         "/api/v1/providers/import",
		Summary:      "Import providers from a CSV document",
		Description:  "Rows are validated and persisted one at a time; invalid rows are reported and skipped.",
		Tags:         []string{"Import"},
		MaxBodyBytes: bodyLimit,
	}, func(ctx context.Context, input *ImportInput) (*ImportOutput, error) {
		upload, file, err := openUpload(input.RawBody)
		if err != nil {
			return nil, err
		}
		defer file.Close()

		report, err := h.imports.Import(ctx, domain.Actor{ID: input.ActorID}, upload)
		if err != nil {
			return nil, toHumaError(ctx, err)
		}
		return &ImportOutput{Body: h.toImportResult(report)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:  "preview-provider-import",
		Method:       http.MethodPost,
		Path:         "/api/v1/providers/import/preview",
		Summary:      "Validate a CSV document without importing it",
		Tags:         []string{"Import"},
		MaxBodyBytes: bodyLimit,
	}, func(ctx context.Context, input *PreviewInput) (*ImportOutput, error) {
		upload, file, err := openUpload(input.RawBody)
		if err != nil {
			return nil, err
		}
		defer file.Close()

		report, err := h.imports.Preview(ctx, upload)
		if err != nil {
			return nil, toHumaError(ctx, err)
		}
		return &ImportOutput{Body: h.toImportResult(report)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "provider-import-template",
		Method:      http.MethodGet,
		Path:        "/api/v1/providers/import/template",
		Summary:     "Download a CSV template for provider import",
		Tags:        []string{"Import"},
	}, func(_ context.Context, _ *struct{}) (*TemplateOutput, error) {
		return &TemplateOutput{
			ContentType:        "text/csv; charset=utf-8",
			ContentDisposition: `attachment; filename="providers_template.csv"`,
			Body:               importer.Template(),
		}, nil
	})
}
