package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/providerhub/internal/domain"
	"github.com/neomorfeo/providerhub/internal/logging"
)

// toHumaError translates domain errors to Huma HTTP errors. Unexpected
// errors are logged and hidden behind a 500.
func toHumaError(ctx context.Context, err error) error {
	if errors.Is(err, domain.ErrProviderNotFound) {
		return huma.Error404NotFound("provider not found")
	}

	if errors.Is(err, domain.ErrActorRequired) {
		return huma.Error400BadRequest(ActorHeader + " header is required")
	}

	var nameErr *domain.NameConflictError
	if errors.As(err, &nameErr) {
		return huma.Error409Conflict(nameErr.Error())
	}

	var trErr *domain.TransitionError
	if errors.As(err, &trErr) {
		return huma.Error422UnprocessableEntity(trErr.Error())
	}

	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		return huma.Error422UnprocessableEntity("validation failed", &huma.ErrorDetail{
			Location: "body." + vErr.Field,
			Message:  vErr.Message,
		})
	}

	var fatal *domain.FatalImportError
	if errors.As(err, &fatal) {
		if fatal.Kind == domain.FatalTooLarge {
			return huma.NewError(http.StatusRequestEntityTooLarge, fatal.Error())
		}
		return huma.Error400BadRequest(fatal.Error())
	}

	logging.FromContext(ctx).Error("request failed", "error", err)
	return huma.Error500InternalServerError("internal server error")
}
