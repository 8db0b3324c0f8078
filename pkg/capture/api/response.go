package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/incridea/capture-pipeline/pkg/capture"
)

func errorBody(code, message string) map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	}
}

// renderError maps pipeline errors onto HTTP statuses. Wrapper types are
// unwrapped by errors.Is, so the sentinel decides the status.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	var code string
	var status int

	switch {
	case errors.Is(err, capture.ErrValidation):
		code, status = "validation_error", http.StatusBadRequest
	case errors.Is(err, capture.ErrAssetDecode):
		code, status = "asset_decode_error", http.StatusUnprocessableEntity
	case errors.Is(err, capture.ErrNotAuthorized):
		code, status = "not_authorized", http.StatusForbidden
	case errors.Is(err, capture.ErrCaptureNotFound),
		errors.Is(err, capture.ErrEventNotFound),
		errors.Is(err, capture.ErrRemovalRequestNotFound):
		code, status = "not_found", http.StatusNotFound
	case errors.Is(err, capture.ErrConflict),
		errors.Is(err, capture.ErrInvalidStateTransition),
		errors.Is(err, capture.ErrCaptureNotApproved):
		code, status = "conflict", http.StatusConflict
	case errors.Is(err, capture.ErrUploadTransport):
		code, status = "upload_transport_error", http.StatusBadGateway
	case errors.Is(err, capture.ErrPersistenceTimeout):
		code, status = "persistence_timeout", http.StatusGatewayTimeout
	default:
		code, status = "internal_error", http.StatusInternalServerError
	}

	render.Status(r, status)
	render.JSON(w, r, errorBody(code, err.Error()))
}
