package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/incridea/capture-pipeline/pkg/capture"
)

// RemovalHandler handles HTTP requests for removal requests
type RemovalHandler struct {
	service capture.Service
}

// NewRemovalHandler creates a new removal request handler
func NewRemovalHandler(service capture.Service) *RemovalHandler {
	return &RemovalHandler{service: service}
}

// Routes returns the routes for removal requests
func (h *RemovalHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.SubmitRemovalRequest)

	r.Group(func(r chi.Router) {
		r.Use(RequireCapability(capture.CapRemovalRequests))
		r.Get("/", h.ListRemovalRequests)
		r.Get("/pending-count", h.GetPendingCount)
		r.Post("/{id}/resolve", h.ResolveRemovalRequest)
	})

	return r
}

// SubmitRemovalRequestBody is the request body for a takedown inquiry
type SubmitRemovalRequestBody struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Description string `json:"description"`
	IDCardPath  string `json:"idcard_path"`
	AssetPath   string `json:"asset_path"`
}

// SubmitRemovalRequest files a takedown inquiry. Resubmitting the same
// inquiry returns the existing pending request.
func (h *RemovalHandler) SubmitRemovalRequest(w http.ResponseWriter, r *http.Request) {
	var body SubmitRemovalRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	req, err := h.service.SubmitRemovalRequest(r.Context(), capture.SubmitRemovalRequest{
		Name:        body.Name,
		Email:       body.Email,
		Description: body.Description,
		IDCardPath:  body.IDCardPath,
		AssetPath:   body.AssetPath,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}

	slog.Info("Removal request submitted", "request_id", req.ID, "asset_path", req.AssetPath)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, req)
}

// ListRemovalRequests lists removal requests, optionally filtered by status
func (h *RemovalHandler) ListRemovalRequests(w http.ResponseWriter, r *http.Request) {
	status := capture.RemovalStatus(r.URL.Query().Get("status"))

	requests, err := h.service.ListRemovalRequests(r.Context(), IdentityFromContext(r.Context()), status)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{"removal_requests": requests})
}

// GetPendingCount returns the number of unresolved removal requests
func (h *RemovalHandler) GetPendingCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.GetPendingRemovalCount(r.Context(), IdentityFromContext(r.Context()))
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]int{"pending": count})
}

// ResolveRemovalRequest closes a pending removal request. The referenced
// capture and its stored assets are left untouched.
func (h *RemovalHandler) ResolveRemovalRequest(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid removal request ID", http.StatusBadRequest)
		return
	}

	req, err := h.service.ResolveRemovalRequest(r.Context(), IdentityFromContext(r.Context()), id)
	if err != nil {
		renderError(w, r, err)
		return
	}

	slog.Info("Removal request resolved", "request_id", req.ID)
	render.JSON(w, r, req)
}
