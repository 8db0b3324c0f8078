package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/incridea/capture-pipeline/pkg/capture"
	"github.com/incridea/capture-pipeline/pkg/capture/ingest"
)

// maxUploadBytes bounds one multipart capture upload.
const maxUploadBytes = 32 << 20

// CaptureHandler handles HTTP requests for captures
type CaptureHandler struct {
	service  capture.Service
	ingestor *ingest.Ingestor
}

// NewCaptureHandler creates a new capture handler
func NewCaptureHandler(service capture.Service, ingestor *ingest.Ingestor) *CaptureHandler {
	return &CaptureHandler{
		service:  service,
		ingestor: ingestor,
	}
}

// Routes returns the routes for captures
func (h *CaptureHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.UploadCapture)
	r.Get("/", h.ListCaptures)
	r.Get("/{id}", h.GetCapture)

	r.Post("/{id}/like", h.ToggleLike)
	r.Get("/{id}/likes", h.GetLikes)
	r.Get("/{id}/download", h.DownloadCapture)

	// Moderation routes; the service re-checks capabilities, the middleware
	// just fails fast.
	r.Group(func(r chi.Router) {
		r.Use(RequireCapability(capture.CapApproveCaptures))
		r.Post("/{id}/approve", h.ApproveCapture)
		r.Post("/{id}/reject", h.RejectCapture)
	})
	r.Group(func(r chi.Router) {
		r.Use(RequireCapability(capture.CapCaptures))
		r.Get("/admin", h.ListCapturesAdmin)
		r.Post("/{id}/visibility", h.ToggleVisibility)
	})

	return r
}

// UploadCapture ingests a multipart image upload and registers the capture.
// The capture row is written only after both asset variants are stored.
func (h *CaptureHandler) UploadCapture(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "image file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read upload", http.StatusBadRequest)
		return
	}

	eventName := capture.NormalizeEventName(r.FormValue("event_name"))
	if eventName == "" {
		http.Error(w, "event_name is required", http.StatusBadRequest)
		return
	}

	result, err := h.ingestor.Ingest(r.Context(), header.Filename, data)
	if err != nil {
		slog.Error("Failed to ingest capture asset", "file", header.Filename, "error", err)
		renderError(w, r, err)
		return
	}

	ident := IdentityFromContext(r.Context())
	req := capture.CreateCaptureRequest{
		EventName:      eventName,
		EventCategory:  r.FormValue("event_category"),
		OriginalPath:   result.Original.ObjectKey,
		CompressedPath: result.Compressed.ObjectKey,
		UploadType:     capture.UploadType(r.FormValue("upload_type")),
		AuthorID:       ident.AccountID,
	}
	if result.Thumbnail != nil {
		req.ThumbnailPath = result.Thumbnail.ObjectKey
	}

	c, err := h.service.CreateCapture(r.Context(), req)
	if err != nil {
		slog.Error("Failed to register capture", "error", err)
		renderError(w, r, err)
		return
	}

	slog.Info("Capture uploaded", "capture_id", c.ID, "event", c.EventName)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, c)
}

// ListCaptures lists publicly visible captures
func (h *CaptureHandler) ListCaptures(w http.ResponseWriter, r *http.Request) {
	req := capture.ListCapturesRequest{
		Filter: capture.CaptureFilter{
			EventName:     r.URL.Query().Get("event"),
			EventCategory: r.URL.Query().Get("category"),
			Day:           r.URL.Query().Get("day"),
		},
		Caller: IdentityFromContext(r.Context()),
	}

	captures, err := h.service.ListCaptures(r.Context(), req)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{"captures": captures})
}

// ListCapturesAdmin lists all captures regardless of state
func (h *CaptureHandler) ListCapturesAdmin(w http.ResponseWriter, r *http.Request) {
	req := capture.ListCapturesRequest{
		Filter: capture.CaptureFilter{
			EventName:     r.URL.Query().Get("event"),
			EventCategory: r.URL.Query().Get("category"),
			Day:           r.URL.Query().Get("day"),
			AdminScope:    true,
		},
		Caller: IdentityFromContext(r.Context()),
	}

	captures, err := h.service.ListCaptures(r.Context(), req)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{"captures": captures})
}

// GetCapture returns a single capture
func (h *CaptureHandler) GetCapture(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid capture ID", http.StatusBadRequest)
		return
	}

	c, err := h.service.GetCapture(r.Context(), IdentityFromContext(r.Context()), id)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, c)
}

// ApproveCapture moves a pending capture to approved
func (h *CaptureHandler) ApproveCapture(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.ApproveCapture)
}

// RejectCapture moves a pending capture to rejected
func (h *CaptureHandler) RejectCapture(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.RejectCapture)
}

func (h *CaptureHandler) decide(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, caller capture.Identity, id uuid.UUID) (*capture.Capture, error)) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid capture ID", http.StatusBadRequest)
		return
	}

	c, err := op(r.Context(), IdentityFromContext(r.Context()), id)
	if err != nil {
		renderError(w, r, err)
		return
	}

	slog.Info("Capture decided", "capture_id", c.ID, "state", c.State)
	render.JSON(w, r, c)
}

// ToggleVisibility flips an approved capture between active and inactive
func (h *CaptureHandler) ToggleVisibility(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid capture ID", http.StatusBadRequest)
		return
	}

	c, err := h.service.ToggleCaptureVisibility(r.Context(), IdentityFromContext(r.Context()), id)
	if err != nil {
		renderError(w, r, err)
		return
	}

	slog.Info("Capture visibility toggled", "capture_id", c.ID, "visibility", c.Visibility)
	render.JSON(w, r, c)
}

// ToggleLike toggles the caller's like on a capture
func (h *CaptureHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid capture ID", http.StatusBadRequest)
		return
	}

	result, err := h.service.ToggleLike(r.Context(), id, IdentityFromContext(r.Context()))
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, result)
}

// GetLikes returns the like total and whether the caller has liked
func (h *CaptureHandler) GetLikes(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid capture ID", http.StatusBadRequest)
		return
	}

	ident := IdentityFromContext(r.Context())
	liked, err := h.service.HasLiked(r.Context(), id, ident)
	if err != nil {
		renderError(w, r, err)
		return
	}
	total, err := h.service.GetTotalLikes(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, capture.LikeResult{Liked: liked, Total: total})
}

// DownloadCapture resolves the original asset URL and records the download
func (h *CaptureHandler) DownloadCapture(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid capture ID", http.StatusBadRequest)
		return
	}

	ident := IdentityFromContext(r.Context())
	c, err := h.service.GetCapture(r.Context(), ident, id)
	if err != nil {
		renderError(w, r, err)
		return
	}

	url, err := h.service.GetAssetURL(r.Context(), c.OriginalPath, path.Base(c.OriginalPath))
	if err != nil {
		renderError(w, r, err)
		return
	}

	if err := h.service.LogDownload(r.Context(), capture.LogDownloadRequest{
		AssetPath: c.OriginalPath,
		Caller:    ident,
	}); err != nil {
		// A failed log entry does not block the download itself.
		slog.Error("Failed to log download", "capture_id", c.ID, "error", err)
	}

	render.JSON(w, r, map[string]string{"url": url})
}
