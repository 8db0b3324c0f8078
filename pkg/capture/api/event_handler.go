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

// EventHandler handles HTTP requests for gallery events
type EventHandler struct {
	service capture.Service
}

// NewEventHandler creates a new event handler
func NewEventHandler(service capture.Service) *EventHandler {
	return &EventHandler{service: service}
}

// Routes returns the routes for events
func (h *EventHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListEvents)
	r.Get("/{name}", h.GetEventByName)

	r.Group(func(r chi.Router) {
		r.Use(RequireCapability(capture.CapEvents))
		r.Post("/", h.CreateEvent)
		r.Post("/{id}/visibility", h.ToggleVisibility)
	})

	return r
}

// CreateEventRequest is the request body for creating an event
type CreateEventRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Day         string `json:"day"`
	ImagePath   string `json:"image_path"`
}

// CreateEvent creates a new event
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	e, err := h.service.CreateEvent(r.Context(), IdentityFromContext(r.Context()), capture.CreateEventRequest{
		Name:        req.Name,
		Description: req.Description,
		Type:        capture.EventType(req.Type),
		Day:         capture.EventDay(req.Day),
		ImagePath:   req.ImagePath,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}

	slog.Info("Event created", "event_id", e.ID, "name", e.Name)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, e)
}

// ListEvents lists events, optionally filtered by name, type, or day
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.ListEvents(r.Context(), capture.EventFilter{
		Name: r.URL.Query().Get("name"),
		Type: capture.EventType(r.URL.Query().Get("type")),
		Day:  capture.EventDay(r.URL.Query().Get("day")),
	})
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{"events": events})
}

// GetEventByName returns one event looked up by route name. Hyphens in the
// route segment stand in for spaces in the stored name.
func (h *EventHandler) GetEventByName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	e, err := h.service.GetEventByName(r.Context(), name)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, e)
}

// ToggleVisibility flips an event between active and inactive
func (h *EventHandler) ToggleVisibility(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid event ID", http.StatusBadRequest)
		return
	}

	e, err := h.service.ToggleEventVisibility(r.Context(), IdentityFromContext(r.Context()), id)
	if err != nil {
		renderError(w, r, err)
		return
	}

	slog.Info("Event visibility toggled", "event_id", e.ID, "visibility", e.Visibility)
	render.JSON(w, r, e)
}
