package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/PRAHARSHITH-789/gala-backend/internal/model"
)

// EventService is the event lifecycle the event handlers drive.
type EventService interface {
	Create(ctx context.Context, actor model.Principal, req model.EventRequest) (*model.Event, error)
	Get(ctx context.Context, actor model.Principal, id string) (*model.Event, error)
	ListApproved(ctx context.Context) ([]model.Event, error)
	ListAll(ctx context.Context, actor model.Principal) ([]model.Event, error)
	ListForOrganizer(ctx context.Context, actor model.Principal) ([]model.Event, error)
	Update(ctx context.Context, actor model.Principal, id string, req model.EventRequest) (*model.Event, error)
	Delete(ctx context.Context, actor model.Principal, id string) error
	Approve(ctx context.Context, actor model.Principal, id string) (*model.Event, error)
	Decline(ctx context.Context, actor model.Principal, id string) (*model.Event, error)
	Analytics(ctx context.Context, actor model.Principal) (*model.AnalyticsReport, error)
}

// EventHandler holds the HTTP handlers for events.
type EventHandler struct {
	svc EventService
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc EventService) *EventHandler {
	return &EventHandler{svc: svc}
}

// CreateEvent handles POST /events
// The event starts Pending until an admin approves it.
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.EventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	event, err := h.svc.Create(r.Context(), PrincipalFrom(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events
// Returns a JSON array of approved events.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListApproved(r.Context())
	writeEvents(w, r, events, err)
}

// ListAllEvents handles GET /events/all (admin).
func (h *EventHandler) ListAllEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListAll(r.Context(), PrincipalFrom(r.Context()))
	writeEvents(w, r, events, err)
}

// ListMyEvents handles GET /users/events
func (h *EventHandler) ListMyEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListForOrganizer(r.Context(), PrincipalFrom(r.Context()))
	writeEvents(w, r, events, err)
}

// GetEvent handles GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.Get(r.Context(), PrincipalFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// UpdateEvent handles PUT /events/{id}
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.EventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	event, err := h.svc.Update(r.Context(), PrincipalFrom(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// DeleteEvent handles DELETE /events/{id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), PrincipalFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "event deleted")
}

// ApproveEvent handles PATCH /events/approveevent/{id}
func (h *EventHandler) ApproveEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.Approve(r.Context(), PrincipalFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "event approved", "event": event})
}

// DeclineEvent handles PATCH /events/decline/{id}
func (h *EventHandler) DeclineEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.Decline(r.Context(), PrincipalFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "event declined", "event": event})
}

// Analytics handles GET /users/events/analytics
func (h *EventHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Analytics(r.Context(), PrincipalFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if report.EventBreakdown == nil {
		report.EventBreakdown = []model.EventAnalytics{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"analytics": report})
}

func writeEvents(w http.ResponseWriter, r *http.Request, events []model.Event, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}
