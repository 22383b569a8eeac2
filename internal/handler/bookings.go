package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/PRAHARSHITH-789/gala-backend/internal/model"
)

// BookingService is the booking lifecycle the booking handlers drive.
type BookingService interface {
	Create(ctx context.Context, actor model.Principal, req model.CreateBookingRequest) (*model.Booking, error)
	Get(ctx context.Context, actor model.Principal, id string) (*model.Booking, error)
	ListForUser(ctx context.Context, actor model.Principal) ([]model.Booking, error)
	ListForEvent(ctx context.Context, actor model.Principal, eventID string) ([]model.Booking, error)
	Cancel(ctx context.Context, actor model.Principal, id string) (*model.Booking, error)
	MarkAttended(ctx context.Context, actor model.Principal, id string) (*model.Booking, error)
	Delete(ctx context.Context, actor model.Principal, id string) error
}

// TicketService redeems and renders QR tickets.
type TicketService interface {
	Verify(ctx context.Context, actor model.Principal, raw string) (*model.Booking, error)
	Lookup(ctx context.Context, raw string) (*model.TicketView, error)
	BookingQR(ctx context.Context, actor model.Principal, bookingID string) ([]byte, error)
	DataURL(token string) (string, error)
}

// EventLookup resolves the event a booking refers to.
type EventLookup interface {
	Get(ctx context.Context, actor model.Principal, id string) (*model.Event, error)
}

// BookingHandler holds the HTTP handlers for bookings and ticket scans.
type BookingHandler struct {
	svc     BookingService
	tickets TicketService
	events  EventLookup
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(svc BookingService, tickets TicketService, events EventLookup) *BookingHandler {
	return &BookingHandler{svc: svc, tickets: tickets, events: events}
}

type eventSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Location string `json:"location"`
	Category string `json:"category"`
	Image    string `json:"image,omitempty"`
}

// bookingJSON replaces the event id with a summary of the event when the
// caller can still see it.
type bookingJSON struct {
	model.Booking
	Event any `json:"event"`
}

// CreateBooking handles POST /bookings
// Reserves inventory and returns the booking with its QR code.
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req model.CreateBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.svc.Create(r.Context(), PrincipalFrom(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.present(r, []model.Booking{*b})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out[0])
}

// ListMyBookings handles GET /bookings/user
// Returns the caller's bookings, newest first.
func (h *BookingHandler) ListMyBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.svc.ListForUser(r.Context(), PrincipalFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.present(r, bookings)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ListEventBookings handles GET /events/{id}/bookings
func (h *BookingHandler) ListEventBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.svc.ListForEvent(r.Context(), PrincipalFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if bookings == nil {
		bookings = []model.Booking{}
	}
	writeJSON(w, http.StatusOK, bookings)
}

// GetBooking handles GET /bookings/{id}
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Get(r.Context(), PrincipalFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.present(r, []model.Booking{*b})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out[0])
}

// BookingQR handles GET /bookings/{id}/qr
// Responds with the ticket's QR code as a PNG image.
func (h *BookingHandler) BookingQR(w http.ResponseWriter, r *http.Request) {
	png, err := h.tickets.BookingQR(r.Context(), PrincipalFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// CancelBooking handles PUT /bookings/{id}/cancel
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Cancel(r.Context(), PrincipalFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "booking cancelled", "booking": b})
}

// MarkAttended handles PUT /bookings/{id}/attended
func (h *BookingHandler) MarkAttended(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.MarkAttended(r.Context(), PrincipalFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "booking marked as attended", "booking": b})
}

// DeleteBooking handles DELETE /bookings/{id}
func (h *BookingHandler) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), PrincipalFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "booking deleted")
}

// VerifyTicket handles POST /bookings/verify/{token}
// The first scan of a ticket succeeds; every replay gets 409 with the time
// of the first scan.
func (h *BookingHandler) VerifyTicket(w http.ResponseWriter, r *http.Request) {
	b, err := h.tickets.Verify(r.Context(), PrincipalFrom(r.Context()), chi.URLParam(r, "token"))
	if err != nil {
		var scanned *model.AlreadyScannedError
		if errors.As(err, &scanned) {
			writeJSON(w, http.StatusConflict, map[string]any{
				"message":        "ticket has already been scanned",
				"code":           "already_scanned",
				"alreadyScanned": true,
				"scannedAt":      scanned.ScannedAt,
				"booking":        scanned.Booking,
			})
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "ticket verified", "booking": b})
}

// TicketByToken handles GET /bookings/token/{token}
// Public view of a ticket; it never redeems.
func (h *BookingHandler) TicketByToken(w http.ResponseWriter, r *http.Request) {
	view, err := h.tickets.Lookup(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"booking": view})
}

// present decorates bookings for their owner with the event summary and,
// for live bookings, the QR image as a data URL.
func (h *BookingHandler) present(r *http.Request, bookings []model.Booking) ([]bookingJSON, error) {
	actor := PrincipalFrom(r.Context())
	seen := make(map[string]any)
	out := make([]bookingJSON, 0, len(bookings))
	for _, b := range bookings {
		ev, ok := seen[b.EventID]
		if !ok {
			ev = b.EventID
			e, err := h.events.Get(r.Context(), actor, b.EventID)
			switch {
			case err == nil:
				ev = eventSummary{
					ID:       e.ID,
					Title:    e.Title,
					Date:     e.Date,
					Time:     e.Time,
					Location: e.Location,
					Category: e.Category,
					Image:    e.Image,
				}
			case !errors.Is(err, model.ErrNotFound):
				return nil, err
			}
			seen[b.EventID] = ev
		}
		if b.QRToken != "" && b.Status == model.BookingBooked {
			qr, err := h.tickets.DataURL(b.QRToken)
			if err != nil {
				return nil, err
			}
			b.QRCode = qr
		}
		out = append(out, bookingJSON{Booking: b, Event: ev})
	}
	return out, nil
}
