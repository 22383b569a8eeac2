package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/PRAHARSHITH-789/gala-backend/internal/clock"
	"github.com/PRAHARSHITH-789/gala-backend/internal/model"
)

// priceTolerance absorbs float rounding of client-computed prices.
const priceTolerance = 0.005

// TicketIssuer mints the QR token bound to a new booking.
type TicketIssuer interface {
	Issue(bookingID string, now time.Time) (string, error)
}

// BookingService creates bookings against the inventory ledger and drives
// the Booked -> Attended | Cancelled state machine.
type BookingService struct {
	tx       Transactor
	events   EventStore
	ledger   Ledger
	bookings BookingStore
	tickets  TicketIssuer
	clock    clock.Clock
}

// NewBookingService constructs a BookingService with its dependencies.
func NewBookingService(tx Transactor, events EventStore, ledger Ledger, bookings BookingStore, tickets TicketIssuer, clk clock.Clock) *BookingService {
	return &BookingService{tx: tx, events: events, ledger: ledger, bookings: bookings, tickets: tickets, clock: clk}
}

// Create reserves inventory and stores the booking in one transaction. If
// the reservation fails no booking row exists afterwards.
func (s *BookingService) Create(ctx context.Context, actor model.Principal, req model.CreateBookingRequest) (*model.Booking, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, model.AsValidation(err)
	}

	event, err := s.events.Get(ctx, req.Event)
	if err != nil {
		return nil, err
	}
	if event.Status != model.EventApproved {
		return nil, model.ErrEventNotBookable
	}
	ticketType := req.TicketType
	if ticketType == "" {
		if len(event.TicketTypes) != 1 {
			return nil, model.Invalid("ticketType is required")
		}
		ticketType = event.TicketTypes[0].Name
	}

	var booking *model.Booking
	err = s.tx.WithTx(ctx, func(txCtx context.Context) error {
		res, err := s.ledger.Reserve(txCtx, event.ID, ticketType, req.TicketsBooked)
		if err != nil {
			return err
		}
		total := res.Price * float64(req.TicketsBooked)
		if req.PricePerTicket != nil && !samePrice(*req.PricePerTicket, res.Price) {
			return model.Invalid("pricePerTicket %.2f does not match the current price %.2f", *req.PricePerTicket, res.Price)
		}
		if req.TotalPrice != nil && !samePrice(*req.TotalPrice, total) {
			return model.Invalid("totalPrice %.2f does not match %.2f", *req.TotalPrice, total)
		}

		now := s.clock.Now()
		b := &model.Booking{
			ID:             uuid.NewString(),
			EventID:        event.ID,
			UserID:         actor.UserID,
			TicketType:     ticketType,
			TicketsBooked:  req.TicketsBooked,
			PricePerTicket: res.Price,
			TotalPrice:     math.Round(total*100) / 100,
			Status:         model.BookingBooked,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if b.QRToken, err = s.tickets.Issue(b.ID, now); err != nil {
			return err
		}
		if err := s.bookings.Insert(txCtx, b); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// Get returns a booking visible to actor: its owner, the event's organizer
// or an admin.
func (s *BookingService) Get(ctx context.Context, actor model.Principal, id string) (*model.Booking, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	b, err := s.bookings.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, b, true); err != nil {
		return nil, err
	}
	return b, nil
}

// ListForUser returns actor's own bookings.
func (s *BookingService) ListForUser(ctx context.Context, actor model.Principal) ([]model.Booking, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	return s.bookings.ListByUser(ctx, actor.UserID)
}

// ListForEvent returns every booking of an event to its organizer or an admin.
func (s *BookingService) ListForEvent(ctx context.Context, actor model.Principal, eventID string) ([]model.Booking, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	organizer, err := s.events.OrganizerOf(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !canManageEvent(actor, organizer) {
		return nil, model.ErrForbidden
	}
	return s.bookings.ListByEvent(ctx, eventID)
}

// Cancel moves a Booked booking to Cancelled and returns its tickets to the
// ledger. Repeated calls fail with model.ErrAlreadyCancelled and never
// release inventory twice.
func (s *BookingService) Cancel(ctx context.Context, actor model.Principal, id string) (*model.Booking, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}

	var out *model.Booking
	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		b, err := s.bookings.GetForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if err := s.authorize(txCtx, actor, b, true); err != nil {
			return err
		}
		switch b.Status {
		case model.BookingCancelled:
			return model.ErrAlreadyCancelled
		case model.BookingAttended:
			return model.ErrInvalidTransition
		}

		now := s.clock.Now()
		ok, err := s.bookings.Transition(txCtx, id, model.BookingBooked, model.BookingCancelled, now)
		if err != nil {
			return err
		}
		if !ok {
			return model.ErrInvalidTransition
		}
		if err := s.releaseOnce(txCtx, b, now); err != nil {
			return err
		}
		out, err = s.bookings.Get(txCtx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarkAttended records attendance without a scan. Organizer of the event or
// admin only, and only from Booked.
func (s *BookingService) MarkAttended(ctx context.Context, actor model.Principal, id string) (*model.Booking, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}

	var out *model.Booking
	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		b, err := s.bookings.GetForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if err := s.authorize(txCtx, actor, b, false); err != nil {
			return err
		}
		if b.Status != model.BookingBooked {
			return model.ErrInvalidTransition
		}
		ok, err := s.bookings.Transition(txCtx, id, model.BookingBooked, model.BookingAttended, s.clock.Now())
		if err != nil {
			return err
		}
		if !ok {
			return model.ErrInvalidTransition
		}
		out, err = s.bookings.Get(txCtx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a booking. A booking that still holds tickets gives them
// back first, in the same transaction.
func (s *BookingService) Delete(ctx context.Context, actor model.Principal, id string) error {
	if err := requireUser(actor); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(txCtx context.Context) error {
		b, err := s.bookings.GetForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if b.UserID != actor.UserID && !actor.IsAdmin() {
			return model.ErrNotFound
		}
		if b.Status == model.BookingBooked {
			if err := s.releaseOnce(txCtx, b, s.clock.Now()); err != nil {
				return err
			}
		}
		return s.bookings.Delete(txCtx, id)
	})
}

func (s *BookingService) releaseOnce(ctx context.Context, b *model.Booking, now time.Time) error {
	flipped, err := s.bookings.MarkReleased(ctx, b.ID, now)
	if err != nil {
		return err
	}
	if !flipped {
		return nil
	}
	if err := s.ledger.Release(ctx, b.EventID, b.TicketType, b.TicketsBooked); err != nil {
		return fmt.Errorf("release booking %s: %w", b.ID, err)
	}
	return nil
}

// authorize admits admins and the event's organizer. The owner is admitted
// when ownerAllowed is set. Callers that are neither get model.ErrNotFound,
// except the owner of a booking on an owner-forbidden action, who gets
// model.ErrForbidden.
func (s *BookingService) authorize(ctx context.Context, actor model.Principal, b *model.Booking, ownerAllowed bool) error {
	owner := b.UserID == actor.UserID
	if actor.IsAdmin() || (owner && ownerAllowed) {
		return nil
	}
	organizer, err := s.events.OrganizerOf(ctx, b.EventID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return err
	}
	if organizer != "" && organizer == actor.UserID {
		return nil
	}
	if owner {
		return model.ErrForbidden
	}
	return model.ErrNotFound
}

func samePrice(a, b float64) bool {
	return math.Abs(a-b) < priceTolerance
}
