package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/PRAHARSHITH-789/gala-backend/internal/clock"
	"github.com/PRAHARSHITH-789/gala-backend/internal/model"
	"github.com/PRAHARSHITH-789/gala-backend/internal/repository"
)

// EventService runs the event lifecycle: organizers create and edit events,
// admins move them out of Pending, and only approved events are public.
type EventService struct {
	tx     Transactor
	events EventStore
	clock  clock.Clock
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(tx Transactor, events EventStore, clk clock.Clock) *EventService {
	return &EventService{tx: tx, events: events, clock: clk}
}

// Create stores a new Pending event owned by actor.
func (s *EventService) Create(ctx context.Context, actor model.Principal, req model.EventRequest) (*model.Event, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	if actor.Role != model.RoleOrganizer && actor.Role != model.RoleAdmin {
		return nil, model.ErrForbidden
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, model.AsValidation(err)
	}

	now := s.clock.Now()
	e := &model.Event{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Category:    req.Category,
		Date:        req.Date,
		Time:        req.Time,
		Image:       req.Image,
		Status:      model.EventPending,
		OrganizerID: actor.UserID,
		TicketTypes: ticketTypes(req.TicketTypes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.events.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return e, nil
}

// Get returns an event. Approved events are public; the others are visible
// only to their organizer and to admins.
func (s *EventService) Get(ctx context.Context, actor model.Principal, id string) (*model.Event, error) {
	e, err := s.events.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status != model.EventApproved && !canManageEvent(actor, e.OrganizerID) {
		return nil, model.ErrNotFound
	}
	return e, nil
}

// ListApproved returns the public catalogue.
func (s *EventService) ListApproved(ctx context.Context) ([]model.Event, error) {
	return s.events.List(ctx, repository.EventFilter{Status: model.EventApproved})
}

// ListAll returns events in every status. Admin only.
func (s *EventService) ListAll(ctx context.Context, actor model.Principal) ([]model.Event, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.events.List(ctx, repository.EventFilter{})
}

// ListForOrganizer returns the events actor created, in every status.
func (s *EventService) ListForOrganizer(ctx context.Context, actor model.Principal) ([]model.Event, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	return s.events.List(ctx, repository.EventFilter{OrganizerID: actor.UserID})
}

// Update replaces the content of an event and reconciles its ticket types:
// existing types are resized without losing sold tickets, new types are
// added, and omitted types are dropped only when none were sold.
func (s *EventService) Update(ctx context.Context, actor model.Principal, id string, req model.EventRequest) (*model.Event, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, model.AsValidation(err)
	}

	var updated *model.Event
	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		current, err := s.events.GetForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if !canManageEvent(actor, current.OrganizerID) {
			return model.ErrForbidden
		}

		current.Title = req.Title
		current.Description = req.Description
		current.Location = req.Location
		current.Category = req.Category
		current.Date = req.Date
		current.Time = req.Time
		current.Image = req.Image
		current.UpdatedAt = s.clock.Now()
		if err := s.events.UpdateDetails(txCtx, current); err != nil {
			return err
		}

		wanted := ticketTypes(req.TicketTypes)
		keep := make(map[string]bool, len(wanted))
		for _, t := range wanted {
			keep[t.Name] = true
		}
		for _, t := range current.TicketTypes {
			if !keep[t.Name] {
				if err := s.events.DeleteTicketType(txCtx, id, t.Name); err != nil {
					return err
				}
			}
		}
		for i, t := range wanted {
			if _, exists := current.FindTicketType(t.Name); exists {
				err = s.events.ResizeTicketType(txCtx, id, i, t)
			} else {
				err = s.events.InsertTicketType(txCtx, id, i, t)
			}
			if err != nil {
				return err
			}
		}

		updated, err = s.events.Get(txCtx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete soft-deletes an event. Existing bookings are left untouched.
func (s *EventService) Delete(ctx context.Context, actor model.Principal, id string) error {
	if err := requireUser(actor); err != nil {
		return err
	}
	e, err := s.events.Get(ctx, id)
	if err != nil {
		return err
	}
	if !canManageEvent(actor, e.OrganizerID) {
		return model.ErrForbidden
	}
	return s.events.SoftDelete(ctx, id, s.clock.Now())
}

// Approve publishes a Pending event. Admin only.
func (s *EventService) Approve(ctx context.Context, actor model.Principal, id string) (*model.Event, error) {
	return s.decide(ctx, actor, id, model.EventApproved)
}

// Decline rejects a Pending event. Admin only. Declined events are terminal.
func (s *EventService) Decline(ctx context.Context, actor model.Principal, id string) (*model.Event, error) {
	return s.decide(ctx, actor, id, model.EventDeclined)
}

func (s *EventService) decide(ctx context.Context, actor model.Principal, id string, to model.EventStatus) (*model.Event, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.events.Transition(ctx, id, model.EventPending, to, s.clock.Now()); err != nil {
		if errors.Is(err, model.ErrInvalidTransition) || errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("transition event: %w", err)
	}
	return s.events.Get(ctx, id)
}

// Analytics summarises sales of actor's events. Admins see every event.
func (s *EventService) Analytics(ctx context.Context, actor model.Principal) (*model.AnalyticsReport, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	if actor.Role != model.RoleOrganizer && actor.Role != model.RoleAdmin {
		return nil, model.ErrForbidden
	}
	organizer := actor.UserID
	if actor.IsAdmin() {
		organizer = ""
	}

	rows, err := s.events.Analytics(ctx, organizer)
	if err != nil {
		return nil, err
	}
	report := &model.AnalyticsReport{EventBreakdown: rows, TotalEvents: len(rows)}
	for _, r := range rows {
		report.TotalSold += r.TicketsSold
		report.TotalRevenue += r.Revenue
	}
	return report, nil
}

func ticketTypes(in []model.TicketTypeInput) []model.TicketType {
	out := make([]model.TicketType, len(in))
	for i, t := range in {
		out[i] = model.TicketType{Name: t.Name, Price: t.Price, Quantity: t.Quantity, Remaining: t.Quantity}
	}
	return out
}
