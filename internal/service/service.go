// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
//
// Services depend on the small store interfaces declared here rather than on
// concrete repositories, and group multi-step writes with Transactor.WithTx so
// a failure at any step leaves no partial state behind.
package service

import (
	"context"
	"time"

	"github.com/PRAHARSHITH-789/gala-backend/internal/model"
	"github.com/PRAHARSHITH-789/gala-backend/internal/repository"
)

// Transactor runs fn in a single database transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventStore persists events and their ticket types.
type EventStore interface {
	Create(ctx context.Context, e *model.Event) error
	Get(ctx context.Context, id string) (*model.Event, error)
	GetForUpdate(ctx context.Context, id string) (*model.Event, error)
	OrganizerOf(ctx context.Context, eventID string) (string, error)
	List(ctx context.Context, f repository.EventFilter) ([]model.Event, error)
	UpdateDetails(ctx context.Context, e *model.Event) error
	InsertTicketType(ctx context.Context, eventID string, position int, t model.TicketType) error
	ResizeTicketType(ctx context.Context, eventID string, position int, t model.TicketType) error
	DeleteTicketType(ctx context.Context, eventID, name string) error
	Transition(ctx context.Context, id string, from, to model.EventStatus, now time.Time) error
	SoftDelete(ctx context.Context, id string, now time.Time) error
	Analytics(ctx context.Context, organizerID string) ([]model.EventAnalytics, error)
}

// Ledger reserves and releases ticket inventory.
type Ledger interface {
	Reserve(ctx context.Context, eventID, ticketType string, qty int) (model.Reservation, error)
	Release(ctx context.Context, eventID, ticketType string, qty int) error
}

// BookingStore persists bookings.
type BookingStore interface {
	Insert(ctx context.Context, b *model.Booking) error
	Get(ctx context.Context, id string) (*model.Booking, error)
	GetForUpdate(ctx context.Context, id string) (*model.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]model.Booking, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.Booking, error)
	Transition(ctx context.Context, id string, from, to model.BookingStatus, now time.Time) (bool, error)
	MarkReleased(ctx context.Context, id string, now time.Time) (bool, error)
	Redeem(ctx context.Context, id string, now time.Time) (*model.Booking, bool, error)
	Delete(ctx context.Context, id string) error
	TicketView(ctx context.Context, id string) (*model.TicketView, error)
}

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	Get(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, u *model.User) error
	Delete(ctx context.Context, id string) error
}

// SessionStore persists logins.
type SessionStore interface {
	Create(ctx context.Context, s *model.Session) error
	Get(ctx context.Context, id string) (*model.Session, error)
	Revoke(ctx context.Context, id string, now time.Time) error
	RevokeAllForUser(ctx context.Context, userID string, now time.Time) error
	RevokeOthersForUser(ctx context.Context, userID, keepID string, now time.Time) error
}

// OTPStore persists one-time code challenges.
type OTPStore interface {
	Replace(ctx context.Context, c *model.OTPChallenge) error
	LatestOpen(ctx context.Context, email string, purpose model.OTPPurpose) (*model.OTPChallenge, error)
	LatestUnconsumed(ctx context.Context, email string, purpose model.OTPPurpose) (*model.OTPChallenge, error)
	RecordFailure(ctx context.Context, id string, maxAttempts int, now time.Time) (int, error)
	Consume(ctx context.Context, id string, now time.Time) error
}

func requireUser(actor model.Principal) error {
	if actor.UserID == "" {
		return model.ErrUnauthorized
	}
	return nil
}

func requireAdmin(actor model.Principal) error {
	if err := requireUser(actor); err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return model.ErrForbidden
	}
	return nil
}

// canManageEvent reports whether actor may act as the organizer of an event
// owned by organizerID.
func canManageEvent(actor model.Principal, organizerID string) bool {
	return actor.IsAdmin() || (actor.UserID != "" && actor.UserID == organizerID)
}
