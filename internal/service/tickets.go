package service

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"

	"github.com/PRAHARSHITH-789/gala-backend/internal/clock"
	"github.com/PRAHARSHITH-789/gala-backend/internal/model"
)

// QRSize is the edge length in pixels of rendered ticket codes.
const QRSize = 256

// TicketParser verifies a QR token and returns the booking it names.
type TicketParser interface {
	Parse(raw string) (string, error)
}

// TicketGate redeems QR tickets. Each booking's token can be redeemed at most
// once: the redemption is a single conditional update on the booking row, so
// two simultaneous scans cannot both succeed and a committed cancellation
// always wins over a later scan.
type TicketGate struct {
	events   EventStore
	bookings BookingStore
	parser   TicketParser
	clock    clock.Clock
	baseURL  string
}

// NewTicketGate constructs a TicketGate. baseURL is the front-end origin the
// QR image points at.
func NewTicketGate(events EventStore, bookings BookingStore, parser TicketParser, clk clock.Clock, baseURL string) *TicketGate {
	return &TicketGate{
		events:   events,
		bookings: bookings,
		parser:   parser,
		clock:    clk,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// Verify redeems raw on behalf of a scanner. The first successful call
// returns the Attended booking; every later call returns an
// *model.AlreadyScannedError carrying the original scan time.
func (g *TicketGate) Verify(ctx context.Context, actor model.Principal, raw string) (*model.Booking, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	b, err := g.resolve(ctx, raw)
	if err != nil {
		return nil, err
	}
	organizer, err := g.events.OrganizerOf(ctx, b.EventID)
	if err != nil {
		return nil, err
	}
	if !canManageEvent(actor, organizer) {
		return nil, model.ErrForbidden
	}

	redeemed, ok, err := g.bookings.Redeem(ctx, b.ID, g.clock.Now())
	if err != nil {
		return nil, err
	}
	if ok {
		return redeemed, nil
	}

	current, err := g.bookings.Get(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	switch {
	case current.Status == model.BookingCancelled:
		return nil, model.ErrBookingCancelled
	case current.QRCodeUsed && current.QRCodeScannedAt != nil:
		return nil, &model.AlreadyScannedError{ScannedAt: *current.QRCodeScannedAt, Booking: *current}
	}
	return nil, fmt.Errorf("redeem booking %s: %w", b.ID, model.ErrInvalidTransition)
}

// Lookup returns the public ticket view for raw. It does not redeem.
func (g *TicketGate) Lookup(ctx context.Context, raw string) (*model.TicketView, error) {
	b, err := g.resolve(ctx, raw)
	if err != nil {
		return nil, err
	}
	return g.bookings.TicketView(ctx, b.ID)
}

// BookingQR renders the QR code of a booking visible to actor.
func (g *TicketGate) BookingQR(ctx context.Context, actor model.Principal, bookingID string) ([]byte, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	b, err := g.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != actor.UserID && !actor.IsAdmin() {
		organizer, err := g.events.OrganizerOf(ctx, b.EventID)
		if err != nil {
			return nil, err
		}
		if organizer != actor.UserID {
			return nil, model.ErrNotFound
		}
	}
	return g.QRCode(b.QRToken)
}

// QRCode renders the PNG that encodes the verify URL of token.
func (g *TicketGate) QRCode(token string) ([]byte, error) {
	png, err := qrcode.Encode(g.VerifyURL(token), qrcode.Medium, QRSize)
	if err != nil {
		return nil, fmt.Errorf("render qr code: %w", err)
	}
	return png, nil
}

// DataURL renders token as an inline PNG data URL for API responses.
func (g *TicketGate) DataURL(token string) (string, error) {
	png, err := g.QRCode(token)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// VerifyURL is the front-end page a scanned code opens.
func (g *TicketGate) VerifyURL(token string) string {
	return g.baseURL + "/verify/" + url.PathEscape(token)
}

// resolve maps a presented token to its booking. The token must be the one
// stored on the booking, so a validly signed but superseded token is
// rejected as unknown.
func (g *TicketGate) resolve(ctx context.Context, raw string) (*model.Booking, error) {
	id, err := g.parser.Parse(raw)
	if err != nil {
		return nil, err
	}
	b, err := g.bookings.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(b.QRToken), []byte(strings.TrimSpace(raw))) != 1 {
		return nil, model.ErrNotFound
	}
	return b, nil
}
