package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PRAHARSHITH-789/gala-backend/internal/model"
)

// BookingRepository handles persistence for bookings. Every status change is
// a conditional UPDATE on the booking row, so concurrent cancel, attend and
// scan requests serialize on that row and at most one of them wins.
type BookingRepository struct {
	db *pgxpool.Pool
}

// NewBookingRepository constructs a BookingRepository.
func NewBookingRepository(db *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.db, fn)
}

const bookingColumns = `id, event_id, user_id, ticket_type, tickets_booked,
	price_per_ticket::float8, total_price::float8, status, qr_token, qr_code_used,
	qr_code_scanned_at, inventory_released, created_at, updated_at`

// Insert stores a new booking.
func (r *BookingRepository) Insert(ctx context.Context, b *model.Booking) error {
	_, err := conn(ctx, r.db).Exec(ctx,
		`INSERT INTO bookings (id, event_id, user_id, ticket_type, tickets_booked,
			price_per_ticket, total_price, status, qr_token, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		b.ID, b.EventID, b.UserID, b.TicketType, b.TicketsBooked,
		b.PricePerTicket, b.TotalPrice, b.Status, b.QRToken, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert booking: duplicate id or token: %w", err)
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// Get returns a booking or model.ErrNotFound.
func (r *BookingRepository) Get(ctx context.Context, id string) (*model.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

// GetForUpdate is Get with the booking row locked until the transaction ends.
func (r *BookingRepository) GetForUpdate(ctx context.Context, id string) (*model.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
}

func (r *BookingRepository) getOne(ctx context.Context, query, id string) (*model.Booking, error) {
	b, err := scanBooking(conn(ctx, r.db).QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) || isInvalidID(err) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// ListByUser returns a user's bookings, newest first.
func (r *BookingRepository) ListByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

// ListByEvent returns an event's bookings, newest first.
func (r *BookingRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE event_id = $1 ORDER BY created_at DESC`, eventID)
}

func (r *BookingRepository) list(ctx context.Context, query, arg string) ([]model.Booking, error) {
	rows, err := conn(ctx, r.db).Query(ctx, query, arg)
	if err != nil {
		if isInvalidID(err) {
			return []model.Booking{}, nil
		}
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	bookings := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// Transition moves a booking from one status to another. It returns false
// when the booking was no longer in from.
func (r *BookingRepository) Transition(ctx context.Context, id string, from, to model.BookingStatus, now time.Time) (bool, error) {
	tag, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE bookings SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
		id, from, to, now,
	)
	if err != nil {
		return false, fmt.Errorf("transition booking: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkReleased flips the inventory_released flag. It returns true only for the
// call that actually flipped it; the caller releases inventory exactly then.
func (r *BookingRepository) MarkReleased(ctx context.Context, id string, now time.Time) (bool, error) {
	tag, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE bookings SET inventory_released = TRUE, updated_at = $2
		 WHERE id = $1 AND inventory_released = FALSE`,
		id, now,
	)
	if err != nil {
		return false, fmt.Errorf("mark booking released: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Redeem consumes the QR code of a booking. The single statement is the
// redemption gate: only one caller can observe qr_code_used = false, and a
// cancellation committed first makes the row ineligible. ok is false when
// nothing was updated.
func (r *BookingRepository) Redeem(ctx context.Context, id string, now time.Time) (b *model.Booking, ok bool, err error) {
	b, err = scanBooking(conn(ctx, r.db).QueryRow(ctx,
		`UPDATE bookings
		 SET qr_code_used = TRUE, qr_code_scanned_at = $2, status = 'Attended', updated_at = $2
		 WHERE id = $1 AND qr_code_used = FALSE AND status <> 'Cancelled'
		 RETURNING `+bookingColumns,
		id, now,
	))
	if err != nil {
		if isNoRows(err) {
			return nil, false, nil
		}
		if isInvalidID(err) {
			return nil, false, model.ErrNotFound
		}
		return nil, false, fmt.Errorf("redeem booking: %w", err)
	}
	return b, true, nil
}

// Delete removes a booking row.
func (r *BookingRepository) Delete(ctx context.Context, id string) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		if isInvalidID(err) {
			return model.ErrNotFound
		}
		return fmt.Errorf("delete booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// TicketView joins a booking with its event and holder for the public
// ticket page.
func (r *BookingRepository) TicketView(ctx context.Context, id string) (*model.TicketView, error) {
	var v model.TicketView
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT b.id, e.title, e.event_date, e.event_time, e.location, u.name,
			b.ticket_type, b.tickets_booked, b.total_price::float8, b.qr_code_used,
			b.qr_code_scanned_at, b.status
		 FROM bookings b
		 JOIN events e ON e.id = b.event_id
		 JOIN users u ON u.id = b.user_id
		 WHERE b.id = $1`,
		id,
	).Scan(&v.ID, &v.EventTitle, &v.EventDate, &v.EventTime, &v.EventLocation, &v.UserName,
		&v.TicketType, &v.TicketsBooked, &v.TotalPrice, &v.QRCodeUsed, &v.ScannedAt, &v.Status)
	if err != nil {
		if isNoRows(err) || isInvalidID(err) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("ticket view: %w", err)
	}
	return &v, nil
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.EventID, &b.UserID, &b.TicketType, &b.TicketsBooked,
		&b.PricePerTicket, &b.TotalPrice, &b.Status, &b.QRToken, &b.QRCodeUsed,
		&b.QRCodeScannedAt, &b.InventoryReleased, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
