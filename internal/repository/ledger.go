package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PRAHARSHITH-789/gala-backend/internal/model"
)

// LedgerRepository owns the per ticket type inventory counters.
//
// Both directions are single conditional UPDATE statements. Postgres takes the
// row lock for the duration of the statement, so two concurrent reservations
// for the last unit serialize on the ticket_types row and only one of them
// still sees remaining >= quantity.
type LedgerRepository struct {
	db *pgxpool.Pool
}

// NewLedgerRepository constructs a LedgerRepository.
func NewLedgerRepository(db *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.db, fn)
}

// Reserve takes qty tickets of the named type.
func (r *LedgerRepository) Reserve(ctx context.Context, eventID, ticketType string, qty int) (model.Reservation, error) {
	if qty <= 0 {
		return model.Reservation{}, model.Invalid("quantity must be at least 1")
	}

	const stmt = `
UPDATE ticket_types
SET remaining = remaining - $3
WHERE event_id = $1 AND name = $2 AND remaining >= $3
RETURNING price::float8, remaining`

	res := model.Reservation{EventID: eventID, TicketType: ticketType, Quantity: qty}
	err := conn(ctx, r.db).QueryRow(ctx, stmt, eventID, ticketType, qty).Scan(&res.Price, &res.Remaining)
	if err == nil {
		return res, nil
	}
	if !isNoRows(err) {
		if isInvalidID(err) {
			return model.Reservation{}, model.ErrTicketTypeNotFound
		}
		return model.Reservation{}, fmt.Errorf("reserve tickets: %w", err)
	}

	exists, err := r.typeExists(ctx, eventID, ticketType)
	if err != nil {
		return model.Reservation{}, err
	}
	if !exists {
		return model.Reservation{}, model.ErrTicketTypeNotFound
	}
	return model.Reservation{}, model.ErrInsufficientInventory
}

// Release returns qty tickets of the named type. The increment never pushes
// remaining above quantity; callers guard against releasing the same booking
// twice with BookingRepository.MarkReleased.
func (r *LedgerRepository) Release(ctx context.Context, eventID, ticketType string, qty int) error {
	const stmt = `
UPDATE ticket_types
SET remaining = LEAST(quantity, remaining + $3)
WHERE event_id = $1 AND name = $2`

	tag, err := conn(ctx, r.db).Exec(ctx, stmt, eventID, ticketType, qty)
	if err != nil {
		return fmt.Errorf("release tickets: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrTicketTypeNotFound
	}
	return nil
}

// Remaining returns the current counters of every ticket type of an event,
// in display order.
func (r *LedgerRepository) Remaining(ctx context.Context, eventID string) ([]model.TicketType, error) {
	return listTicketTypes(ctx, conn(ctx, r.db), eventID)
}

func (r *LedgerRepository) typeExists(ctx context.Context, eventID, ticketType string) (bool, error) {
	var exists bool
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM ticket_types WHERE event_id = $1 AND name = $2)`,
		eventID, ticketType,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("lookup ticket type: %w", err)
	}
	return exists, nil
}

func listTicketTypes(ctx context.Context, q querier, eventID string) ([]model.TicketType, error) {
	rows, err := q.Query(ctx,
		`SELECT name, price::float8, quantity, remaining
		 FROM ticket_types
		 WHERE event_id = $1
		 ORDER BY position, name`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list ticket types: %w", err)
	}
	defer rows.Close()

	types := []model.TicketType{}
	for rows.Next() {
		var t model.TicketType
		if err := rows.Scan(&t.Name, &t.Price, &t.Quantity, &t.Remaining); err != nil {
			return nil, fmt.Errorf("scan ticket type: %w", err)
		}
		types = append(types, t)
	}
	return types, rows.Err()
}
