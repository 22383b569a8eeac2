package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PRAHARSHITH-789/gala-backend/internal/model"
)

// EventRepository handles persistence for events and their ticket types.
// Soft-deleted events are invisible to every read.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.db, fn)
}

// EventFilter narrows List. Zero fields match everything.
type EventFilter struct {
	Status      model.EventStatus
	OrganizerID string
}

const eventColumns = `id, title, description, location, category, event_date, event_time,
	image, status, organizer_id, created_at, updated_at`

// Create inserts the event and its ticket types. Remaining starts at quantity.
func (r *EventRepository) Create(ctx context.Context, e *model.Event) error {
	return r.WithTx(ctx, func(ctx context.Context) error {
		q := conn(ctx, r.db)
		_, err := q.Exec(ctx,
			`INSERT INTO events (`+eventColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			e.ID, e.Title, e.Description, e.Location, e.Category, e.Date, e.Time,
			e.Image, e.Status, e.OrganizerID, e.CreatedAt, e.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		for i := range e.TicketTypes {
			e.TicketTypes[i].Remaining = e.TicketTypes[i].Quantity
			if err := r.InsertTicketType(ctx, e.ID, i, e.TicketTypes[i]); err != nil {
				return err
			}
		}
		e.Recount()
		return nil
	})
}

// Get returns a live event with its ticket types, or model.ErrNotFound.
func (r *EventRepository) Get(ctx context.Context, id string) (*model.Event, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate is Get with the event row locked until the transaction ends.
func (r *EventRepository) GetForUpdate(ctx context.Context, id string) (*model.Event, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *EventRepository) get(ctx context.Context, id, lock string) (*model.Event, error) {
	q := conn(ctx, r.db)
	e, err := scanEvent(q.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 AND deleted_at IS NULL`+lock,
		id,
	))
	if err != nil {
		if isNoRows(err) || isInvalidID(err) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if e.TicketTypes, err = listTicketTypes(ctx, q, e.ID); err != nil {
		return nil, err
	}
	e.Recount()
	return e, nil
}

// OrganizerOf returns the organizer of an event, including soft-deleted ones,
// so bookings of a removed event stay manageable.
func (r *EventRepository) OrganizerOf(ctx context.Context, eventID string) (string, error) {
	var organizer string
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT organizer_id FROM events WHERE id = $1`, eventID,
	).Scan(&organizer)
	if err != nil {
		if isNoRows(err) || isInvalidID(err) {
			return "", model.ErrNotFound
		}
		return "", fmt.Errorf("get event organizer: %w", err)
	}
	return organizer, nil
}

// List returns live events matching f, newest first.
func (r *EventRepository) List(ctx context.Context, f EventFilter) ([]model.Event, error) {
	where := []string{"deleted_at IS NULL"}
	var args []any
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.OrganizerID != "" {
		args = append(args, f.OrganizerID)
		where = append(where, fmt.Sprintf("organizer_id = $%d", len(args)))
	}

	q := conn(ctx, r.db)
	rows, err := q.Query(ctx,
		`SELECT `+eventColumns+` FROM events WHERE `+strings.Join(where, " AND ")+
			` ORDER BY created_at DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	events := []model.Event{}
	index := map[string]int{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.TicketTypes = []model.TicketType{}
		index[e.ID] = len(events)
		events = append(events, *e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if len(events) == 0 {
		return events, nil
	}

	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	typeRows, err := q.Query(ctx,
		`SELECT event_id, name, price::float8, quantity, remaining
		 FROM ticket_types
		 WHERE event_id = ANY($1::uuid[])
		 ORDER BY event_id, position, name`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("list ticket types: %w", err)
	}
	defer typeRows.Close()
	for typeRows.Next() {
		var eventID string
		var t model.TicketType
		if err := typeRows.Scan(&eventID, &t.Name, &t.Price, &t.Quantity, &t.Remaining); err != nil {
			return nil, fmt.Errorf("scan ticket type: %w", err)
		}
		i := index[eventID]
		events[i].TicketTypes = append(events[i].TicketTypes, t)
	}
	if err := typeRows.Err(); err != nil {
		return nil, fmt.Errorf("list ticket types: %w", err)
	}
	for i := range events {
		events[i].Recount()
	}
	return events, nil
}

// UpdateDetails rewrites the descriptive fields of an event.
func (r *EventRepository) UpdateDetails(ctx context.Context, e *model.Event) error {
	tag, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE events
		 SET title = $2, description = $3, location = $4, category = $5,
		     event_date = $6, event_time = $7, image = $8, updated_at = $9
		 WHERE id = $1 AND deleted_at IS NULL`,
		e.ID, e.Title, e.Description, e.Location, e.Category, e.Date, e.Time, e.Image, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// InsertTicketType adds a ticket type with remaining = quantity.
func (r *EventRepository) InsertTicketType(ctx context.Context, eventID string, position int, t model.TicketType) error {
	_, err := conn(ctx, r.db).Exec(ctx,
		`INSERT INTO ticket_types (event_id, name, position, price, quantity, remaining)
		 VALUES ($1, $2, $3, $4, $5, $5)`,
		eventID, t.Name, position, t.Price, t.Quantity,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Invalid("ticket type %q already exists", t.Name)
		}
		return fmt.Errorf("insert ticket type: %w", err)
	}
	return nil
}

// ResizeTicketType changes price, position and quantity of an existing type.
// Remaining moves by the quantity delta, so tickets already sold stay sold.
// A quantity below the number sold is rejected without touching the row.
func (r *EventRepository) ResizeTicketType(ctx context.Context, eventID string, position int, t model.TicketType) error {
	tag, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE ticket_types
		 SET price = $3, position = $4, remaining = remaining + ($5 - quantity), quantity = $5
		 WHERE event_id = $1 AND name = $2 AND quantity - remaining <= $5`,
		eventID, t.Name, t.Price, position, t.Quantity,
	)
	if err != nil {
		return fmt.Errorf("resize ticket type: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.Invalid("quantity of %q cannot drop below the tickets already sold", t.Name)
	}
	return nil
}

// DeleteTicketType removes a type nobody holds tickets for.
func (r *EventRepository) DeleteTicketType(ctx context.Context, eventID, name string) error {
	tag, err := conn(ctx, r.db).Exec(ctx,
		`DELETE FROM ticket_types WHERE event_id = $1 AND name = $2 AND remaining = quantity`,
		eventID, name,
	)
	if err != nil {
		return fmt.Errorf("delete ticket type: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.Invalid("ticket type %q has sold tickets and cannot be removed", name)
	}
	return nil
}

// Transition moves a live event from one status to another. It reports
// model.ErrInvalidTransition when the event exists but is not in from.
func (r *EventRepository) Transition(ctx context.Context, id string, from, to model.EventStatus, now time.Time) error {
	tag, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE events SET status = $3, updated_at = $4
		 WHERE id = $1 AND status = $2 AND deleted_at IS NULL`,
		id, from, to, now,
	)
	if err != nil {
		if isInvalidID(err) {
			return model.ErrNotFound
		}
		return fmt.Errorf("transition event: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return model.ErrInvalidTransition
}

// SoftDelete hides an event from every read. Bookings keep referencing it.
func (r *EventRepository) SoftDelete(ctx context.Context, id string, now time.Time) error {
	tag, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE events SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, now,
	)
	if err != nil {
		if isInvalidID(err) {
			return model.ErrNotFound
		}
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Analytics returns per-event sales figures for an organizer's live events,
// or for every live event when organizerID is empty.
func (r *EventRepository) Analytics(ctx context.Context, organizerID string) ([]model.EventAnalytics, error) {
	const query = `
SELECT e.id, e.title, e.status, e.event_date,
	COALESCE(t.sold, 0), COALESCE(t.total, 0),
	COALESCE(b.revenue, 0)::float8, COALESCE(b.bookings, 0), COALESCE(b.attended, 0)
FROM events e
LEFT JOIN (
	SELECT event_id, SUM(quantity - remaining) AS sold, SUM(quantity) AS total
	FROM ticket_types GROUP BY event_id
) t ON t.event_id = e.id
LEFT JOIN (
	SELECT event_id,
		SUM(total_price) FILTER (WHERE status <> 'Cancelled') AS revenue,
		COUNT(*) FILTER (WHERE status <> 'Cancelled') AS bookings,
		COUNT(*) FILTER (WHERE status = 'Attended') AS attended
	FROM bookings GROUP BY event_id
) b ON b.event_id = e.id
WHERE e.deleted_at IS NULL AND ($1 = '' OR e.organizer_id::text = $1)
ORDER BY e.created_at DESC`

	rows, err := conn(ctx, r.db).Query(ctx, query, organizerID)
	if err != nil {
		return nil, fmt.Errorf("event analytics: %w", err)
	}
	defer rows.Close()

	out := []model.EventAnalytics{}
	for rows.Next() {
		var a model.EventAnalytics
		if err := rows.Scan(&a.EventID, &a.Title, &a.Status, &a.Date,
			&a.TicketsSold, &a.TotalTickets, &a.Revenue, &a.Bookings, &a.Attended); err != nil {
			return nil, fmt.Errorf("scan analytics: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Location, &e.Category, &e.Date, &e.Time,
		&e.Image, &e.Status, &e.OrganizerID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
