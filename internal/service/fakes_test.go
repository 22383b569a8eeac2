package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/PRAHARSHITH-789/gala-backend/internal/model"
	"github.com/PRAHARSHITH-789/gala-backend/internal/repository"
)

// memDB is an in-memory stand-in for every store the services use. A single
// mutex makes each method atomic, which is what the conditional SQL updates
// guarantee in Postgres. WithTx serializes transactions, snapshots state and
// restores it when fn fails.
type memDB struct {
	txMu       sync.Mutex
	mu         sync.Mutex
	events     map[string]*model.Event
	deleted    map[string]bool
	bookings   map[string]*model.Booking
	users      map[string]*model.User
	sessions   map[string]*model.Session
	challenges []*model.OTPChallenge
}

func newMemDB() *memDB {
	return &memDB{
		events:   map[string]*model.Event{},
		deleted:  map[string]bool{},
		bookings: map[string]*model.Booking{},
		users:    map[string]*model.User{},
		sessions: map[string]*model.Session{},
	}
}

func (m *memDB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	m.mu.Lock()
	snap := m.snapshot()
	m.mu.Unlock()
	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.restore(snap)
		m.mu.Unlock()
		return err
	}
	return nil
}

type memSnapshot struct {
	events     map[string]model.Event
	deleted    map[string]bool
	bookings   map[string]model.Booking
	users      map[string]model.User
	challenges []model.OTPChallenge
}

func (m *memDB) snapshot() memSnapshot {
	s := memSnapshot{
		events:   map[string]model.Event{},
		deleted:  map[string]bool{},
		bookings: map[string]model.Booking{},
		users:    map[string]model.User{},
	}
	for k, v := range m.events {
		e := *v
		e.TicketTypes = append([]model.TicketType(nil), v.TicketTypes...)
		s.events[k] = e
	}
	for k, v := range m.deleted {
		s.deleted[k] = v
	}
	for k, v := range m.bookings {
		s.bookings[k] = *v
	}
	for k, v := range m.users {
		s.users[k] = *v
	}
	for _, c := range m.challenges {
		s.challenges = append(s.challenges, *c)
	}
	return s
}

func (m *memDB) restore(s memSnapshot) {
	m.events = map[string]*model.Event{}
	for k, v := range s.events {
		e := v
		m.events[k] = &e
	}
	m.deleted = s.deleted
	m.bookings = map[string]*model.Booking{}
	for k, v := range s.bookings {
		b := v
		m.bookings[k] = &b
	}
	m.users = map[string]*model.User{}
	for k, v := range s.users {
		u := v
		m.users[k] = &u
	}
	m.challenges = nil
	for _, c := range s.challenges {
		c := c
		m.challenges = append(m.challenges, &c)
	}
}

// events

type memEvents struct{ *memDB }

func (m memEvents) Create(_ context.Context, e *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range e.TicketTypes {
		e.TicketTypes[i].Remaining = e.TicketTypes[i].Quantity
	}
	e.Recount()
	cp := *e
	cp.TicketTypes = append([]model.TicketType(nil), e.TicketTypes...)
	m.events[e.ID] = &cp
	return nil
}

func (m memEvents) Get(_ context.Context, id string) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(id)
}

func (m memEvents) GetForUpdate(ctx context.Context, id string) (*model.Event, error) {
	return m.Get(ctx, id)
}

func (m memEvents) getLocked(id string) (*model.Event, error) {
	e, ok := m.events[id]
	if !ok || m.deleted[id] {
		return nil, model.ErrNotFound
	}
	cp := *e
	cp.TicketTypes = append([]model.TicketType{}, e.TicketTypes...)
	cp.Recount()
	return &cp, nil
}

func (m memEvents) OrganizerOf(_ context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return "", model.ErrNotFound
	}
	return e.OrganizerID, nil
}

func (m memEvents) List(_ context.Context, f repository.EventFilter) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Event{}
	for id, e := range m.events {
		if m.deleted[id] || (f.Status != "" && e.Status != f.Status) ||
			(f.OrganizerID != "" && e.OrganizerID != f.OrganizerID) {
			continue
		}
		cp, _ := m.getLocked(id)
		out = append(out, *cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (m memEvents) UpdateDetails(_ context.Context, e *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.events[e.ID]
	if !ok || m.deleted[e.ID] {
		return model.ErrNotFound
	}
	types := cur.TicketTypes
	*cur = *e
	cur.TicketTypes = types
	return nil
}

func (m memEvents) InsertTicketType(_ context.Context, eventID string, _ int, t model.TicketType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.events[eventID]
	for _, existing := range e.TicketTypes {
		if existing.Name == t.Name {
			return model.Invalid("ticket type %q already exists", t.Name)
		}
	}
	t.Remaining = t.Quantity
	e.TicketTypes = append(e.TicketTypes, t)
	return nil
}

func (m memEvents) ResizeTicketType(_ context.Context, eventID string, _ int, t model.TicketType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.events[eventID]
	for i, existing := range e.TicketTypes {
		if existing.Name != t.Name {
			continue
		}
		if existing.Sold() > t.Quantity {
			return model.Invalid("quantity of %q cannot drop below the tickets already sold", t.Name)
		}
		e.TicketTypes[i].Remaining += t.Quantity - existing.Quantity
		e.TicketTypes[i].Quantity = t.Quantity
		e.TicketTypes[i].Price = t.Price
		return nil
	}
	return model.ErrTicketTypeNotFound
}

func (m memEvents) DeleteTicketType(_ context.Context, eventID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.events[eventID]
	for i, existing := range e.TicketTypes {
		if existing.Name == name {
			if existing.Sold() > 0 {
				return model.Invalid("ticket type %q has sold tickets and cannot be removed", name)
			}
			e.TicketTypes = append(e.TicketTypes[:i], e.TicketTypes[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m memEvents) Transition(_ context.Context, id string, from, to model.EventStatus, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok || m.deleted[id] {
		return model.ErrNotFound
	}
	if e.Status != from {
		return model.ErrInvalidTransition
	}
	e.Status = to
	e.UpdatedAt = now
	return nil
}

func (m memEvents) SoftDelete(_ context.Context, id string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok || m.deleted[id] {
		return model.ErrNotFound
	}
	m.deleted[id] = true
	return nil
}

func (m memEvents) Analytics(_ context.Context, organizerID string) ([]model.EventAnalytics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.EventAnalytics{}
	for id, e := range m.events {
		if m.deleted[id] || (organizerID != "" && e.OrganizerID != organizerID) {
			continue
		}
		a := model.EventAnalytics{EventID: id, Title: e.Title, Status: e.Status, Date: e.Date}
		for _, t := range e.TicketTypes {
			a.TicketsSold += t.Sold()
			a.TotalTickets += t.Quantity
		}
		for _, b := range m.bookings {
			if b.EventID != id || b.Status == model.BookingCancelled {
				continue
			}
			a.Bookings++
			a.Revenue += b.TotalPrice
			if b.Status == model.BookingAttended {
				a.Attended++
			}
		}
		out = append(out, a)
	}
	return out, nil
}

// ledger

type memLedger struct{ *memDB }

func (m memLedger) Reserve(_ context.Context, eventID, name string, qty int) (model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[eventID]
	if !ok {
		return model.Reservation{}, model.ErrTicketTypeNotFound
	}
	for i, t := range e.TicketTypes {
		if t.Name != name {
			continue
		}
		if t.Remaining < qty {
			return model.Reservation{}, model.ErrInsufficientInventory
		}
		e.TicketTypes[i].Remaining -= qty
		return model.Reservation{EventID: eventID, TicketType: name, Quantity: qty,
			Price: t.Price, Remaining: e.TicketTypes[i].Remaining}, nil
	}
	return model.Reservation{}, model.ErrTicketTypeNotFound
}

func (m memLedger) Release(_ context.Context, eventID, name string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[eventID]
	if !ok {
		return model.ErrTicketTypeNotFound
	}
	for i, t := range e.TicketTypes {
		if t.Name == name {
			e.TicketTypes[i].Remaining = min(t.Quantity, t.Remaining+qty)
			return nil
		}
	}
	return model.ErrTicketTypeNotFound
}

// bookings

type memBookings struct{ *memDB }

func (m memBookings) Insert(_ context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m memBookings) Get(_ context.Context, id string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m memBookings) GetForUpdate(ctx context.Context, id string) (*model.Booking, error) {
	return m.Get(ctx, id)
}

func (m memBookings) ListByUser(_ context.Context, userID string) ([]model.Booking, error) {
	return m.filter(func(b *model.Booking) bool { return b.UserID == userID }), nil
}

func (m memBookings) ListByEvent(_ context.Context, eventID string) ([]model.Booking, error) {
	return m.filter(func(b *model.Booking) bool { return b.EventID == eventID }), nil
}

func (m memBookings) filter(keep func(*model.Booking) bool) []model.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Booking{}
	for _, b := range m.bookings {
		if keep(b) {
			out = append(out, *b)
		}
	}
	return out
}

func (m memBookings) Transition(_ context.Context, id string, from, to model.BookingStatus, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	b.UpdatedAt = now
	return true, nil
}

func (m memBookings) MarkReleased(_ context.Context, id string, _ time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.InventoryReleased {
		return false, nil
	}
	b.InventoryReleased = true
	return true, nil
}

func (m memBookings) Redeem(_ context.Context, id string, now time.Time) (*model.Booking, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.QRCodeUsed || b.Status == model.BookingCancelled {
		return nil, false, nil
	}
	at := now
	b.QRCodeUsed = true
	b.QRCodeScannedAt = &at
	b.Status = model.BookingAttended
	cp := *b
	return &cp, true, nil
}

func (m memBookings) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[id]; !ok {
		return model.ErrNotFound
	}
	delete(m.bookings, id)
	return nil
}

func (m memBookings) TicketView(_ context.Context, id string) (*model.TicketView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	e := m.events[b.EventID]
	u := m.users[b.UserID]
	v := &model.TicketView{ID: b.ID, EventTitle: e.Title, EventDate: e.Date, EventTime: e.Time,
		EventLocation: e.Location, TicketType: b.TicketType, TicketsBooked: b.TicketsBooked,
		TotalPrice: b.TotalPrice, QRCodeUsed: b.QRCodeUsed, ScannedAt: b.QRCodeScannedAt, Status: b.Status}
	if u != nil {
		v.UserName = u.Name
	}
	return v, nil
}

// users

type memUsers struct{ *memDB }

func (m memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = normalizeEmail(u.Email)
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return model.ErrEmailTaken
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m memUsers) Get(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == normalizeEmail(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, model.ErrNotFound
}

func (m memUsers) EmailTaken(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	return err == nil, nil
}

func (m memUsers) List(_ context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.User{}
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

func (m memUsers) Update(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return model.ErrNotFound
	}
	for id, existing := range m.users {
		if id != u.ID && existing.Email == u.Email {
			return model.ErrEmailTaken
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m memUsers) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return model.ErrNotFound
	}
	for _, b := range m.bookings {
		if b.UserID == id {
			return model.ErrInUse
		}
	}
	delete(m.users, id)
	return nil
}

// sessions

type memSessions struct{ *memDB }

func (m memSessions) Create(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m memSessions) Get(_ context.Context, id string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m memSessions) Revoke(_ context.Context, id string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok && s.RevokedAt == nil {
		at := now
		s.RevokedAt = &at
	}
	return nil
}

func (m memSessions) RevokeAllForUser(_ context.Context, userID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.UserID == userID && s.RevokedAt == nil {
			at := now
			s.RevokedAt = &at
		}
	}
	return nil
}

func (m memSessions) RevokeOthersForUser(_ context.Context, userID, keepID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.UserID == userID && s.ID != keepID && s.RevokedAt == nil {
			at := now
			s.RevokedAt = &at
		}
	}
	return nil
}

// otp challenges

type memOTPs struct{ *memDB }

func (m memOTPs) Replace(_ context.Context, c *model.OTPChallenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, old := range m.challenges {
		if old.Email == c.Email && old.Purpose == c.Purpose && old.Open() {
			at := c.CreatedAt
			old.InvalidatedAt = &at
		}
	}
	cp := *c
	m.challenges = append(m.challenges, &cp)
	return nil
}

func (m memOTPs) LatestOpen(_ context.Context, email string, purpose model.OTPPurpose) (*model.OTPChallenge, error) {
	return m.latest(email, purpose, func(c *model.OTPChallenge) bool { return c.Open() })
}

func (m memOTPs) LatestUnconsumed(_ context.Context, email string, purpose model.OTPPurpose) (*model.OTPChallenge, error) {
	return m.latest(email, purpose, func(c *model.OTPChallenge) bool { return c.ConsumedAt == nil })
}

func (m memOTPs) latest(email string, purpose model.OTPPurpose, keep func(*model.OTPChallenge) bool) (*model.OTPChallenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.challenges) - 1; i >= 0; i-- {
		c := m.challenges[i]
		if c.Email == normalizeEmail(email) && c.Purpose == purpose && keep(c) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, model.ErrNotFound
}

func (m memOTPs) find(id string) *model.OTPChallenge {
	for _, c := range m.challenges {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (m memOTPs) RecordFailure(_ context.Context, id string, maxAttempts int, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.find(id)
	if c == nil || !c.Open() {
		return 0, model.ErrOTPMismatch
	}
	c.Attempts++
	if c.Attempts >= maxAttempts {
		at := now
		c.InvalidatedAt = &at
	}
	return c.Attempts, nil
}

func (m memOTPs) Consume(_ context.Context, id string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.find(id)
	if c == nil || !c.Open() || c.Expired(now) {
		return model.ErrOTPMismatch
	}
	at := now
	c.ConsumedAt = &at
	return nil
}

// seeding helpers

func (m *memDB) addUser(id, name string, role model.Role) model.Principal {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = &model.User{ID: id, Name: name, Email: id + "@example.test", Role: role}
	return model.Principal{UserID: id, Role: role, SessionID: "s-" + id}
}

func (m *memDB) addEvent(id, organizer string, status model.EventStatus, types ...model.TicketType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range types {
		types[i].Remaining = types[i].Quantity
	}
	m.events[id] = &model.Event{ID: id, Title: "Jazz Night " + id, Location: "Blue Hall", Category: "Music",
		Date: "2026-12-01", Time: "20:00", Status: status, OrganizerID: organizer, TicketTypes: types}
}

func (m *memDB) remaining(eventID, name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.events[eventID].TicketTypes {
		if t.Name == name {
			return t.Remaining
		}
	}
	return -1
}
