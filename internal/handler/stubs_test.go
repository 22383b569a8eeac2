package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/PRAHARSHITH-789/gala-backend/internal/model"
	"github.com/PRAHARSHITH-789/gala-backend/internal/service"
)

// Stub services. Any method whose func field is nil returns ErrNotFound.

type stubAuth struct {
	login  func(model.LoginRequest) (*service.LoginResult, error)
	send   func(model.SendOTPRequest) error
	verify func(model.VerifyOTPRequest) (*model.User, error)
	forgot func(model.ForgotPasswordRequest) error
	logout func(model.Principal) error
}

func (s *stubAuth) SendRegistrationOTP(_ context.Context, req model.SendOTPRequest) error {
	if s.send == nil {
		return model.ErrNotFound
	}
	return s.send(req)
}

func (s *stubAuth) VerifyRegistrationOTP(_ context.Context, req model.VerifyOTPRequest) (*model.User, error) {
	if s.verify == nil {
		return nil, model.ErrNotFound
	}
	return s.verify(req)
}

func (s *stubAuth) ResendRegistrationOTP(context.Context, model.EmailRequest) error {
	return model.ErrNotFound
}

func (s *stubAuth) ForgotPassword(_ context.Context, req model.ForgotPasswordRequest) error {
	if s.forgot == nil {
		return model.ErrNotFound
	}
	return s.forgot(req)
}

func (s *stubAuth) Login(_ context.Context, req model.LoginRequest) (*service.LoginResult, error) {
	if s.login == nil {
		return nil, model.ErrInvalidCredentials
	}
	return s.login(req)
}

func (s *stubAuth) Logout(_ context.Context, actor model.Principal) error {
	if s.logout == nil {
		return nil
	}
	return s.logout(actor)
}

// stubSessions accepts tokens of the form "user:<id>:<role>".
type stubSessions struct{}

func (stubSessions) Authenticate(_ context.Context, raw string) (model.Principal, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 3 || parts[0] != "user" {
		return model.Principal{}, model.ErrUnauthorized
	}
	return model.Principal{UserID: parts[1], Role: model.Role(parts[2]), SessionID: "s-" + parts[1]}, nil
}

type stubEvents struct {
	events    map[string]model.Event
	approved  func() ([]model.Event, error)
	analytics func(model.Principal) (*model.AnalyticsReport, error)
	create    func(model.Principal, model.EventRequest) (*model.Event, error)
	approve   func(model.Principal, string) (*model.Event, error)
}

func (s *stubEvents) Create(_ context.Context, actor model.Principal, req model.EventRequest) (*model.Event, error) {
	if s.create == nil {
		return nil, model.ErrForbidden
	}
	return s.create(actor, req)
}

func (s *stubEvents) Get(_ context.Context, _ model.Principal, id string) (*model.Event, error) {
	e, ok := s.events[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &e, nil
}

func (s *stubEvents) ListApproved(context.Context) ([]model.Event, error) {
	if s.approved == nil {
		return nil, nil
	}
	return s.approved()
}

func (s *stubEvents) ListAll(context.Context, model.Principal) ([]model.Event, error) {
	return nil, model.ErrForbidden
}

func (s *stubEvents) ListForOrganizer(context.Context, model.Principal) ([]model.Event, error) {
	return nil, nil
}

func (s *stubEvents) Update(context.Context, model.Principal, string, model.EventRequest) (*model.Event, error) {
	return nil, model.ErrNotFound
}

func (s *stubEvents) Delete(context.Context, model.Principal, string) error {
	return model.ErrNotFound
}

func (s *stubEvents) Approve(_ context.Context, actor model.Principal, id string) (*model.Event, error) {
	if s.approve == nil {
		return nil, model.ErrNotFound
	}
	return s.approve(actor, id)
}

func (s *stubEvents) Decline(context.Context, model.Principal, string) (*model.Event, error) {
	return nil, model.ErrInvalidTransition
}

func (s *stubEvents) Analytics(_ context.Context, actor model.Principal) (*model.AnalyticsReport, error) {
	if s.analytics == nil {
		return &model.AnalyticsReport{}, nil
	}
	return s.analytics(actor)
}

type stubBookings struct {
	create func(model.Principal, model.CreateBookingRequest) (*model.Booking, error)
	mine   func(model.Principal) ([]model.Booking, error)
	cancel func(model.Principal, string) (*model.Booking, error)
}

func (s *stubBookings) Create(_ context.Context, actor model.Principal, req model.CreateBookingRequest) (*model.Booking, error) {
	if s.create == nil {
		return nil, model.ErrNotFound
	}
	return s.create(actor, req)
}

func (s *stubBookings) Get(context.Context, model.Principal, string) (*model.Booking, error) {
	return nil, model.ErrNotFound
}

func (s *stubBookings) ListForUser(_ context.Context, actor model.Principal) ([]model.Booking, error) {
	if s.mine == nil {
		return nil, nil
	}
	return s.mine(actor)
}

func (s *stubBookings) ListForEvent(context.Context, model.Principal, string) ([]model.Booking, error) {
	return nil, model.ErrForbidden
}

func (s *stubBookings) Cancel(_ context.Context, actor model.Principal, id string) (*model.Booking, error) {
	if s.cancel == nil {
		return nil, model.ErrNotFound
	}
	return s.cancel(actor, id)
}

func (s *stubBookings) MarkAttended(context.Context, model.Principal, string) (*model.Booking, error) {
	return nil, model.ErrInvalidTransition
}

func (s *stubBookings) Delete(context.Context, model.Principal, string) error {
	return model.ErrNotFound
}

type stubTickets struct {
	verify func(model.Principal, string) (*model.Booking, error)
	lookup func(string) (*model.TicketView, error)
}

func (s *stubTickets) Verify(_ context.Context, actor model.Principal, raw string) (*model.Booking, error) {
	if s.verify == nil {
		return nil, model.ErrNotFound
	}
	return s.verify(actor, raw)
}

func (s *stubTickets) Lookup(_ context.Context, raw string) (*model.TicketView, error) {
	if s.lookup == nil {
		return nil, model.ErrNotFound
	}
	return s.lookup(raw)
}

func (s *stubTickets) BookingQR(context.Context, model.Principal, string) ([]byte, error) {
	return []byte("\x89PNG"), nil
}

func (s *stubTickets) DataURL(token string) (string, error) {
	return "data:image/png;base64," + token, nil
}

type stubUsers struct {
	profile    func(model.Principal) (*model.User, error)
	setPicture func(model.Principal, io.Reader) (*model.User, error)
}

func (s *stubUsers) Profile(_ context.Context, actor model.Principal) (*model.User, error) {
	if s.profile == nil {
		return nil, model.ErrNotFound
	}
	return s.profile(actor)
}

func (s *stubUsers) UpdateProfile(context.Context, model.Principal, model.UpdateProfileRequest) (*model.User, error) {
	return nil, model.ErrNotFound
}

func (s *stubUsers) SetProfilePicture(_ context.Context, actor model.Principal, r io.Reader) (*model.User, error) {
	if s.setPicture == nil {
		return nil, model.ErrNotFound
	}
	return s.setPicture(actor, r)
}

func (s *stubUsers) DeleteProfilePicture(context.Context, model.Principal) (*model.User, error) {
	return nil, model.ErrNotFound
}

func (s *stubUsers) List(context.Context, model.Principal) ([]model.User, error) {
	return nil, nil
}

func (s *stubUsers) Create(context.Context, model.Principal, model.CreateUserRequest) (*model.User, error) {
	return nil, model.ErrEmailTaken
}

func (s *stubUsers) Update(context.Context, model.Principal, string, model.UpdateUserRequest) (*model.User, error) {
	return nil, model.ErrNotFound
}

func (s *stubUsers) Delete(context.Context, model.Principal, string) error {
	return model.ErrInUse
}

type testServer struct {
	auth     *stubAuth
	events   *stubEvents
	bookings *stubBookings
	tickets  *stubTickets
	users    *stubUsers
	handler  http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s := &testServer{
		auth:     &stubAuth{},
		events:   &stubEvents{events: map[string]model.Event{}},
		bookings: &stubBookings{},
		tickets:  &stubTickets{},
		users:    &stubUsers{},
	}
	s.handler = NewRouter(Deps{
		Log:         zap.NewNop(),
		Auth:        s.auth,
		Sessions:    stubSessions{},
		Events:      s.events,
		Bookings:    s.bookings,
		Tickets:     s.tickets,
		Users:       s.users,
		Cookie:      CookieConfig{Name: "gala_session"},
		CORSOrigins: []string{"http://localhost:5173"},
	})
	return s
}

// do sends a request as the given token ("" for anonymous).
func (s *testServer) do(method, path, body, token string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}
