package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Deps is everything the router needs to serve the API.
type Deps struct {
	Log         *zap.Logger
	Auth        AuthService
	Sessions    Authenticator
	Events      EventService
	Bookings    BookingService
	Tickets     TicketService
	Users       UserService
	Cookie      CookieConfig
	CORSOrigins []string
	// UploadDir is served read-only under /uploads when set.
	UploadDir string
}

// NewRouter builds the HTTP routing tree. The API lives under /api/v1.
func NewRouter(d Deps) http.Handler {
	auth := NewAuthHandler(d.Auth, d.Cookie)
	events := NewEventHandler(d.Events)
	bookings := NewBookingHandler(d.Bookings, d.Tickets, d.Events)
	users := NewUserHandler(d.Users)

	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(d.Log))
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS(d.CORSOrigins))
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/health", HealthCheck)

	if d.UploadDir != "" {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(d.UploadDir)))
		r.Handle("/uploads/*", fs)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Authenticate(d.Sessions, d.Cookie.Name))

		// Public routes
		r.Post("/register/send-otp", auth.SendOTP)
		r.Post("/register/verify-otp", auth.VerifyOTP)
		r.Post("/register/resend-otp", auth.ResendOTP)
		r.Post("/login", auth.Login)
		r.Post("/logout", auth.Logout)
		r.Put("/forgotPassword", auth.ForgotPassword)

		r.Get("/events", events.ListEvents)
		r.Get("/events/{id}", events.GetEvent)
		r.Get("/bookings/token/{token}", bookings.TicketByToken)

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth)

			r.Post("/events", events.CreateEvent)
			r.Get("/events/all", events.ListAllEvents)
			r.Put("/events/{id}", events.UpdateEvent)
			r.Delete("/events/{id}", events.DeleteEvent)
			r.Get("/events/{id}/bookings", bookings.ListEventBookings)
			r.Patch("/events/approveevent/{id}", events.ApproveEvent)
			r.Patch("/events/decline/{id}", events.DeclineEvent)

			r.Post("/bookings", bookings.CreateBooking)
			r.Get("/bookings/user", bookings.ListMyBookings)
			r.Post("/bookings/verify/{token}", bookings.VerifyTicket)
			r.Get("/bookings/{id}", bookings.GetBooking)
			r.Get("/bookings/{id}/qr", bookings.BookingQR)
			r.Put("/bookings/{id}/attended", bookings.MarkAttended)
			r.Put("/bookings/{id}/cancel", bookings.CancelBooking)
			r.Delete("/bookings/{id}", bookings.DeleteBooking)

			r.Get("/users/profile", users.GetProfile)
			r.Put("/users/profile", users.UpdateProfile)
			r.Post("/users/profile/picture", users.UploadPicture)
			r.Delete("/users/profile/picture", users.DeletePicture)
			r.Get("/users/events", events.ListMyEvents)
			r.Get("/users/events/analytics", events.Analytics)
			r.Get("/users", users.ListUsers)
			r.Post("/users", users.CreateUser)
			r.Put("/users/{id}", users.UpdateUser)
			r.Delete("/users/{id}", users.DeleteUser)
		})
	})

	return r
}
