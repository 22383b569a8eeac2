package model

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

var timeOfDay = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// TicketTypeInput is one ticket tier in a create or update payload.
type TicketTypeInput struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

func (t TicketTypeInput) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Name, validation.Required, validation.Length(1, 50)),
		validation.Field(&t.Price, validation.Required.Error("must be greater than 0"), validation.Min(0.01)),
		validation.Field(&t.Quantity, validation.Required, validation.Min(1)),
	)
}

// EventRequest is the payload for creating or replacing an event.
type EventRequest struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Location    string            `json:"location"`
	Category    string            `json:"category"`
	Date        string            `json:"date"`
	Time        string            `json:"time"`
	Image       string            `json:"image"`
	TicketTypes []TicketTypeInput `json:"ticketTypes"`
}

// Normalize trims free-text fields in place.
func (r *EventRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Location = strings.TrimSpace(r.Location)
	r.Category = strings.TrimSpace(r.Category)
	for i := range r.TicketTypes {
		r.TicketTypes[i].Name = strings.TrimSpace(r.TicketTypes[i].Name)
	}
}

func (r *EventRequest) Validate() error {
	categories := make([]interface{}, len(Categories))
	for i, c := range Categories {
		categories[i] = c
	}
	err := validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Required, validation.Length(2, 120)),
		validation.Field(&r.Description, validation.Length(0, 5000)),
		validation.Field(&r.Location, validation.Required, validation.Length(2, 200)),
		validation.Field(&r.Category, validation.Required, validation.In(categories...)),
		validation.Field(&r.Date, validation.Required, validation.Date("2006-01-02")),
		validation.Field(&r.Time, validation.Required, validation.Match(timeOfDay)),
		validation.Field(&r.TicketTypes, validation.Required),
	)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(r.TicketTypes))
	for _, t := range r.TicketTypes {
		if _, dup := seen[t.Name]; dup {
			return Invalid("ticket type %q is listed twice", t.Name)
		}
		seen[t.Name] = struct{}{}
	}
	return nil
}

// CreateBookingRequest is the payload for booking tickets.
//
// PricePerTicket and TotalPrice are optional; when present they must agree
// with the ledger's price.
type CreateBookingRequest struct {
	Event               string   `json:"event"`
	TicketType          string   `json:"ticketType"`
	TicketsBooked       int      `json:"ticketsBooked"`
	PricePerTicket      *float64 `json:"pricePerTicket,omitempty"`
	TotalPrice          *float64 `json:"totalPrice,omitempty"`
	SpecialRequirements string   `json:"specialRequirements,omitempty"`
}

func (r *CreateBookingRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Event, validation.Required),
		validation.Field(&r.TicketsBooked, validation.Required, validation.Min(1), validation.Max(50)),
		validation.Field(&r.PricePerTicket, validation.Min(0.0)),
		validation.Field(&r.TotalPrice, validation.Min(0.0)),
	)
}

// SendOTPRequest starts a registration.
type SendOTPRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

func (r *SendOTPRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, validation.Length(2, 80)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 72)),
		validation.Field(&r.Role, validation.In(RoleUser, RoleOrganizer)),
	)
}

// VerifyOTPRequest completes a registration.
type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (r *VerifyOTPRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.OTP, validation.Required, validation.Length(6, 6), is.Digit),
	)
}

// EmailRequest carries just an address (OTP resend).
type EmailRequest struct {
	Email string `json:"email"`
}

func (r *EmailRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// ForgotPasswordRequest is either {email,newPassword} to issue a code or
// {email,otp} to apply the reset.
type ForgotPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword,omitempty"`
	OTP         string `json:"otp,omitempty"`
}

func (r *ForgotPasswordRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.NewPassword, validation.Length(6, 72)),
		validation.Field(&r.OTP, validation.Length(6, 6), is.Digit),
	)
	if err != nil {
		return err
	}
	if (r.NewPassword == "") == (r.OTP == "") {
		return Invalid("provide either newPassword or otp")
	}
	return nil
}

// UpdateProfileRequest changes the caller's own account. Empty fields are
// left unchanged.
type UpdateProfileRequest struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

func (r *UpdateProfileRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Length(2, 80)),
		validation.Field(&r.Email, is.Email),
		validation.Field(&r.Password, validation.Length(6, 72)),
	)
}

// CreateUserRequest is the admin payload for adding an account.
type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

func (r *CreateUserRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, validation.Length(2, 80)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 72)),
		validation.Field(&r.Role, validation.Required, validation.In(RoleUser, RoleOrganizer, RoleAdmin)),
	)
}

// UpdateUserRequest is the admin payload for editing an account.
type UpdateUserRequest struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role,omitempty"`
}

func (r *UpdateUserRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Length(2, 80)),
		validation.Field(&r.Email, is.Email),
		validation.Field(&r.Role, validation.In(RoleUser, RoleOrganizer, RoleAdmin)),
	)
}
