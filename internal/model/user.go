package model

import (
	"encoding/json"
	"time"
)

// Role controls what an account may do.
type Role string

const (
	RoleUser      Role = "User"
	RoleOrganizer Role = "Organizer"
	RoleAdmin     Role = "Admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleOrganizer, RoleAdmin:
		return true
	}
	return false
}

// User is a registered account. PasswordHash never leaves the service.
type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Role           Role      `json:"role"`
	PasswordHash   string    `json:"-"`
	ProfilePicture string    `json:"profilePicture"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID    string
	Role      Role
	SessionID string
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// Session is a server-side login that a session token refers to.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Live reports whether the session can still authenticate requests.
func (s Session) Live(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// OTPPurpose scopes a one-time code to the flow that issued it.
type OTPPurpose string

const (
	OTPRegistration  OTPPurpose = "registration"
	OTPPasswordReset OTPPurpose = "password-reset"
)

// OTPChallenge is an issued one-time code and the pending change it unlocks.
type OTPChallenge struct {
	ID            string
	Email         string
	Purpose       OTPPurpose
	CodeHash      string
	Payload       json.RawMessage
	Attempts      int
	ExpiresAt     time.Time
	ConsumedAt    *time.Time
	InvalidatedAt *time.Time
	CreatedAt     time.Time
}

// Open reports whether the challenge has been neither consumed nor replaced.
func (c OTPChallenge) Open() bool {
	return c.ConsumedAt == nil && c.InvalidatedAt == nil
}

// Expired reports whether the code can no longer be used at now.
func (c OTPChallenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// PendingRegistration is the account materialized once the OTP is verified.
type PendingRegistration struct {
	Name         string `json:"name"`
	PasswordHash string `json:"passwordHash"`
	Role         Role   `json:"role"`
}

// PendingPasswordReset carries the new password hash until the OTP is verified.
type PendingPasswordReset struct {
	PasswordHash string `json:"passwordHash"`
}
