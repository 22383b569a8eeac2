// Package token signs and verifies the two bearer credentials the service
// hands out: session tokens for logged-in users and single-use QR ticket
// tokens bound to bookings.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/PRAHARSHITH-789/gala-backend/internal/clock"
	"github.com/PRAHARSHITH-789/gala-backend/internal/model"
)

var validMethods = []string{jwt.SigningMethodHS256.Alg()}

// TicketSigner mints and verifies QR ticket tokens. A ticket token names
// the booking in sub and carries a random nonce in jti; it has no expiry
// because single use is enforced by the booking row, not by the token.
type TicketSigner struct {
	key    []byte
	issuer string
}

// NewTicketSigner returns a signer using HMAC-SHA256 over key.
func NewTicketSigner(key []byte, issuer string) *TicketSigner {
	return &TicketSigner{key: key, issuer: issuer}
}

// Issue returns a fresh token for bookingID.
func (s *TicketSigner) Issue(bookingID string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:   s.issuer,
		Subject:  bookingID,
		ID:       uuid.NewString(),
		IssuedAt: jwt.NewNumericDate(now),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign ticket: %w", err)
	}
	return signed, nil
}

// Parse verifies raw and returns the booking id it was issued for.
func (s *TicketSigner) Parse(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", model.ErrInvalidToken
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods(validMethods),
		jwt.WithIssuer(s.issuer),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %s", model.ErrInvalidToken, reason(err))
	}
	if claims.Subject == "" || claims.ID == "" {
		return "", model.ErrInvalidToken
	}
	return claims.Subject, nil
}

// SessionClaims identify the session a token was issued for.
type SessionClaims struct {
	UserID    string
	SessionID string
	ExpiresAt time.Time
}

// SessionSigner mints and verifies login tokens.
type SessionSigner struct {
	key   []byte
	clock clock.Clock
}

// NewSessionSigner returns a signer using HMAC-SHA256 over key.
func NewSessionSigner(key []byte, clk clock.Clock) *SessionSigner {
	return &SessionSigner{key: key, clock: clk}
}

// Issue returns a token for the given session.
func (s *SessionSigner) Issue(c SessionClaims) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   c.UserID,
		ID:        c.SessionID,
		IssuedAt:  jwt.NewNumericDate(s.clock.Now()),
		ExpiresAt: jwt.NewNumericDate(c.ExpiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// Parse verifies raw, including expiry, and returns its claims.
func (s *SessionSigner) Parse(raw string) (SessionClaims, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods(validMethods),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return SessionClaims{}, fmt.Errorf("%w: %s", model.ErrUnauthorized, reason(err))
	}
	if claims.Subject == "" || claims.ID == "" {
		return SessionClaims{}, model.ErrUnauthorized
	}
	return SessionClaims{
		UserID:    claims.Subject,
		SessionID: claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func reason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "token expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "signature invalid"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "token malformed"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return "issuer mismatch"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "algorithm not accepted"
	}
	return "token rejected"
}
