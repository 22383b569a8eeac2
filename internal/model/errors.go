package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a requested resource does not exist or is
	// not visible to the caller.
	ErrNotFound = errors.New("not found")

	ErrValidation            = errors.New("validation failed")
	ErrInsufficientInventory = errors.New("not enough tickets available")
	ErrTicketTypeNotFound    = errors.New("ticket type not found")
	ErrEventNotBookable      = errors.New("event is not open for booking")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrAlreadyCancelled      = errors.New("booking is already cancelled")
	ErrAlreadyScanned        = errors.New("ticket has already been scanned")
	ErrBookingCancelled      = errors.New("booking has been cancelled")
	ErrInvalidToken          = errors.New("invalid ticket token")

	ErrUnauthorized       = errors.New("authentication required")
	ErrForbidden          = errors.New("you do not have permission to perform this action")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInUse              = errors.New("resource is still referenced by events or bookings")

	ErrOTPExpired       = errors.New("OTP has expired")
	ErrOTPMismatch      = errors.New("invalid OTP")
	ErrOTPAttemptsSpent = errors.New("too many invalid attempts, request a new OTP")
)

// ValidationError describes malformed input. It matches ErrValidation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError from a formatted reason.
func Invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// AsValidation turns the error of a Validate method into a ValidationError.
func AsValidation(err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Reason: err.Error()}
}

// AlreadyScannedError reports a replayed redemption. It matches ErrAlreadyScanned.
type AlreadyScannedError struct {
	ScannedAt time.Time
	Booking   Booking
}

func (e *AlreadyScannedError) Error() string {
	return fmt.Sprintf("%s at %s", ErrAlreadyScanned, e.ScannedAt.Format(time.RFC3339))
}

func (e *AlreadyScannedError) Is(target error) bool { return target == ErrAlreadyScanned }
