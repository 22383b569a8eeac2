// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/PRAHARSHITH-789/gala-backend/internal/model"
)

const maxBodyBytes = 1 << 20

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": status < 400, "message": msg})
}

// writeError maps a service error onto a status code and the JSON error
// envelope. Unexpected errors are logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		msg = "internal server error"
	}
	writeJSON(w, status, model.ErrorResponse{Message: msg, Code: code})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, model.ErrInvalidToken):
		return http.StatusBadRequest, "invalid_token"
	case errors.Is(err, model.ErrOTPExpired):
		return http.StatusBadRequest, "otp_expired"
	case errors.Is(err, model.ErrOTPMismatch):
		return http.StatusBadRequest, "otp_mismatch"
	case errors.Is(err, model.ErrOTPAttemptsSpent):
		return http.StatusBadRequest, "otp_attempts_exhausted"
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, model.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, model.ErrTicketTypeNotFound):
		return http.StatusNotFound, "ticket_type_not_found"
	case errors.Is(err, model.ErrInsufficientInventory):
		return http.StatusConflict, "insufficient_inventory"
	case errors.Is(err, model.ErrEventNotBookable):
		return http.StatusConflict, "event_not_bookable"
	case errors.Is(err, model.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, model.ErrAlreadyCancelled):
		return http.StatusConflict, "already_cancelled"
	case errors.Is(err, model.ErrAlreadyScanned):
		return http.StatusConflict, "already_scanned"
	case errors.Is(err, model.ErrBookingCancelled):
		return http.StatusConflict, "booking_cancelled"
	case errors.Is(err, model.ErrEmailTaken):
		return http.StatusConflict, "email_taken"
	case errors.Is(err, model.ErrInUse):
		return http.StatusConflict, "in_use"
	}
	return http.StatusInternalServerError, "internal"
}

// decodeJSON reads a single JSON object from the request body. Malformed
// bodies are reported as validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return model.Invalid("invalid request body: %s", describe(err))
	}
	return nil
}

func describe(err error) string {
	var syntax *json.SyntaxError
	var typ *json.UnmarshalTypeError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &syntax):
		return fmt.Sprintf("malformed JSON at offset %d", syntax.Offset)
	case errors.As(err, &typ):
		return fmt.Sprintf("field %q has the wrong type", typ.Field)
	case errors.As(err, &tooLarge):
		return "body too large"
	}
	return err.Error()
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
