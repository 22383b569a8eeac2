package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/PRAHARSHITH-789/gala-backend/internal/model"
	"github.com/PRAHARSHITH-789/gala-backend/internal/service"
)

// AuthService is the account flow the auth handlers drive.
type AuthService interface {
	SendRegistrationOTP(ctx context.Context, req model.SendOTPRequest) error
	VerifyRegistrationOTP(ctx context.Context, req model.VerifyOTPRequest) (*model.User, error)
	ResendRegistrationOTP(ctx context.Context, req model.EmailRequest) error
	ForgotPassword(ctx context.Context, req model.ForgotPasswordRequest) error
	Login(ctx context.Context, req model.LoginRequest) (*service.LoginResult, error)
	Logout(ctx context.Context, actor model.Principal) error
}

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// AuthHandler serves registration, login and password reset.
type AuthHandler struct {
	svc    AuthService
	cookie CookieConfig
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(svc AuthService, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{svc: svc, cookie: cookie}
}

// SendOTP handles POST /register/send-otp
func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req model.SendOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.SendRegistrationOTP(r.Context(), req); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "OTP sent to "+req.Email)
}

// VerifyOTP handles POST /register/verify-otp
// Creates the account once the emailed code matches.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req model.VerifyOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.svc.VerifyRegistrationOTP(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "registration complete",
		"user":    user,
	})
}

// ResendOTP handles POST /register/resend-otp
func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req model.EmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.ResendRegistrationOTP(r.Context(), req); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "OTP resent to "+req.Email)
}

// Login handles POST /login
// The session token is set as an HttpOnly cookie and echoed in the body for
// non-browser clients.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.SetCookie(w, h.sessionCookie(res.Token, res.ExpiresAt))
	writeJSON(w, http.StatusOK, map[string]any{
		"user":      res.User,
		"token":     res.Token,
		"expiresAt": res.ExpiresAt,
	})
}

// Logout handles POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context(), PrincipalFrom(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	c := h.sessionCookie("", time.Unix(0, 0))
	c.MaxAge = -1
	http.SetCookie(w, c)
	writeMessage(w, http.StatusOK, "logged out")
}

// ForgotPassword handles PUT /forgotPassword
// {email,newPassword} mails a code; {email,otp} applies the new password.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req model.ForgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.ForgotPassword(r.Context(), req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.OTP != "" {
		writeMessage(w, http.StatusOK, "password updated")
		return
	}
	writeMessage(w, http.StatusOK, "OTP sent to "+req.Email)
}

func (h *AuthHandler) sessionCookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     h.cookie.Name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
