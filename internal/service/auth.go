package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/PRAHARSHITH-789/gala-backend/internal/clock"
	"github.com/PRAHARSHITH-789/gala-backend/internal/mailer"
	"github.com/PRAHARSHITH-789/gala-backend/internal/model"
	"github.com/PRAHARSHITH-789/gala-backend/internal/token"
)

const (
	defaultOTPTTL         = 10 * time.Minute
	defaultOTPMaxAttempts = 5
	defaultSessionTTL     = 7 * 24 * time.Hour
)

// SessionTokens signs and verifies login tokens.
type SessionTokens interface {
	Issue(c token.SessionClaims) (string, error)
	Parse(raw string) (token.SessionClaims, error)
}

// AuthService owns registration, login, sessions and password reset.
// Registration and reset are both gated by an e-mailed 6-digit code.
type AuthService struct {
	tx          Transactor
	users       UserStore
	sessions    SessionStore
	otps        OTPStore
	mail        mailer.Mailer
	tokens      SessionTokens
	clock       clock.Clock
	otpTTL      time.Duration
	maxAttempts int
	sessionTTL  time.Duration
	hashCost    int
	newCode     func() (string, error)
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithOTPPolicy overrides the code lifetime and the failed-attempt limit.
func WithOTPPolicy(ttl time.Duration, maxAttempts int) AuthOption {
	return func(s *AuthService) {
		if ttl > 0 {
			s.otpTTL = ttl
		}
		if maxAttempts > 0 {
			s.maxAttempts = maxAttempts
		}
	}
}

// WithSessionTTL overrides how long a login stays valid.
func WithSessionTTL(d time.Duration) AuthOption {
	return func(s *AuthService) {
		if d > 0 {
			s.sessionTTL = d
		}
	}
}

// WithHashCost sets the bcrypt cost for passwords and codes.
func WithHashCost(cost int) AuthOption {
	return func(s *AuthService) { s.hashCost = cost }
}

// WithCodeGenerator replaces the random code source.
func WithCodeGenerator(fn func() (string, error)) AuthOption {
	return func(s *AuthService) { s.newCode = fn }
}

// NewAuthService constructs an AuthService with its dependencies.
func NewAuthService(tx Transactor, users UserStore, sessions SessionStore, otps OTPStore,
	mail mailer.Mailer, tokens SessionTokens, clk clock.Clock, opts ...AuthOption,
) *AuthService {
	s := &AuthService{
		tx:          tx,
		users:       users,
		sessions:    sessions,
		otps:        otps,
		mail:        mail,
		tokens:      tokens,
		clock:       clk,
		otpTTL:      defaultOTPTTL,
		maxAttempts: defaultOTPMaxAttempts,
		sessionTTL:  defaultSessionTTL,
		hashCost:    bcrypt.DefaultCost,
		newCode:     randomCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoginResult is a freshly issued session.
type LoginResult struct {
	User      *model.User
	Token     string
	ExpiresAt time.Time
}

// SendRegistrationOTP stores the pending account and mails a code that
// materializes it. Earlier codes for the same address stop working.
func (s *AuthService) SendRegistrationOTP(ctx context.Context, req model.SendOTPRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return model.AsValidation(err)
	}
	if req.Role == "" {
		req.Role = model.RoleUser
	}

	taken, err := s.users.EmailTaken(ctx, req.Email)
	if err != nil {
		return err
	}
	if taken {
		return model.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	payload, err := json.Marshal(model.PendingRegistration{Name: req.Name, PasswordHash: string(hash), Role: req.Role})
	if err != nil {
		return fmt.Errorf("encode registration: %w", err)
	}
	return s.issue(ctx, req.Email, model.OTPRegistration, payload)
}

// VerifyRegistrationOTP consumes the code and creates the account in the
// same transaction. A consumed code cannot be replayed.
func (s *AuthService) VerifyRegistrationOTP(ctx context.Context, req model.VerifyOTPRequest) (*model.User, error) {
	req.Email = normalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return nil, model.AsValidation(err)
	}
	c, err := s.check(ctx, req.Email, model.OTPRegistration, req.OTP)
	if err != nil {
		return nil, err
	}
	var pending model.PendingRegistration
	if err := json.Unmarshal(c.Payload, &pending); err != nil {
		return nil, fmt.Errorf("decode registration: %w", err)
	}

	now := s.clock.Now()
	user := &model.User{
		ID:           uuid.NewString(),
		Name:         pending.Name,
		Email:        req.Email,
		Role:         pending.Role,
		PasswordHash: pending.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = s.tx.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.otps.Consume(txCtx, c.ID, now); err != nil {
			return err
		}
		return s.users.Create(txCtx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ResendRegistrationOTP issues a new code for the latest pending
// registration of email, restarting the expiry window.
func (s *AuthService) ResendRegistrationOTP(ctx context.Context, req model.EmailRequest) error {
	req.Email = normalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return model.AsValidation(err)
	}
	c, err := s.otps.LatestUnconsumed(ctx, req.Email, model.OTPRegistration)
	if err != nil {
		return err
	}
	taken, err := s.users.EmailTaken(ctx, req.Email)
	if err != nil {
		return err
	}
	if taken {
		return model.ErrEmailTaken
	}
	return s.issue(ctx, req.Email, model.OTPRegistration, c.Payload)
}

// RequestPasswordReset mails a code that, once verified, sets newPassword.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email, newPassword string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	payload, err := json.Marshal(model.PendingPasswordReset{PasswordHash: string(hash)})
	if err != nil {
		return fmt.Errorf("encode reset: %w", err)
	}
	return s.issue(ctx, user.Email, model.OTPPasswordReset, payload)
}

// ResetPassword applies a pending reset and signs the account out everywhere.
func (s *AuthService) ResetPassword(ctx context.Context, email, code string) error {
	email = normalizeEmail(email)
	c, err := s.check(ctx, email, model.OTPPasswordReset, code)
	if err != nil {
		return err
	}
	var pending model.PendingPasswordReset
	if err := json.Unmarshal(c.Payload, &pending); err != nil {
		return fmt.Errorf("decode reset: %w", err)
	}

	now := s.clock.Now()
	return s.tx.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.otps.Consume(txCtx, c.ID, now); err != nil {
			return err
		}
		user, err := s.users.GetByEmail(txCtx, email)
		if err != nil {
			return err
		}
		user.PasswordHash = pending.PasswordHash
		user.UpdatedAt = now
		if err := s.users.Update(txCtx, user); err != nil {
			return err
		}
		return s.sessions.RevokeAllForUser(txCtx, user.ID, now)
	})
}

// ForgotPassword dispatches the two shapes of the reset request.
func (s *AuthService) ForgotPassword(ctx context.Context, req model.ForgotPasswordRequest) error {
	req.Email = normalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return model.AsValidation(err)
	}
	if req.OTP != "" {
		return s.ResetPassword(ctx, req.Email, req.OTP)
	}
	return s.RequestPasswordReset(ctx, req.Email, req.NewPassword)
}

// Login checks credentials and opens a session.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*LoginResult, error) {
	req.Email = normalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return nil, model.AsValidation(err)
	}
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, model.ErrInvalidCredentials
	}

	now := s.clock.Now()
	session := &model.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	signed, err := s.tokens.Issue(token.SessionClaims{UserID: user.ID, SessionID: session.ID, ExpiresAt: session.ExpiresAt})
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, Token: signed, ExpiresAt: session.ExpiresAt}, nil
}

// Logout revokes the caller's session.
func (s *AuthService) Logout(ctx context.Context, actor model.Principal) error {
	if actor.SessionID == "" {
		return nil
	}
	return s.sessions.Revoke(ctx, actor.SessionID, s.clock.Now())
}

// Authenticate resolves a session token to the calling principal. The role
// is read from the account on every call, so role changes apply at once.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (model.Principal, error) {
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return model.Principal{}, err
	}
	session, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Principal{}, model.ErrUnauthorized
		}
		return model.Principal{}, err
	}
	if !session.Live(s.clock.Now()) || session.UserID != claims.UserID {
		return model.Principal{}, model.ErrUnauthorized
	}
	user, err := s.users.Get(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Principal{}, model.ErrUnauthorized
		}
		return model.Principal{}, err
	}
	return model.Principal{UserID: user.ID, Role: user.Role, SessionID: session.ID}, nil
}

func (s *AuthService) issue(ctx context.Context, email string, purpose model.OTPPurpose, payload []byte) error {
	code, err := s.newCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}

	now := s.clock.Now()
	c := &model.OTPChallenge{
		ID:        uuid.NewString(),
		Email:     email,
		Purpose:   purpose,
		CodeHash:  string(hash),
		Payload:   payload,
		ExpiresAt: now.Add(s.otpTTL),
		CreatedAt: now,
	}
	if err := s.otps.Replace(ctx, c); err != nil {
		return err
	}

	msg := mailer.Message{To: email, Subject: subjects[purpose], Body: fmt.Sprintf(
		"Your verification code is %s. It expires in %d minutes.", code, int(s.otpTTL.Minutes()))}
	if err := s.mail.Send(ctx, msg); err != nil {
		zap.L().Error("otp mail not delivered",
			zap.String("purpose", string(purpose)),
			zap.String("email", email),
			zap.Error(err),
		)
	}
	return nil
}

// check validates code against the open challenge without consuming it.
func (s *AuthService) check(ctx context.Context, email string, purpose model.OTPPurpose, code string) (*model.OTPChallenge, error) {
	c, err := s.otps.LatestOpen(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrOTPMismatch
		}
		return nil, err
	}
	now := s.clock.Now()
	if c.Expired(now) {
		return nil, model.ErrOTPExpired
	}
	if bcrypt.CompareHashAndPassword([]byte(c.CodeHash), []byte(code)) != nil {
		attempts, err := s.otps.RecordFailure(ctx, c.ID, s.maxAttempts, now)
		if err != nil {
			return nil, err
		}
		if attempts >= s.maxAttempts {
			return nil, model.ErrOTPAttemptsSpent
		}
		return nil, model.ErrOTPMismatch
	}
	return c, nil
}

var subjects = map[model.OTPPurpose]string{
	model.OTPRegistration:  "Confirm your Gala account",
	model.OTPPasswordReset: "Reset your Gala password",
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
