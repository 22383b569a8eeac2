package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/PRAHARSHITH-789/gala-backend/internal/clock"
	"github.com/PRAHARSHITH-789/gala-backend/internal/model"
)

// ImageStore keeps uploaded profile pictures.
type ImageStore interface {
	SaveImage(r io.Reader) (string, error)
	Remove(public string) error
}

// UserService manages profiles and, for admins, every account.
type UserService struct {
	tx       Transactor
	users    UserStore
	sessions SessionStore
	images   ImageStore
	clock    clock.Clock
	hashCost int
}

// NewUserService constructs a UserService. hashCost of zero selects the
// bcrypt default.
func NewUserService(tx Transactor, users UserStore, sessions SessionStore, images ImageStore, clk clock.Clock, hashCost int) *UserService {
	if hashCost == 0 {
		hashCost = bcrypt.DefaultCost
	}
	return &UserService{tx: tx, users: users, sessions: sessions, images: images, clock: clk, hashCost: hashCost}
}

// Profile returns the caller's account.
func (s *UserService) Profile(ctx context.Context, actor model.Principal) (*model.User, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	return s.users.Get(ctx, actor.UserID)
}

// UpdateProfile changes name, email or password of the caller. The role
// cannot be changed here. A new password signs out every other session of
// the caller. Email changes are not confirmed by a code; the address must
// only be unused.
func (s *UserService) UpdateProfile(ctx context.Context, actor model.Principal, req model.UpdateProfileRequest) (*model.User, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return nil, model.AsValidation(err)
	}

	u, err := s.users.Get(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		u.Name = req.Name
	}
	if req.Email != "" {
		u.Email = req.Email
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = string(hash)
	}
	now := s.clock.Now()
	u.UpdatedAt = now
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.users.Update(ctx, u); err != nil {
			return err
		}
		if req.Password == "" {
			return nil
		}
		return s.sessions.RevokeOthersForUser(ctx, u.ID, actor.SessionID, now)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// SetProfilePicture stores a new picture and drops the previous one.
func (s *UserService) SetProfilePicture(ctx context.Context, actor model.Principal, r io.Reader) (*model.User, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	u, err := s.users.Get(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	public, err := s.images.SaveImage(r)
	if err != nil {
		return nil, err
	}

	previous := u.ProfilePicture
	u.ProfilePicture = public
	u.UpdatedAt = s.clock.Now()
	if err := s.users.Update(ctx, u); err != nil {
		s.removeImage(public)
		return nil, err
	}
	s.removeImage(previous)
	return u, nil
}

// DeleteProfilePicture clears the caller's picture.
func (s *UserService) DeleteProfilePicture(ctx context.Context, actor model.Principal) (*model.User, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	u, err := s.users.Get(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if u.ProfilePicture == "" {
		return u, nil
	}
	previous := u.ProfilePicture
	u.ProfilePicture = ""
	u.UpdatedAt = s.clock.Now()
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	s.removeImage(previous)
	return u, nil
}

// List returns every account. Admin only.
func (s *UserService) List(ctx context.Context, actor model.Principal) ([]model.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.users.List(ctx)
}

// Create adds an account with any role. Admin only.
func (s *UserService) Create(ctx context.Context, actor model.Principal, req model.CreateUserRequest) (*model.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return nil, model.AsValidation(err)
	}
	return s.create(ctx, req.Name, req.Email, req.Password, req.Role)
}

// Update edits name, email or role of any account. Admin only.
func (s *UserService) Update(ctx context.Context, actor model.Principal, id string, req model.UpdateUserRequest) (*model.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return nil, model.AsValidation(err)
	}
	if id == actor.UserID && req.Role != "" && req.Role != model.RoleAdmin {
		return nil, model.Invalid("you cannot remove your own admin role")
	}

	u, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		u.Name = req.Name
	}
	if req.Email != "" {
		u.Email = req.Email
	}
	if req.Role != "" {
		u.Role = req.Role
	}
	u.UpdatedAt = s.clock.Now()
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Delete removes an account. Admins cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, actor model.Principal, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if id == actor.UserID {
		return model.Invalid("you cannot delete your own account")
	}
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.removeImage(u.ProfilePicture)
	return nil
}

// EnsureAdmin creates the bootstrap admin account when it does not exist.
func (s *UserService) EnsureAdmin(ctx context.Context, name, email, password string) error {
	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != model.RoleAdmin {
			zap.L().Warn("bootstrap admin email belongs to a non-admin account", zap.String("email", existing.Email))
		}
		return nil
	case !errors.Is(err, model.ErrNotFound):
		return err
	}

	u, err := s.create(ctx, name, normalizeEmail(email), password, model.RoleAdmin)
	if err != nil {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}
	zap.L().Info("bootstrap admin created", zap.String("email", u.Email))
	return nil
}

func (s *UserService) create(ctx context.Context, name, email, password string, role model.Role) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.clock.Now()
	u := &model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		Role:         role,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) removeImage(public string) {
	if public == "" {
		return
	}
	if err := s.images.Remove(public); err != nil {
		zap.L().Warn("remove profile picture", zap.String("path", public), zap.Error(err))
	}
}
