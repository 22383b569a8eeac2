package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/PRAHARSHITH-789/gala-backend/internal/media"
	"github.com/PRAHARSHITH-789/gala-backend/internal/model"
)

const pictureField = "profilePicture"

// UserService manages profiles and accounts.
type UserService interface {
	Profile(ctx context.Context, actor model.Principal) (*model.User, error)
	UpdateProfile(ctx context.Context, actor model.Principal, req model.UpdateProfileRequest) (*model.User, error)
	SetProfilePicture(ctx context.Context, actor model.Principal, r io.Reader) (*model.User, error)
	DeleteProfilePicture(ctx context.Context, actor model.Principal) (*model.User, error)
	List(ctx context.Context, actor model.Principal) ([]model.User, error)
	Create(ctx context.Context, actor model.Principal, req model.CreateUserRequest) (*model.User, error)
	Update(ctx context.Context, actor model.Principal, id string, req model.UpdateUserRequest) (*model.User, error)
	Delete(ctx context.Context, actor model.Principal, id string) error
}

// UserHandler holds the HTTP handlers for profiles and user management.
type UserHandler struct {
	svc UserService
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(svc UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// GetProfile handles GET /users/profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Profile(r.Context(), PrincipalFrom(r.Context()))
	writeUser(w, r, u, err)
}

// UpdateProfile handles PUT /users/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.svc.UpdateProfile(r.Context(), PrincipalFrom(r.Context()), req)
	writeUser(w, r, u, err)
}

// UploadPicture handles POST /users/profile/picture
// Expects a multipart form with the image in the profilePicture field.
func (h *UserHandler) UploadPicture(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, media.MaxImageBytes+maxBodyBytes)
	file, _, err := r.FormFile(pictureField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, model.Invalid("image must be at most %d MiB", media.MaxImageBytes>>20))
			return
		}
		writeError(w, r, model.Invalid("multipart field %q is required", pictureField))
		return
	}
	defer file.Close()

	u, err := h.svc.SetProfilePicture(r.Context(), PrincipalFrom(r.Context()), file)
	writeUser(w, r, u, err)
}

// DeletePicture handles DELETE /users/profile/picture
func (h *UserHandler) DeletePicture(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.DeleteProfilePicture(r.Context(), PrincipalFrom(r.Context()))
	writeUser(w, r, u, err)
}

// ListUsers handles GET /users (admin).
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.List(r.Context(), PrincipalFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// CreateUser handles POST /users (admin).
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req model.CreateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.svc.Create(r.Context(), PrincipalFrom(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": u})
}

// UpdateUser handles PUT /users/{id} (admin).
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.svc.Update(r.Context(), PrincipalFrom(r.Context()), chi.URLParam(r, "id"), req)
	writeUser(w, r, u, err)
}

// DeleteUser handles DELETE /users/{id} (admin).
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), PrincipalFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "user deleted")
}

func writeUser(w http.ResponseWriter, r *http.Request, u *model.User, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}
