package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/PRAHARSHITH-789/gala-backend/internal/clock"
	"github.com/PRAHARSHITH-789/gala-backend/internal/model"
)

type fakeImages struct {
	saved   int
	removed []string
}

func (f *fakeImages) SaveImage(r io.Reader) (string, error) {
	data, _ := io.ReadAll(r)
	if len(data) == 0 {
		return "", model.Invalid("image is empty")
	}
	f.saved++
	return "/uploads/pic-" + strings.Repeat("x", f.saved) + ".png", nil
}

func (f *fakeImages) Remove(public string) error {
	f.removed = append(f.removed, public)
	return nil
}

func newUserFixture() (*UserService, *memDB, *fakeImages) {
	db := newMemDB()
	images := &fakeImages{}
	clk := clock.NewManual(time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC))
	return NewUserService(db, memUsers{db}, memSessions{db}, images, clk, bcrypt.MinCost), db, images
}

func TestUserService_Profile(t *testing.T) {
	ctx := context.Background()
	svc, db, images := newUserFixture()
	ana := db.addUser("ana", "Ana", model.RoleUser)
	db.addUser("bob", "Bob", model.RoleUser)

	u, err := svc.UpdateProfile(ctx, ana, model.UpdateProfileRequest{Name: "Ana Maria", Password: "another1"})
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", u.Name)
	assert.Equal(t, model.RoleUser, u.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("another1")))

	_, err = svc.UpdateProfile(ctx, ana, model.UpdateProfileRequest{Email: "bob@example.test"})
	assert.ErrorIs(t, err, model.ErrEmailTaken)
	_, err = svc.UpdateProfile(ctx, ana, model.UpdateProfileRequest{Email: "not-an-email"})
	assert.ErrorIs(t, err, model.ErrValidation)

	u, err = svc.SetProfilePicture(ctx, ana, strings.NewReader("png"))
	require.NoError(t, err)
	first := u.ProfilePicture
	u, err = svc.SetProfilePicture(ctx, ana, strings.NewReader("png"))
	require.NoError(t, err)
	assert.NotEqual(t, first, u.ProfilePicture)
	assert.Equal(t, []string{first}, images.removed, "the replaced picture is deleted")

	u, err = svc.DeleteProfilePicture(ctx, ana)
	require.NoError(t, err)
	assert.Empty(t, u.ProfilePicture)

	_, err = svc.Profile(ctx, model.Principal{})
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestUserService_PasswordChangeEndsOtherSessions(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := newUserFixture()
	ana := db.addUser("ana", "Ana", model.RoleUser)
	bob := db.addUser("bob", "Bob", model.RoleUser)
	sessions := memSessions{db}
	expires := time.Date(2026, 6, 8, 9, 0, 0, 0, time.UTC)
	for _, s := range []model.Session{
		{ID: "ana-laptop", UserID: ana.UserID, ExpiresAt: expires},
		{ID: "ana-phone", UserID: ana.UserID, ExpiresAt: expires},
		{ID: "bob-laptop", UserID: bob.UserID, ExpiresAt: expires},
	} {
		s := s
		require.NoError(t, sessions.Create(ctx, &s))
	}
	ana.SessionID = "ana-laptop"
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	live := func(id string) bool {
		s, err := sessions.Get(ctx, id)
		require.NoError(t, err)
		return s.Live(now)
	}

	_, err := svc.UpdateProfile(ctx, ana, model.UpdateProfileRequest{Name: "Ana Maria"})
	require.NoError(t, err)
	assert.True(t, live("ana-phone"), "a name change keeps other sessions")

	_, err = svc.UpdateProfile(ctx, ana, model.UpdateProfileRequest{Password: "another1"})
	require.NoError(t, err)
	assert.True(t, live("ana-laptop"), "the session that changed the password stays")
	assert.False(t, live("ana-phone"))
	assert.True(t, live("bob-laptop"))
}

func TestUserService_Admin(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := newUserFixture()
	admin := db.addUser("root", "Root", model.RoleAdmin)
	ana := db.addUser("ana", "Ana", model.RoleUser)

	_, err := svc.List(ctx, ana)
	assert.ErrorIs(t, err, model.ErrForbidden)

	created, err := svc.Create(ctx, admin, model.CreateUserRequest{Name: "Olga", Email: "olga@example.com", Password: "secret1", Role: model.RoleOrganizer})
	require.NoError(t, err)
	assert.Equal(t, model.RoleOrganizer, created.Role)

	promoted, err := svc.Update(ctx, admin, ana.UserID, model.UpdateUserRequest{Role: model.RoleOrganizer})
	require.NoError(t, err)
	assert.Equal(t, model.RoleOrganizer, promoted.Role)

	_, err = svc.Update(ctx, admin, admin.UserID, model.UpdateUserRequest{Role: model.RoleUser})
	assert.ErrorIs(t, err, model.ErrValidation)

	assert.ErrorIs(t, svc.Delete(ctx, admin, admin.UserID), model.ErrValidation)
	require.NoError(t, svc.Delete(ctx, admin, created.ID))
	assert.ErrorIs(t, svc.Delete(ctx, admin, created.ID), model.ErrNotFound)

	users, err := svc.List(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestUserService_EnsureAdmin(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := newUserFixture()

	require.NoError(t, svc.EnsureAdmin(ctx, "Administrator", "Admin@Gala.local", "changeme"))
	require.NoError(t, svc.EnsureAdmin(ctx, "Administrator", "admin@gala.local", "changeme"))

	u, err := memUsers{db}.GetByEmail(ctx, "admin@gala.local")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, u.Role)

	all, err := memUsers{db}.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
