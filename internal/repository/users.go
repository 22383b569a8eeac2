package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PRAHARSHITH-789/gala-backend/internal/model"
)

// UserRepository handles persistence for accounts. Emails are stored
// lower-cased; callers may pass any case.
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.db, fn)
}

const userColumns = `id, name, email, role, password_hash, profile_picture, created_at, updated_at`

// Create inserts u. A taken email yields model.ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	_, err := conn(ctx, r.db).Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Name, u.Email, u.Role, u.PasswordHash, u.ProfilePicture, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Get returns a user by id or model.ErrNotFound.
func (r *UserRepository) Get(ctx context.Context, id string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail returns a user by email or model.ErrNotFound.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, normalizeEmail(email))
}

// EmailTaken reports whether an account already uses email.
func (r *UserRepository) EmailTaken(ctx context.Context, email string) (bool, error) {
	var taken bool
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, normalizeEmail(email),
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return taken, nil
}

// List returns every account ordered by creation time descending.
func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Update writes every mutable column of u.
func (r *UserRepository) Update(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	tag, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE users
		 SET name = $2, email = $3, role = $4, password_hash = $5, profile_picture = $6, updated_at = $7
		 WHERE id = $1`,
		u.ID, u.Name, u.Email, u.Role, u.PasswordHash, u.ProfilePicture, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrEmailTaken
		}
		if isInvalidID(err) {
			return model.ErrNotFound
		}
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Delete removes an account. Accounts that still own events or bookings are
// kept and model.ErrInUse is returned.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.ErrInUse
		}
		if isInvalidID(err) {
			return model.ErrNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, query, arg string) (*model.User, error) {
	u, err := scanUser(conn(ctx, r.db).QueryRow(ctx, query, arg))
	if err != nil {
		if isNoRows(err) || isInvalidID(err) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.PasswordHash, &u.ProfilePicture, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
