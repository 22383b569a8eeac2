package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PRAHARSHITH-789/gala-backend/internal/model"
)

// SessionRepository stores server-side logins so tokens can be revoked.
type SessionRepository struct {
	db *pgxpool.Pool
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, s *model.Session) error {
	_, err := conn(ctx, r.db).Exec(ctx,
		`INSERT INTO sessions (id, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)`,
		s.ID, s.UserID, s.ExpiresAt, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*model.Session, error) {
	var s model.Session
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT id, user_id, expires_at, revoked_at, created_at FROM sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.UserID, &s.ExpiresAt, &s.RevokedAt, &s.CreatedAt)
	if err != nil {
		if isNoRows(err) || isInvalidID(err) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

// Revoke ends a session. Revoking twice is not an error.
func (r *SessionRepository) Revoke(ctx context.Context, id string, now time.Time) error {
	_, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE sessions SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`, id, now,
	)
	if err != nil && !isInvalidID(err) {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// RevokeAllForUser ends every live session of a user, used after a password
// reset.
func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID string, now time.Time) error {
	_, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE sessions SET revoked_at = $2 WHERE user_id = $1 AND revoked_at IS NULL`, userID, now,
	)
	if err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}

// RevokeOthersForUser ends every live session of a user except keepID, used
// when the user changes their own password.
func (r *SessionRepository) RevokeOthersForUser(ctx context.Context, userID, keepID string, now time.Time) error {
	_, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE sessions SET revoked_at = $3
		 WHERE user_id = $1 AND id::text <> $2 AND revoked_at IS NULL`, userID, keepID, now,
	)
	if err != nil {
		return fmt.Errorf("revoke other sessions: %w", err)
	}
	return nil
}
