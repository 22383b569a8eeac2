package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PRAHARSHITH-789/gala-backend/internal/model"
)

// OTPRepository stores one-time code challenges.
type OTPRepository struct {
	db *pgxpool.Pool
}

// NewOTPRepository constructs an OTPRepository.
func NewOTPRepository(db *pgxpool.Pool) *OTPRepository {
	return &OTPRepository{db: db}
}

func (r *OTPRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.db, fn)
}

const otpColumns = `id, email, purpose, code_hash, payload, attempts, expires_at,
	consumed_at, invalidated_at, created_at`

// Replace invalidates every open challenge for the same email and purpose
// and stores c as the only usable one.
func (r *OTPRepository) Replace(ctx context.Context, c *model.OTPChallenge) error {
	c.Email = normalizeEmail(c.Email)
	return r.WithTx(ctx, func(ctx context.Context) error {
		q := conn(ctx, r.db)
		if _, err := q.Exec(ctx,
			`UPDATE otp_challenges SET invalidated_at = $3
			 WHERE email = $1 AND purpose = $2 AND consumed_at IS NULL AND invalidated_at IS NULL`,
			c.Email, c.Purpose, c.CreatedAt,
		); err != nil {
			return fmt.Errorf("invalidate challenges: %w", err)
		}
		if _, err := q.Exec(ctx,
			`INSERT INTO otp_challenges (id, email, purpose, code_hash, payload, attempts, expires_at, created_at)
			 VALUES ($1, $2, $3, $4, $5, 0, $6, $7)`,
			c.ID, c.Email, c.Purpose, c.CodeHash, []byte(c.Payload), c.ExpiresAt, c.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert challenge: %w", err)
		}
		return nil
	})
}

// LatestOpen returns the newest challenge that is neither consumed nor
// invalidated, or model.ErrNotFound.
func (r *OTPRepository) LatestOpen(ctx context.Context, email string, purpose model.OTPPurpose) (*model.OTPChallenge, error) {
	return r.latest(ctx,
		`SELECT `+otpColumns+` FROM otp_challenges
		 WHERE email = $1 AND purpose = $2 AND consumed_at IS NULL AND invalidated_at IS NULL
		 ORDER BY created_at DESC LIMIT 1`,
		email, purpose)
}

// LatestUnconsumed returns the newest challenge that was never consumed,
// including ones replaced or locked by failed attempts, or model.ErrNotFound.
func (r *OTPRepository) LatestUnconsumed(ctx context.Context, email string, purpose model.OTPPurpose) (*model.OTPChallenge, error) {
	return r.latest(ctx,
		`SELECT `+otpColumns+` FROM otp_challenges
		 WHERE email = $1 AND purpose = $2 AND consumed_at IS NULL
		 ORDER BY created_at DESC LIMIT 1`,
		email, purpose)
}

func (r *OTPRepository) latest(ctx context.Context, query, email string, purpose model.OTPPurpose) (*model.OTPChallenge, error) {
	c, err := scanChallenge(conn(ctx, r.db).QueryRow(ctx, query, normalizeEmail(email), purpose))
	if err != nil {
		if isNoRows(err) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get challenge: %w", err)
	}
	return c, nil
}

// RecordFailure counts a wrong guess and invalidates the challenge once
// maxAttempts is reached. It returns the attempt count after the update.
func (r *OTPRepository) RecordFailure(ctx context.Context, id string, maxAttempts int, now time.Time) (int, error) {
	var attempts int
	err := conn(ctx, r.db).QueryRow(ctx,
		`UPDATE otp_challenges
		 SET attempts = attempts + 1,
		     invalidated_at = CASE WHEN attempts + 1 >= $2 THEN $3 ELSE invalidated_at END
		 WHERE id = $1 AND consumed_at IS NULL AND invalidated_at IS NULL
		 RETURNING attempts`,
		id, maxAttempts, now,
	).Scan(&attempts)
	if err != nil {
		if isNoRows(err) {
			return 0, model.ErrOTPMismatch
		}
		return 0, fmt.Errorf("record otp failure: %w", err)
	}
	return attempts, nil
}

// Consume marks a challenge used. Only one caller can consume a challenge;
// the others get model.ErrOTPMismatch.
func (r *OTPRepository) Consume(ctx context.Context, id string, now time.Time) error {
	tag, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE otp_challenges SET consumed_at = $2
		 WHERE id = $1 AND consumed_at IS NULL AND invalidated_at IS NULL AND expires_at > $2`,
		id, now,
	)
	if err != nil {
		return fmt.Errorf("consume challenge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOTPMismatch
	}
	return nil
}

func scanChallenge(row pgx.Row) (*model.OTPChallenge, error) {
	var c model.OTPChallenge
	var payload []byte
	err := row.Scan(&c.ID, &c.Email, &c.Purpose, &c.CodeHash, &payload, &c.Attempts, &c.ExpiresAt,
		&c.ConsumedAt, &c.InvalidatedAt, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.Payload = payload
	return &c, nil
}
