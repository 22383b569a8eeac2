// Package testutil provides Postgres fixtures for integration tests.
//
// Tests use TEST_DATABASE_URL when it is set. Otherwise a throwaway postgres
// container is started through dockertest once per test binary. When neither
// is available the calling test is skipped.
package testutil

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"github.com/PRAHARSHITH-789/gala-backend/internal/database"
	"github.com/PRAHARSHITH-789/gala-backend/internal/model"
)

const testDBLockID int64 = 801234568

var (
	containerOnce sync.Once
	containerDSN  string
	containerErr  error
)

// NewTestPool returns a migrated pool holding an advisory lock that keeps
// test packages from truncating each other's data.
func NewTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		containerOnce.Do(startContainer)
		if containerErr != nil {
			t.Skipf("skipping Postgres integration tests: %v", containerErr)
		}
		dsn = containerDSN
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}
	cfg.MaxConns = 8

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("skipping Postgres integration tests: %v", err)
	}
	t.Cleanup(pool.Close)

	lockTestDB(t, pool)
	if err := database.Migrate(ctx, pool); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}
	return pool
}

func startContainer() {
	dp, err := dockertest.NewPool("")
	if err != nil {
		containerErr = fmt.Errorf("docker unavailable: %w", err)
		return
	}
	if err := dp.Client.Ping(); err != nil {
		containerErr = fmt.Errorf("docker unavailable: %w", err)
		return
	}

	res, err := dp.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=gala",
			"POSTGRES_PASSWORD=gala",
			"POSTGRES_DB=gala_test",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		containerErr = fmt.Errorf("start postgres container: %w", err)
		return
	}
	_ = res.Expire(600)

	dsn := fmt.Sprintf("postgres://gala:gala@%s/gala_test?sslmode=disable", res.GetHostPort("5432/tcp"))
	dp.MaxWait = 60 * time.Second
	err = dp.Retry(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return err
		}
		defer pool.Close()
		return pool.Ping(ctx)
	})
	if err != nil {
		_ = dp.Purge(res)
		containerErr = fmt.Errorf("postgres container not ready: %w", err)
		return
	}
	containerDSN = dsn
}

// TruncateAll empties every application table.
func TruncateAll(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(ctx, `TRUNCATE bookings, ticket_types, events, otp_challenges, sessions, users CASCADE`)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
}

// InsertUser creates an account with the given role and returns its id.
func InsertUser(t *testing.T, ctx context.Context, pool *pgxpool.Pool, name string, role model.Role) string {
	t.Helper()
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := pool.Exec(ctx,
		`INSERT INTO users (id, name, email, role, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, 'x', $5, $5)`,
		id, name, id+"@example.test", role, now,
	)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return id
}

// InsertEvent creates an event owned by organizerID with the given status
// and ticket types (remaining = quantity) and returns its id.
func InsertEvent(t *testing.T, ctx context.Context, pool *pgxpool.Pool, organizerID string, status model.EventStatus, types ...model.TicketType) string {
	t.Helper()
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := pool.Exec(ctx,
		`INSERT INTO events (id, title, location, category, event_date, event_time, status, organizer_id, created_at, updated_at)
		 VALUES ($1, 'Jazz Night', 'Blue Hall', 'Music', '2026-12-01', '20:00', $2, $3, $4, $4)`,
		id, status, organizerID, now,
	)
	if err != nil {
		t.Fatalf("insert event: %v", err)
	}
	for i, tt := range types {
		_, err := pool.Exec(ctx,
			`INSERT INTO ticket_types (event_id, name, position, price, quantity, remaining)
			 VALUES ($1, $2, $3, $4, $5, $5)`,
			id, tt.Name, i, tt.Price, tt.Quantity,
		)
		if err != nil {
			t.Fatalf("insert ticket type: %v", err)
		}
	}
	return id
}

// InsertBooking stores a Booked booking without touching inventory.
func InsertBooking(t *testing.T, ctx context.Context, pool *pgxpool.Pool, eventID, userID, ticketType string, qty int) string {
	t.Helper()
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := pool.Exec(ctx,
		`INSERT INTO bookings (id, event_id, user_id, ticket_type, tickets_booked, price_per_ticket,
			total_price, status, qr_token, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, 10, $5 * 10, 'Booked', $6, $7, $7)`,
		id, eventID, userID, ticketType, qty, "token-"+id, now,
	)
	if err != nil {
		t.Fatalf("insert booking: %v", err)
	}
	return id
}

func lockTestDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire lock conn: %v", err)
	}
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, testDBLockID); err != nil {
		conn.Release()
		t.Fatalf("acquire test lock: %v", err)
	}

	t.Cleanup(func() {
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, testDBLockID)
		conn.Release()
	})
}
