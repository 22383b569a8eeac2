package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("SESSION_SIGNING_KEY", "session-key-session-key-session-key")
	t.Setenv("TICKET_SIGNING_KEY", "ticket-key-ticket-key-ticket-key-00")
}

func TestLoadDefaults(t *testing.T) {
	setSecrets(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 10*time.Minute, cfg.OTP.TTL)
	assert.Equal(t, 5, cfg.OTP.MaxAttempts)
	assert.Equal(t, "gala_session", cfg.Session.CookieName)
	assert.Equal(t, []string{"http://localhost:5173", "http://127.0.0.1:5173"}, cfg.CORSOrigins)
	assert.False(t, cfg.Production())
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=postgres dbname=gala sslmode=disable",
		cfg.Database.DSN(),
	)
}

func TestLoadDatabaseURLWins(t *testing.T) {
	setSecrets(t)
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/x")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/x", cfg.Database.DSN())
}

func TestLoadRejectsMissingSecrets(t *testing.T) {
	t.Setenv("SESSION_SIGNING_KEY", "short")
	t.Setenv("TICKET_SIGNING_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SIGNING_KEY")
	assert.Contains(t, err.Error(), "TICKET_SIGNING_KEY")
}

func TestLoadRejectsSharedKey(t *testing.T) {
	key := "same-key-same-key-same-key-same-key"
	t.Setenv("SESSION_SIGNING_KEY", key)
	t.Setenv("TICKET_SIGNING_KEY", key)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}

func TestLoadRejectsHalfAdmin(t *testing.T) {
	setSecrets(t)
	t.Setenv("ADMIN_EMAIL", "root@gala.local")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ADMIN_PASSWORD")
}
