package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("ENROLLMENT_CHECKOUT_TTL", "")
	t.Setenv("FRONTEND_URL", "")
	t.Setenv("WORKER_EMBEDDED", "")
	t.Setenv("PORT", "")
	t.Setenv("COURSE_CURRENCY", "")
	t.Setenv("SMTP_PORT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 24*time.Hour, cfg.Enrollment.CheckoutTTL)
	assert.Equal(t, "usd", cfg.Enrollment.Currency)
	assert.True(t, cfg.Worker.Embedded)
	assert.Equal(t, 587, cfg.Email.SMTPPort)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENROLLMENT_CHECKOUT_TTL", "30m")
	t.Setenv("FRONTEND_URL", "https://academy.example.com/")
	t.Setenv("COURSE_CURRENCY", "EUR")
	t.Setenv("WORKER_EMBEDDED", "false")
	t.Setenv("SMTP_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.Enrollment.CheckoutTTL)
	assert.Equal(t, "https://academy.example.com", cfg.Enrollment.FrontendURL)
	assert.Equal(t, "eur", cfg.Enrollment.Currency)
	assert.False(t, cfg.Worker.Embedded)
	assert.Equal(t, 587, cfg.Email.SMTPPort)
}

func TestLoadRejectsBadCheckoutTTL(t *testing.T) {
	t.Setenv("ENROLLMENT_CHECKOUT_TTL", "tomorrow")
	_, err := Load()
	assert.ErrorContains(t, err, "ENROLLMENT_CHECKOUT_TTL")
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "url wins",
			cfg:  DatabaseConfig{URL: "postgres://u:p@db:5432/x", Host: "ignored"},
			want: "postgres://u:p@db:5432/x",
		},
		{
			name: "components",
			cfg:  DatabaseConfig{User: "postgres", Password: "pw", Host: "localhost", Port: "5432", DBName: "skywings", SSLMode: "disable"},
			want: "postgres://postgres:pw@localhost:5432/skywings?sslmode=disable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.DSN())
		})
	}
}
