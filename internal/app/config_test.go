package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jmjalil96/claimsdesk/internal/auth"
)

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join("testdata")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.True(t, cfg.Database.Postgres.Enabled)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5433, cfg.Database.Postgres.Port)

	require.Equal(t, 240*time.Hour, cfg.Auth.Session.TTL)
	require.Equal(t, 48, cfg.Auth.Session.TokenLength)

	require.True(t, cfg.Email.SMTP.Enabled)
	require.Equal(t, "smtp.example.com", cfg.Email.SMTP.Host)
	require.Equal(t, 2525, cfg.Email.SMTP.Port)
	require.Equal(t, "smtp-user", cfg.Email.SMTP.Username)
	require.Equal(t, "smtp-pass", cfg.Email.SMTP.Password)
	require.Equal(t, "no-reply@example.com", cfg.Email.SMTP.From)
	require.True(t, cfg.Email.SMTP.UseTLS)
	require.Equal(t, 15*time.Second, cfg.Email.SMTP.Timeout)

	require.Equal(t, "https://claims.example.com", cfg.Invitations.BaseURL)
	require.Equal(t, 72*time.Hour, cfg.Invitations.Expiry)

	require.Equal(t, 30, cfg.Maintenance.AuditRetentionDays)
	require.Equal(t, "@every 30m", cfg.Maintenance.SessionSchedule)
	require.Equal(t, "@midnight", cfg.Maintenance.InvitationSchedule)
	require.Equal(t, "@weekly", cfg.Maintenance.AuditSchedule)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "./data/claimsdesk.sqlite", cfg.Database.Path)
	require.Equal(t, 720*time.Hour, cfg.Auth.Session.TTL)
	require.Equal(t, 32, cfg.Auth.Session.TokenLength)
	require.False(t, cfg.Email.SMTP.Enabled)
	require.Equal(t, "http://localhost:8000", cfg.Invitations.BaseURL)
	require.Equal(t, 168*time.Hour, cfg.Invitations.Expiry)
	require.Equal(t, 90, cfg.Maintenance.AuditRetentionDays)
}

func TestAuthConfigAdapter(t *testing.T) {
	cfg := AuthConfig{
		Session: SessionSettings{
			TTL:         10 * time.Hour,
			TokenLength: 64,
		},
	}

	sessionCfg := cfg.SessionServiceConfig()
	require.Equal(t, auth.SessionConfig{
		TTL:         10 * time.Hour,
		TokenLength: 64,
	}, sessionCfg)

	var zero AuthConfig
	require.Equal(t, auth.SessionConfig{}, zero.SessionServiceConfig())
}

func TestEmailConfigAdapter(t *testing.T) {
	cfg := EmailConfig{
		SMTP: SMTPConfig{
			Enabled:  true,
			Host:     "smtp.example.com",
			Port:     2525,
			Username: "user",
			Password: "pass",
			From:     "no-reply@example.com",
			UseTLS:   true,
			Timeout:  10 * time.Second,
		},
	}

	settings := cfg.SMTPSettings()
	require.True(t, settings.Enabled)
	require.Equal(t, "smtp.example.com", settings.Host)
	require.Equal(t, 2525, settings.Port)
	require.Equal(t, "user", settings.Username)
	require.Equal(t, "pass", settings.Password)
	require.Equal(t, "no-reply@example.com", settings.From)
	require.True(t, settings.UseTLS)
	require.Equal(t, 10*time.Second, settings.Timeout)
}

func TestInvitationOptions(t *testing.T) {
	require.Empty(t, InvitationConfig{}.InvitationOptions())
	require.Len(t, InvitationConfig{
		BaseURL: "https://claims.example.com",
		Expiry:  72 * time.Hour,
	}.InvitationOptions(), 2)
}

func TestMaintenanceOptions(t *testing.T) {
	require.Empty(t, MaintenanceConfig{}.MaintenanceOptions())
	require.Len(t, MaintenanceConfig{
		AuditRetentionDays: 30,
		SessionSchedule:    "@hourly",
		InvitationSchedule: "@daily",
		AuditSchedule:      "@daily",
	}.MaintenanceOptions(), 4)
}
