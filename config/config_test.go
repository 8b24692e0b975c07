package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agency-forms/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, config.ContactRelayHost, cfg.Contact.SMTP.Host)
	assert.Equal(t, config.ContactRelayPort, cfg.Contact.SMTP.Port)
	assert.Equal(t, 587, cfg.WaitingList.SMTP.Port)
	assert.Equal(t, 10*time.Second, cfg.Mail.Timeout)
	assert.Equal(t, uint64(2), cfg.Mail.MaxRetries)
	assert.Equal(t, 25*time.Second, cfg.Mail.RequestTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Submissions.CacheTTL)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
app:
  env: staging
contact:
  recipients: ["team@agency.example"]
waiting_list:
  smtp:
    host: mail.example.com
    port: 2525
    username: file-user
    password: file-pass
mail:
  timeout: 3s
  max_retries: 4
`)

	t.Setenv("PORT", "7070")
	t.Setenv("EMAIL_USER", "contact@agency.example")
	t.Setenv("EMAIL_PASS", "app-password")
	t.Setenv("SMTP_USER", "env-user")
	t.Setenv("SMTP_SECURE", "true")
	t.Setenv("SMTP_PORT", "465")
	t.Setenv("CONTACT_RECIPIENTS", "a@agency.example, b@agency.example")
	t.Setenv("MAIL_TIMEOUT", "5s")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "staging", cfg.App.Env)
	assert.Equal(t, []string{"a@agency.example", "b@agency.example"}, cfg.Contact.Recipients)

	assert.Equal(t, "contact@agency.example", cfg.Contact.SMTP.Username)
	assert.Equal(t, "app-password", cfg.Contact.SMTP.Password)
	assert.NoError(t, cfg.Contact.SMTP.Validate())

	ws := cfg.WaitingList.SMTP
	assert.Equal(t, "mail.example.com", ws.Host)
	assert.Equal(t, 465, ws.Port)
	assert.True(t, ws.Secure)
	assert.Equal(t, "env-user", ws.Username)
	assert.Equal(t, "file-pass", ws.Password)

	assert.Equal(t, 5*time.Second, cfg.Mail.Timeout)
	assert.Equal(t, uint64(4), cfg.Mail.MaxRetries)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unclosed")
	_, err := config.LoadConfig(path)
	assert.Error(t, err)
}

func TestSMTPConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     config.SMTPConfig
		wantErr string
	}{
		{
			name: "complete",
			cfg:  config.SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p"},
		},
		{
			name:    "missing credentials",
			cfg:     config.SMTPConfig{Host: "smtp.example.com", Port: 587},
			wantErr: "smtp credentials are not configured: missing username, password",
		},
		{
			name:    "missing everything",
			cfg:     config.SMTPConfig{},
			wantErr: "missing host, port, username, password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, config.ErrNotConfigured))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSMTPConfig_Sender(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "user@example.com", config.SMTPConfig{Username: "user@example.com"}.Sender())
	assert.Equal(t, "Agency <hi@example.com>", config.SMTPConfig{Username: "u", From: "Agency <hi@example.com>"}.Sender())
	assert.Equal(t, "smtp.example.com:465", config.SMTPConfig{Host: "smtp.example.com", Port: 465}.Addr())
}

func TestConfig_WriteTimeoutCoversMailBudget(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	worstVerifyAndSend := 2 * cfg.Mail.Timeout
	assert.Less(t, worstVerifyAndSend, cfg.Mail.RequestTimeout+time.Nanosecond)
	assert.Greater(t, cfg.WriteTimeout(), cfg.Mail.RequestTimeout)

	cfg.Mail.RequestTimeout = time.Minute
	assert.Equal(t, time.Minute+5*time.Second, cfg.WriteTimeout())

	cfg.Mail.RequestTimeout = 0
	assert.Equal(t, 30*time.Second, cfg.WriteTimeout())
}
