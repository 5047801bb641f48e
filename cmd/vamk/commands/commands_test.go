package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	"vamkhelp-backend/lib/calendar"
	"vamkhelp-backend/lib/configutil"
	"vamkhelp-backend/lib/mailer"

	"github.com/stretchr/testify/require"
)

func TestParseSelections(t *testing.T) {
	selections, err := parseSelections([]string{"Operating Systems=I-IT-4N", "Computer Networks=I-IT-4V"})
	require.NoError(t, err)
	require.Equal(t, []calendar.Selection{
		{Course: "Operating Systems", Group: "I-IT-4N"},
		{Course: "Computer Networks", Group: "I-IT-4V"},
	}, selections)

	_, err = parseSelections([]string{"Operating Systems"})
	require.Error(t, err)
	_, err = parseSelections([]string{"=I-IT-4N"})
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	require.Error(t, cfg.Validate())

	cfg.CipherKey = "secret"
	require.Error(t, cfg.Validate())

	cfg.Database.File = ":memory:"
	require.NoError(t, cfg.Validate())

	cfg.Smtp = &mailer.SmtpConfig{Server: "smtp.example.com"}
	require.Error(t, cfg.Validate())
	cfg.Smtp.Port = 587
	require.NoError(t, cfg.Validate())

	require.Equal(t, 6*time.Hour, cfg.DaemonInterval())
	cfg.Jobs.IntervalMinutes = 30
	require.Equal(t, 30*time.Minute, cfg.DaemonInterval())
}

func TestReadConfigWithOverlay(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json5"), []byte(`{
		// shared defaults
		database: { file: "<dev_state>/vamk.db" },
		cipher_key: "checked in placeholder",
		mail_domain: "edu.vamk.fi",
		jobs: { concurrency: 4 },
	}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{
		cipher_key: "real secret",
		smtp: { server: "localhost", port: 1025, email_address: "noreply@vamk.help" },
	}`), 0644))

	cfg, err := configutil.ReadConfig[Config](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "real secret", cfg.CipherKey)
	require.Equal(t, "<dev_state>/vamk.db", cfg.Database.File)
	require.Equal(t, 4, cfg.Jobs.Concurrency)
	require.NotNil(t, cfg.Smtp)
	require.Equal(t, 1025, cfg.Smtp.Port)
}
