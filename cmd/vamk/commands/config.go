package commands

import (
	"fmt"
	"time"
	configlibsql "vamkhelp-backend/lib/configutil/libsql"
	"vamkhelp-backend/lib/mailer"
	"vamkhelp-backend/lib/scrapers/tritonia"
	"vamkhelp-backend/lib/scrapers/winha"
)

type JobsConfig struct {
	Concurrency int `json:"concurrency"`
	// how often the daemon runs both jobs
	IntervalMinutes       int `json:"interval_minutes"`
	StudentTimeoutSeconds int `json:"student_timeout_seconds"`
}

type HttpConfig struct {
	TimeoutSeconds   int  `json:"timeout_seconds"`
	CloudflareBypass bool `json:"cloudflare_bypass"`
	// every portal exchange is dumped here when set, "<dev_state>/..." paths
	// resolve under the workspace
	DumpDir string `json:"dump_dir"`
}

type Config struct {
	Database configlibsql.Struct `json:"database"`
	// secret the stored passwords and PINs are sealed with
	CipherKey string `json:"cipher_key"`
	// path of the generated calendar table, the calendar commands are
	// unavailable without it
	CalendarTable string `json:"calendar_table"`
	// mails are only logged when smtp is not configured
	Smtp       *mailer.SmtpConfig `json:"smtp"`
	MailDomain string             `json:"mail_domain"`
	Jobs       JobsConfig         `json:"jobs"`
	Http       HttpConfig         `json:"http"`
	// portal url overrides, defaults are used for empty sets
	TritoniaUrls tritonia.Urls `json:"tritonia_urls"`
	WinhaUrls    winha.Urls    `json:"winha_urls"`
}

func (c *Config) Validate() error {
	if c.CipherKey == "" {
		return fmt.Errorf("cipher_key is required")
	}
	if c.Database.File == "" && c.Database.Url == "" {
		return fmt.Errorf("database.file or database.url is required")
	}
	if c.Smtp != nil && (c.Smtp.Server == "" || c.Smtp.Port == 0) {
		return fmt.Errorf("smtp.server and smtp.port are required when smtp is set")
	}
	return nil
}

func (c *Config) DaemonInterval() time.Duration {
	if c.Jobs.IntervalMinutes <= 0 {
		return 6 * time.Hour
	}
	return time.Duration(c.Jobs.IntervalMinutes) * time.Minute
}
