package commands

import (
	"database/sql"
	"log/slog"
	"time"
	"vamkhelp-backend/lib/calendar"
	"vamkhelp-backend/lib/configutil"
	"vamkhelp-backend/lib/keychain"
	"vamkhelp-backend/lib/mailer"
	"vamkhelp-backend/lib/restyutil"
	"vamkhelp-backend/lib/scrapers/httpsession"
	"vamkhelp-backend/lib/scrapers/tritonia"
	"vamkhelp-backend/lib/scrapers/winha"
	"vamkhelp-backend/lib/serviceutil"
	"vamkhelp-backend/lib/studentstore"
	"vamkhelp-backend/lib/studentstore/db"
	"vamkhelp-backend/services/jobs"
	"vamkhelp-backend/services/vamk"
)

type env struct {
	config  Config
	db      *sql.DB
	service vamk.Service
}

func (e env) Close() {
	e.db.Close()
}

func readConfig() Config {
	cfg, err := configutil.ReadConfig[Config](*configPath)
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	return cfg
}

func httpOptions(cfg HttpConfig) httpsession.Options {
	opts := httpsession.Options{
		Timeout:          time.Duration(cfg.TimeoutSeconds) * time.Second,
		CloudflareBypass: cfg.CloudflareBypass,
	}
	if cfg.DumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(cfg.DumpDir)
		if err != nil {
			serviceutil.Fatal("failed to prepare http dump directory", err)
		}
		opts.InstrumentOutput = output
	}
	return opts
}

func loadCalendar(cfg Config) calendar.Table {
	if cfg.CalendarTable == "" {
		return calendar.Table{}
	}
	table, err := calendar.Load(cfg.CalendarTable)
	if err != nil {
		serviceutil.Fatal("failed to load calendar table", err)
	}
	return table
}

// setup reads the config and opens everything a command needs, any
// failure terminates the process.
func setup() env {
	cfg := readConfig()

	database, err := cfg.Database.OpenDB(db.Schema)
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}
	cipher, err := keychain.NewCipher(cfg.CipherKey)
	if err != nil {
		serviceutil.Fatal("failed to create cipher", err)
	}

	httpOpts := httpOptions(cfg.Http)
	service := vamk.NewService(
		studentstore.NewStore(database),
		cipher,
		loadCalendar(cfg),
		vamk.Options{
			Tritonia: tritonia.Options{Urls: cfg.TritoniaUrls, Http: httpOpts},
			Winha:    winha.Options{Urls: cfg.WinhaUrls, Http: httpOpts},
		},
	)

	return env{
		config:  cfg,
		db:      database,
		service: service,
	}
}

func (e env) sender() mailer.Sender {
	if e.config.Smtp == nil {
		slog.Warn("smtp is not configured, notifications will only be logged")
		return mailer.LogSender{}
	}
	return mailer.NewSmtpSender(*e.config.Smtp)
}

func (e env) runner() jobs.Runner {
	return jobs.NewRunner(e.service, e.sender(), jobs.Options{
		Concurrency:    e.config.Jobs.Concurrency,
		MailDomain:     e.config.MailDomain,
		StudentTimeout: time.Duration(e.config.Jobs.StudentTimeoutSeconds) * time.Second,
	})
}
