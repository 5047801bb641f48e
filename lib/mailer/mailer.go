// Package mailer delivers notification mails to students.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"sync"
	"vamkhelp-backend/lib/telemetry"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("vamkhelp.lib.mailer")

const (
	DefaultDomain  = "edu.vamk.fi"
	DefaultSubject = "News from VAMK.help"
)

// Sender delivers one plain text mail.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// Recipient is the school mailbox of a student.
func Recipient(studentId, domain string) string {
	if domain == "" {
		domain = DefaultDomain
	}
	return fmt.Sprintf("%s@%s", strings.ToLower(strings.TrimSpace(studentId)), domain)
}

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
	// FromName is shown next to the sender address.
	FromName string `json:"from_name"`
	Subject  string `json:"subject"`
}

type SmtpSender struct {
	config SmtpConfig
}

func NewSmtpSender(config SmtpConfig) SmtpSender {
	if config.Subject == "" {
		config.Subject = DefaultSubject
	}
	if config.FromName == "" {
		config.FromName = "VAMK.help"
	}
	return SmtpSender{config: config}
}

func (s SmtpSender) Send(ctx context.Context, to, body string) error {
	_, span := tracer.Start(ctx, "SmtpSender:Send")
	defer span.End()

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.EmailAddress)
	mail.To = []string{to}
	mail.Subject = s.config.Subject
	mail.Text = []byte(body)

	addr := fmt.Sprintf("%s:%d", s.config.Server, s.config.Port)
	err := mail.Send(
		addr,
		smtp.PlainAuth("", s.config.EmailAddress, s.config.Password, s.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}

// LogSender writes mails to the log instead of delivering them, it is used
// when no smtp server is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, to, body string) error {
	slog.InfoContext(ctx, "mail (not sent)", "to", to, "body", body)
	return nil
}

type Mail struct {
	To   string
	Body string
}

// Recorder keeps every mail in memory, it is safe for concurrent use.
type Recorder struct {
	mutex sync.Mutex
	mails []Mail
	// Fail, when set, is returned by Send for matching recipients.
	Fail func(to string) error
}

func (r *Recorder) Send(ctx context.Context, to, body string) error {
	if r.Fail != nil {
		if err := r.Fail(to); err != nil {
			return err
		}
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.mails = append(r.mails, Mail{To: to, Body: body})
	return nil
}

func (r *Recorder) Mails() []Mail {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := make([]Mail, len(r.mails))
	copy(out, r.mails)
	return out
}
