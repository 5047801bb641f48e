// Package jobs runs the batch automations over every opted-in student:
// grade change notifications and automatic loan renewal.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
	"vamkhelp-backend/lib/mailer"
	"vamkhelp-backend/lib/scrapers/winha"
	"vamkhelp-backend/lib/studentstore"
	"vamkhelp-backend/lib/telemetry"
	"vamkhelp-backend/services/vamk"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("vamkhelp.services.jobs")

const (
	gradesChangedMail = "Hi! You have new course(s) grade updated. Check here: https://vamk.help\n"
	booksRenewedMail  = "Hi! Your books were renewed. Check here: https://vamk.help\n"
)

type Options struct {
	// Concurrency bounds how many students are crawled at once, defaults to 4.
	Concurrency int
	// MailDomain is the domain of the students' school mailboxes.
	MailDomain string
	// StudentTimeout bounds the crawl of a single student, zero means no bound.
	StudentTimeout time.Duration
}

type Runner struct {
	service vamk.Service
	sender  mailer.Sender
	options Options
}

func NewRunner(service vamk.Service, sender mailer.Sender, options Options) Runner {
	if options.Concurrency <= 0 {
		options.Concurrency = 4
	}
	if options.MailDomain == "" {
		options.MailDomain = mailer.DefaultDomain
	}
	return Runner{
		service: service,
		sender:  sender,
		options: options,
	}
}

// Report counts what a job did, a failed student is not counted as checked.
type Report struct {
	Checked  int
	Notified int
	Failed   int
}

type outcome int

const (
	skipped outcome = iota
	checked
	notified
)

// forEach runs fn for every student with at most Concurrency in flight.
// Each call crawls with its own sessions, failures are logged and counted
// without stopping the batch.
func (r Runner) forEach(ctx context.Context, job string, students []studentstore.Student, fn func(context.Context, studentstore.Student) (outcome, error)) Report {
	var checkedCount, notifiedCount, failedCount atomic.Int64

	sem := make(chan struct{}, r.options.Concurrency)
	wg := sync.WaitGroup{}
	for _, student := range students {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(student studentstore.Student) {
			defer wg.Done()
			defer func() { <-sem }()

			studentCtx := ctx
			if r.options.StudentTimeout > 0 {
				var cancel context.CancelFunc
				studentCtx, cancel = context.WithTimeout(ctx, r.options.StudentTimeout)
				defer cancel()
			}

			result, err := fn(studentCtx, student)
			if err != nil {
				failedCount.Add(1)
				slog.WarnContext(ctx, job, "user", student.UserKey, "err", err)
				return
			}
			switch result {
			case notified:
				notifiedCount.Add(1)
				checkedCount.Add(1)
			case checked:
				checkedCount.Add(1)
			}
		}(student)
	}
	wg.Wait()

	return Report{
		Checked:  int(checkedCount.Load()),
		Notified: int(notifiedCount.Load()),
		Failed:   int(failedCount.Load()),
	}
}

func (r Runner) notify(ctx context.Context, student studentstore.Student, body string) error {
	if student.WinhaId == "" {
		return errors.New("no student id to address the notification to")
	}
	return r.sender.Send(ctx, mailer.Recipient(student.WinhaId, r.options.MailDomain), body)
}

type storedGrades struct {
	GradeDistribution winha.GradeDistribution `json:"grade_distribution"`
}

// GradeWatch re-crawls every grade watching student that has data from an
// earlier crawl, saves the new data and mails the student when the grade
// distribution changed.
func (r Runner) GradeWatch(ctx context.Context) (Report, error) {
	ctx, span := tracer.Start(ctx, "GradeWatch")
	defer span.End()

	store := r.service.Store()
	students, err := store.ListAutoWinha(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list students")
		return Report{}, err
	}

	report := r.forEach(ctx, "grade watch", students, func(ctx context.Context, student studentstore.Student) (outcome, error) {
		if student.StudentData == nil {
			return skipped, nil
		}
		var previous storedGrades
		err := json.Unmarshal(student.StudentData, &previous)
		if err != nil {
			return skipped, err
		}

		session, err := r.service.LoginWinha(ctx, student)
		if err != nil {
			return skipped, err
		}
		summary, err := session.FetchAll(ctx)
		if err != nil {
			return skipped, err
		}
		if !winha.HistogramChanged(previous.GradeDistribution, summary.GradeDistribution) {
			return checked, nil
		}

		serialized, err := json.Marshal(summary)
		if err != nil {
			return skipped, err
		}
		err = store.SaveStudentData(ctx, student.UserKey, serialized)
		if err != nil {
			return skipped, err
		}
		slog.InfoContext(ctx, "grades changed", "user", student.UserKey, "winha_id", student.WinhaId)
		err = r.notify(ctx, student, gradesChangedMail)
		if err != nil {
			return skipped, err
		}
		return notified, nil
	})

	span.SetAttributes(
		attribute.Int("checked", report.Checked),
		attribute.Int("notified", report.Notified),
		attribute.Int("failed", report.Failed),
	)
	return report, nil
}

// AutoRenew renews the due loans of every auto renewing student and mails
// the students for whom at least one loan was submitted.
func (r Runner) AutoRenew(ctx context.Context) (Report, error) {
	ctx, span := tracer.Start(ctx, "AutoRenew")
	defer span.End()

	students, err := r.service.Store().ListAutoTritonia(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list students")
		return Report{}, err
	}

	report := r.forEach(ctx, "auto renew", students, func(ctx context.Context, student studentstore.Student) (outcome, error) {
		session, err := r.service.LoginTritonia(ctx, student)
		if err != nil {
			return skipped, err
		}
		submitted, err := session.Renew(ctx, session.Loans(), true)
		if err != nil {
			return skipped, err
		}
		if len(submitted) == 0 {
			return checked, nil
		}
		slog.InfoContext(ctx, "renewed loans", "user", student.UserKey, "count", len(submitted))
		err = r.notify(ctx, student, booksRenewedMail)
		if err != nil {
			return skipped, err
		}
		return notified, nil
	})

	span.SetAttributes(
		attribute.Int("checked", report.Checked),
		attribute.Int("notified", report.Notified),
		attribute.Int("failed", report.Failed),
	)
	return report, nil
}

// Daemon runs both jobs every interval until ctx is done.
func (r Runner) Daemon(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := r.GradeWatch(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "grade watch", "err", err)
			} else {
				slog.InfoContext(ctx, "grade watch done", "checked", report.Checked, "notified", report.Notified, "failed", report.Failed)
			}
			report, err = r.AutoRenew(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "auto renew", "err", err)
			} else {
				slog.InfoContext(ctx, "auto renew done", "checked", report.Checked, "notified", report.Notified, "failed", report.Failed)
			}
		}
	}
}
