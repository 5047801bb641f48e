// Package vamk is the account service: it registers a student's portal
// credentials and runs crawls on their behalf.
package vamk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"vamkhelp-backend/lib/calendar"
	"vamkhelp-backend/lib/keychain"
	"vamkhelp-backend/lib/scrapers/tritonia"
	"vamkhelp-backend/lib/scrapers/winha"
	"vamkhelp-backend/lib/studentstore"
	"vamkhelp-backend/lib/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("vamkhelp.services.vamk")

var (
	ErrWrongCredentials = errors.New("wrong student id or password")
	ErrNotRegistered    = errors.New("portal credentials are not registered")
)

// DefaultLinkThreshold is the similarity a records portal course name needs
// to be linked to a calendar course name that is not spelled the same.
const DefaultLinkThreshold = 0.9

type Options struct {
	Tritonia tritonia.Options
	Winha    winha.Options
	// LinkThreshold defaults to DefaultLinkThreshold.
	LinkThreshold float64
}

type Service struct {
	store    studentstore.Store
	cipher   keychain.Cipher
	calendar calendar.Table
	options  Options
}

func NewService(store studentstore.Store, cipher keychain.Cipher, table calendar.Table, options Options) Service {
	if options.LinkThreshold == 0 {
		options.LinkThreshold = DefaultLinkThreshold
	}
	if table == nil {
		table = calendar.Table{}
	}
	return Service{
		store:    store,
		cipher:   cipher,
		calendar: table,
		options:  options,
	}
}

func (s Service) Store() studentstore.Store {
	return s.store
}

func (s Service) CalendarTable() calendar.Table {
	return s.calendar
}

type RegisterRequest struct {
	WinhaId       string
	WinhaPassword string

	TritoniaId       string
	TritoniaLastName string
	TritoniaPin      string

	AutoWinha    bool
	AutoTritonia bool
}

// seal leaves empty secrets empty so a missing credential stays detectable.
func (s Service) seal(secret string) (string, error) {
	if secret == "" {
		return "", nil
	}
	return s.cipher.Encrypt(secret)
}

func (s Service) open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	return s.cipher.Decrypt(sealed)
}

// Register stores (or replaces) a user's portal credentials, passwords and
// PINs are sealed before they reach the store.
func (s Service) Register(ctx context.Context, user string, req RegisterRequest) error {
	ctx, span := tracer.Start(ctx, "Register")
	defer span.End()

	password, err := s.seal(req.WinhaPassword)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to seal password")
		return err
	}
	pin, err := s.seal(req.TritoniaPin)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to seal pin")
		return err
	}

	err = s.store.Put(ctx, studentstore.Student{
		UserKey:          user,
		WinhaId:          req.WinhaId,
		WinhaPassword:    password,
		TritoniaId:       req.TritoniaId,
		TritoniaLastName: req.TritoniaLastName,
		TritoniaPin:      pin,
		AutoWinha:        req.AutoWinha,
		AutoTritonia:     req.AutoTritonia,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to store student")
		return err
	}
	return nil
}

func (s Service) student(ctx context.Context, user string) (studentstore.Student, error) {
	student, err := s.store.Get(ctx, user)
	if errors.Is(err, studentstore.ErrNotFound) {
		return studentstore.Student{}, ErrNotRegistered
	}
	return student, err
}

// LoginWinha opens and logs into a new records portal session for a stored
// student, each call returns an independent session.
func (s Service) LoginWinha(ctx context.Context, student studentstore.Student) (*winha.Session, error) {
	if student.WinhaId == "" || student.WinhaPassword == "" {
		return nil, ErrNotRegistered
	}
	password, err := s.open(student.WinhaPassword)
	if err != nil {
		return nil, fmt.Errorf("open winha password: %w", err)
	}
	session, err := winha.NewSession(winha.Credentials{
		StudentId: student.WinhaId,
		Password:  password,
	}, s.options.Winha)
	if err != nil {
		return nil, err
	}
	ok, err := session.Login(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrWrongCredentials
	}
	return session, nil
}

// LoginTritonia is LoginWinha for the library portal, the returned session
// already holds the student's loans.
func (s Service) LoginTritonia(ctx context.Context, student studentstore.Student) (*tritonia.Session, error) {
	if student.TritoniaId == "" || student.TritoniaLastName == "" || student.TritoniaPin == "" {
		return nil, ErrNotRegistered
	}
	pin, err := s.open(student.TritoniaPin)
	if err != nil {
		return nil, fmt.Errorf("open tritonia pin: %w", err)
	}
	session, err := tritonia.NewSession(tritonia.Credentials{
		LoginId:  student.TritoniaId,
		LastName: student.TritoniaLastName,
		Pin:      pin,
	}, s.options.Tritonia)
	if err != nil {
		return nil, err
	}
	ok, err := session.Login(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrWrongCredentials
	}
	return session, nil
}

// CourseGroups is a current course together with the calendar groups it
// can be attended in.
type CourseGroups struct {
	Course   string   `json:"course"`
	Calendar string   `json:"calendar_course"`
	Groups   []string `json:"group_codes"`
}

type StudentData struct {
	winha.Summary
	CurrentCourseGroups []CourseGroups `json:"current_course_groups"`
}

// CurrentCourseGroups links current course names to the calendar table,
// courses the table does not know are left out.
func (s Service) CurrentCourseGroups(courses []string) []CourseGroups {
	out := []CourseGroups{}
	for _, link := range s.calendar.LinkCourses(courses, s.options.LinkThreshold) {
		groups := s.calendar.GroupCodes([]string{link.Calendar})
		out = append(out, CourseGroups{
			Course:   link.Course,
			Calendar: link.Calendar,
			Groups:   groups[link.Calendar],
		})
	}
	return out
}

// StudentData crawls the records portal, stores the summary as the
// student's last known data and returns it.
func (s Service) StudentData(ctx context.Context, user string) (StudentData, error) {
	ctx, span := tracer.Start(ctx, "StudentData")
	defer span.End()

	student, err := s.student(ctx, user)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get student")
		return StudentData{}, err
	}
	span.SetAttributes(attribute.String("winha_id", student.WinhaId))

	session, err := s.LoginWinha(ctx, student)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to log into winha")
		return StudentData{}, err
	}
	summary, err := session.FetchAll(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to crawl winha")
		return StudentData{}, err
	}

	serialized, err := json.Marshal(summary)
	if err != nil {
		return StudentData{}, err
	}
	err = s.store.SaveStudentData(ctx, user, serialized)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save student data")
		return StudentData{}, err
	}

	return StudentData{
		Summary:             summary,
		CurrentCourseGroups: s.CurrentCourseGroups(summary.CurrentCourses),
	}, nil
}

// Books logs into the library portal and returns the current loans.
func (s Service) Books(ctx context.Context, user string) ([]tritonia.Loan, error) {
	ctx, span := tracer.Start(ctx, "Books")
	defer span.End()

	student, err := s.student(ctx, user)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get student")
		return nil, err
	}
	session, err := s.LoginTritonia(ctx, student)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to log into tritonia")
		return nil, err
	}
	return session.Loans(), nil
}

type RenewRequest struct {
	// Tokens limits the renewal to these loans, all loans when empty.
	Tokens    []string
	OnlyIfDue bool
}

type RenewResult struct {
	// Submitted are the loans the renewal request carried.
	Submitted []tritonia.Loan
	// Renewed are the submitted loans that came back with a later due date
	// or a higher renewal count.
	Renewed []tritonia.Loan
	// Loans is the account page read after the renewal.
	Loans []tritonia.Loan
}

func (s Service) Renew(ctx context.Context, user string, req RenewRequest) (RenewResult, error) {
	ctx, span := tracer.Start(ctx, "Renew")
	defer span.End()

	student, err := s.student(ctx, user)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get student")
		return RenewResult{}, err
	}
	session, err := s.LoginTritonia(ctx, student)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to log into tritonia")
		return RenewResult{}, err
	}

	candidates := session.Loans()
	if len(req.Tokens) > 0 {
		wanted := make(map[string]struct{}, len(req.Tokens))
		for _, token := range req.Tokens {
			wanted[token] = struct{}{}
		}
		var filtered []tritonia.Loan
		for _, loan := range candidates {
			if _, ok := wanted[loan.Token]; ok {
				filtered = append(filtered, loan)
			}
		}
		if len(filtered) < len(wanted) {
			slog.WarnContext(ctx, "some requested loans are no longer on the account", "requested", len(wanted), "found", len(filtered))
		}
		candidates = filtered
	}

	submitted, err := session.Renew(ctx, candidates, req.OnlyIfDue)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to renew")
		return RenewResult{Submitted: submitted}, err
	}
	after := session.Loans()
	renewed, _ := tritonia.RenewalOutcome(submitted, after)
	return RenewResult{
		Submitted: submitted,
		Renewed:   renewed,
		Loans:     after,
	}, nil
}

type calendarDocument struct {
	Calendar []calendar.Event `json:"calendar"`
}

// Calendar merges the events of the selected course groups and saves them
// as the student's calendar.
func (s Service) Calendar(ctx context.Context, user string, selections []calendar.Selection) ([]calendar.Event, error) {
	ctx, span := tracer.Start(ctx, "Calendar")
	defer span.End()

	events := s.calendar.Merge(selections)
	serialized, err := json.Marshal(calendarDocument{Calendar: events})
	if err != nil {
		return nil, err
	}
	err = s.store.SaveCalendar(ctx, user, serialized)
	if errors.Is(err, studentstore.ErrNotFound) {
		return nil, ErrNotRegistered
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save calendar")
		return nil, err
	}
	span.SetAttributes(attribute.Int("events", len(events)))
	return events, nil
}
