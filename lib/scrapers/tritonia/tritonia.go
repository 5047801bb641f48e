// Package tritonia crawls the Tritonia library account pages (a Voyager
// WebVoyage installation): login, current loans and loan renewal.
package tritonia

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"vamkhelp-backend/lib/scraper"
	"vamkhelp-backend/lib/scrapers/httpsession"
	"vamkhelp-backend/lib/telemetry"
	"vamkhelp-backend/lib/timezone"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("vamkhelp.lib.scrapers.tritonia")

// LoginPageMarker is the localized "please log in" title of the login page.
// The account page only contains it when the session is not logged in, this
// is the sole login oracle the portal offers: if the portal ever changes the
// title, every login will look successful.
const LoginPageMarker = "<title>Kirjaudu sis&auml;&auml;n</title>"

var ErrSessionExpired = errors.New("tritonia: account page asked to log in again")

type Urls struct {
	Login       string `json:"login"`
	LoginSubmit string `json:"login_submit"`
	Account     string `json:"account"`
	Renewal     string `json:"renewal"`
}

func DefaultUrls() Urls {
	return Urls{
		Login:       "https://tria.linneanet.fi/vwebv/login",
		LoginSubmit: "https://tria.linneanet.fi/vwebv/login.do",
		Account:     "https://tria.linneanet.fi/vwebv/myAccount",
		Renewal:     "https://tria.linneanet.fi/vwebv/myAccountUpd",
	}
}

type Credentials struct {
	LoginId  string
	LastName string
	Pin      string
}

func (c Credentials) form() url.Values {
	form := url.Values{}
	form.Set("loginType", "B")
	form.Set("loginId", c.LoginId)
	form.Set("lastName", c.LastName)
	form.Set("pin", c.Pin)
	form.Set("page.logIn.library", "1@VYKDB20011102005217")
	return form
}

type Options struct {
	// Urls defaults to DefaultUrls() when left empty.
	Urls Urls
	Http httpsession.Options
	// Now defaults to timezone.Now, it decides which loans are due soon.
	Now func() time.Time
}

// Session is one crawl of one library account. It is not safe for
// concurrent use, every crawl creates its own session.
type Session struct {
	urls   Urls
	creds  Credentials
	client *httpsession.Client
	now    func() time.Time

	state scraper.State
	loans []Loan
}

var _ scraper.Crawler = (*Session)(nil)

// NewSession prepares a session, it does not touch the network.
func NewSession(creds Credentials, opts Options) (*Session, error) {
	client, err := httpsession.New(opts.Http)
	if err != nil {
		return nil, err
	}
	urls := opts.Urls
	if urls == (Urls{}) {
		urls = DefaultUrls()
	}
	now := opts.Now
	if now == nil {
		now = timezone.Now
	}
	return &Session{
		urls:   urls,
		creds:  creds,
		client: client,
		now:    now,
		state:  scraper.Unauthenticated,
	}, nil
}

func (s *Session) State() scraper.State {
	return s.state
}

// Loans returns the loans parsed from the latest account page.
func (s *Session) Loans() []Loan {
	out := make([]Loan, len(s.loans))
	copy(out, s.loans)
	return out
}

// Login touches the login page for cookies, posts the credentials and then
// reads the account page. On success the current loans are extracted before
// returning, an ExtractionError at that point is returned alongside true.
func (s *Session) Login(ctx context.Context) (bool, error) {
	ctx, span := tracer.Start(ctx, "Session:Login")
	defer span.End()

	s.state = scraper.Authenticating
	s.loans = nil

	fail := func(err error, msg string) (bool, error) {
		s.state = scraper.LoginFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
		return false, fmt.Errorf("tritonia: login: %w", err)
	}

	_, err := s.client.Fetch(ctx, s.urls.Login)
	if err != nil {
		return fail(err, "failed to fetch login page")
	}
	_, err = s.client.Submit(ctx, s.urls.LoginSubmit, s.creds.form())
	if err != nil {
		return fail(err, "failed to submit credentials")
	}
	res, err := s.client.Fetch(ctx, s.urls.Account)
	if err != nil {
		return fail(err, "failed to fetch account page")
	}

	if strings.Contains(res.Text(), LoginPageMarker) {
		s.state = scraper.LoginFailed
		span.SetAttributes(attribute.Bool("authenticated", false))
		return false, nil
	}
	s.state = scraper.Authenticated
	span.SetAttributes(attribute.Bool("authenticated", true))

	loans, err := ExtractLoans(res.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to extract loans")
		return true, err
	}
	s.loans = loans
	span.SetAttributes(attribute.Int("loans", len(loans)))
	return true, nil
}

func (s *Session) FetchAuthenticatedPage(ctx context.Context, endpoint string) (*httpsession.Response, error) {
	if s.state != scraper.Authenticated {
		return nil, scraper.ErrNotAuthenticated
	}
	return s.client.Fetch(ctx, endpoint)
}

// RefreshLoans re-reads the account page and replaces the held loans. An
// account page asking to log in again ends the session with ErrSessionExpired.
func (s *Session) RefreshLoans(ctx context.Context) ([]Loan, error) {
	ctx, span := tracer.Start(ctx, "Session:RefreshLoans")
	defer span.End()

	res, err := s.FetchAuthenticatedPage(ctx, s.urls.Account)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch account page")
		return nil, err
	}
	if strings.Contains(res.Text(), LoginPageMarker) {
		s.state = scraper.LoginFailed
		span.SetStatus(codes.Error, ErrSessionExpired.Error())
		return nil, ErrSessionExpired
	}

	loans, err := ExtractLoans(res.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to extract loans")
		return nil, err
	}
	s.loans = loans
	return s.Loans(), nil
}
