// Package winha crawls the Winha student records portal: profile, course
// history and the grade statistics derived from it.
package winha

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"vamkhelp-backend/lib/scraper"
	"vamkhelp-backend/lib/scrapers/httpsession"
	"vamkhelp-backend/lib/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("vamkhelp.lib.scrapers.winha")

type Urls struct {
	Logon        string `json:"logon"`
	LoginSubmit  string `json:"login_submit"`
	Validate     string `json:"validate"`
	CoursesTouch string `json:"courses_touch"`
	CoursesAll   string `json:"courses_all"`
	Profile      string `json:"profile"`
}

func DefaultUrls() Urls {
	return Urls{
		Logon:        "https://secure.puv.fi/wille/elogon.asp",
		LoginSubmit:  "https://secure.puv.fi/wille/elogon.asp?dfUsername?dfPassword?dfUsernameHuoltaja",
		Validate:     "https://secure.puv.fi/wille/emainval.asp",
		CoursesTouch: "https://secure.puv.fi/wille/ehopssis.asp",
		CoursesAll:   "https://secure.puv.fi/wille/ehopssis.asp?Opinto=Kaikki&ID=0",
		Profile:      "https://secure.puv.fi/wille/eHenkilo.asp",
	}
}

type Credentials struct {
	StudentId string
	Password  string
}

func (c Credentials) form() url.Values {
	form := url.Values{}
	form.Set("dfUsernameHidden", c.StudentId)
	form.Set("dfPasswordHidden", c.Password)
	return form
}

type Options struct {
	// Urls defaults to DefaultUrls() when left empty.
	Urls Urls
	Http httpsession.Options
}

// Session is one crawl of one student's records, it is not safe for
// concurrent use.
type Session struct {
	urls   Urls
	creds  Credentials
	client *httpsession.Client
	state  scraper.State
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
	return &Session{
		urls:   urls,
		creds:  creds,
		client: client,
		state:  scraper.Unauthenticated,
	}, nil
}

func (s *Session) State() scraper.State {
	return s.state
}

// Login touches the logon page, posts the credentials and then opens the
// validation page. The portal answers the validation page with status 500
// when the credentials were wrong, nothing else tells the two apart.
func (s *Session) Login(ctx context.Context) (bool, error) {
	ctx, span := tracer.Start(ctx, "Session:Login")
	defer span.End()

	s.state = scraper.Authenticating

	fail := func(err error, msg string) (bool, error) {
		s.state = scraper.LoginFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
		return false, fmt.Errorf("winha: login: %w", err)
	}

	_, err := s.client.Fetch(ctx, s.urls.Logon)
	if err != nil {
		return fail(err, "failed to fetch logon page")
	}
	_, err = s.client.Submit(ctx, s.urls.LoginSubmit, s.creds.form())
	if err != nil {
		return fail(err, "failed to submit credentials")
	}
	res, err := s.client.Fetch(ctx, s.urls.Validate)
	if err != nil {
		return fail(err, "failed to fetch validation page")
	}

	if res.Status == http.StatusInternalServerError {
		s.state = scraper.LoginFailed
		span.SetAttributes(attribute.Bool("authenticated", false))
		return false, nil
	}
	s.state = scraper.Authenticated
	span.SetAttributes(attribute.Bool("authenticated", true))
	return true, nil
}

func (s *Session) FetchAuthenticatedPage(ctx context.Context, endpoint string) (*httpsession.Response, error) {
	if s.state != scraper.Authenticated {
		return nil, scraper.ErrNotAuthenticated
	}
	return s.client.Fetch(ctx, endpoint)
}

func (s *Session) FetchProfile(ctx context.Context) (Profile, error) {
	ctx, span := tracer.Start(ctx, "Session:FetchProfile")
	defer span.End()

	res, err := s.FetchAuthenticatedPage(ctx, s.urls.Profile)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch profile page")
		return Profile{}, err
	}
	doc, err := res.Document()
	if err != nil {
		return Profile{}, scraper.Extraction(profilePage, "%v", err)
	}
	profile, err := ExtractProfile(doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to extract profile")
		return Profile{}, err
	}
	return profile, nil
}

// FetchCourses opens the study plan page first, the "all courses" view is
// only served to sessions that have visited it.
func (s *Session) FetchCourses(ctx context.Context) ([]Course, error) {
	ctx, span := tracer.Start(ctx, "Session:FetchCourses")
	defer span.End()

	_, err := s.FetchAuthenticatedPage(ctx, s.urls.CoursesTouch)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch study plan page")
		return nil, err
	}
	res, err := s.FetchAuthenticatedPage(ctx, s.urls.CoursesAll)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch course list")
		return nil, err
	}
	doc, err := res.Document()
	if err != nil {
		return nil, scraper.Extraction(coursesPage, "%v", err)
	}
	courses, err := ExtractCourses(doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to extract courses")
		return nil, err
	}
	span.SetAttributes(attribute.Int("courses", len(courses)))
	return courses, nil
}

// Summary is everything a student's records yield in one crawl.
type Summary struct {
	Profile
	AcademicSummary
	Courses        []Course `json:"courses"`
	CurrentCourses []string `json:"current_courses"`
}

func (s *Session) FetchAll(ctx context.Context) (Summary, error) {
	ctx, span := tracer.Start(ctx, "Session:FetchAll")
	defer span.End()

	courses, err := s.FetchCourses(ctx)
	if err != nil {
		return Summary{}, err
	}
	profile, err := s.FetchProfile(ctx)
	if err != nil {
		return Summary{}, err
	}
	academic, err := ComputeGpa(courses)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to compute gpa")
		return Summary{}, err
	}
	return Summary{
		Profile:         profile,
		AcademicSummary: academic,
		Courses:         courses,
		CurrentCourses:  CurrentCourses(courses),
	}, nil
}
