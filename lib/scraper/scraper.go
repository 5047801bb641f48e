// Package scraper holds the contract shared by the portal crawlers.
//
// read-only scraping methods are mostly stateless, each method is independent of each other,
// the output is dependent solely on the input. EXCEPT for the login state, that is an
// implied input for each method.
//
// mutating methods (tritonia renewal) are inherently stateful, they mutate state on the
// server and depend on opaque tokens harvested earlier in the same session.
//
// each scraping method generally has this structure:
// 1. assert the session is authenticated.
// 2. transform input into a request (method, url, form).
// 3. make the request.
// 4. transform the response body into output structures with goquery selectors.
// 5. fail loudly (ExtractionError) when the markup does not have the expected shape.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"vamkhelp-backend/lib/scrapers/httpsession"
)

type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
	LoginFailed
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case LoginFailed:
		return "login failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Crawler is implemented by every portal session. A crawler owns exactly one
// httpsession.Client and must not be shared between concurrent crawls.
type Crawler interface {
	// Login performs the portal's login handshake. Wrong credentials are reported
	// as (false, nil), errors are reserved for transport and extraction failures.
	Login(ctx context.Context) (bool, error)
	// FetchAuthenticatedPage GETs a page with the session's cookies, it fails with
	// ErrNotAuthenticated unless Login succeeded.
	FetchAuthenticatedPage(ctx context.Context, url string) (*httpsession.Response, error)
	State() State
}

var ErrNotAuthenticated = errors.New("scraper: session is not authenticated")

// ExtractionError reports markup that did not have the expected shape.
type ExtractionError struct {
	Page   string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %s", e.Page, e.Reason)
}

func Extraction(page, format string, args ...any) *ExtractionError {
	return &ExtractionError{Page: page, Reason: fmt.Sprintf(format, args...)}
}

func IsExtractionError(err error) bool {
	var target *ExtractionError
	return errors.As(err, &target)
}
