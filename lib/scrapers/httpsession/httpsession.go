// Package httpsession is the cookie-persisting HTTP client every portal
// crawl goes through. One Client is one cookie jar, it is never shared
// between crawls.
package httpsession

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"
	"vamkhelp-backend/lib/restyutil"
	"vamkhelp-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

var tracer = telemetry.Tracer("vamkhelp.lib.scrapers.httpsession")

// both portals reject requests that do not look like a desktop browser
const (
	UserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
	accept         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	acceptLanguage = "en-US,en;q=0.5"
)

type Options struct {
	// Timeout bounds a single request, zero means no timeout, callers are
	// expected to bound a whole crawl with a context deadline instead.
	Timeout time.Duration
	// CloudflareBypass wraps the transport so TLS and header ordering
	// look like a real browser.
	CloudflareBypass bool
	// InstrumentOutput receives a dump of every exchange when non-nil.
	InstrumentOutput restyutil.InstrumentOutput
}

type Client struct {
	http *resty.Client
	jar  http.CookieJar
}

func New(opts Options) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetCookieJar(jar)
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	client.SetHeaders(map[string]string{
		"user-agent":      UserAgent,
		"accept":          accept,
		"accept-language": acceptLanguage,
	})
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}

	restyutil.InstrumentClient(client, tracer, opts.InstrumentOutput)

	return &Client{http: client, jar: jar}, nil
}

// Response is a fully read portal response. HTTP error statuses are not
// errors at this layer, portals use them as signals.
type Response struct {
	Status int
	Url    string
	Body   []byte
}

func (r *Response) Text() string {
	return string(r.Body)
}

func (r *Response) Document() (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
	if err != nil {
		return nil, fmt.Errorf("parse html from %s: %w", r.Url, err)
	}
	return doc, nil
}

func toResponse(res *resty.Response) *Response {
	finalUrl := res.Request.URL
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		finalUrl = res.RawResponse.Request.URL.String()
	}
	return &Response{
		Status: res.StatusCode(),
		Url:    finalUrl,
		Body:   res.Body(),
	}
}

// Fetch issues a GET, any transport failure is returned as is.
func (c *Client) Fetch(ctx context.Context, endpoint string) (*Response, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", endpoint, err)
	}
	return toResponse(res), nil
}

// Submit POSTs an urlencoded form, repeated keys in `form` are sent as
// repeated fields in insertion order of their values.
func (c *Client) Submit(ctx context.Context, endpoint string, form url.Values) (*Response, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetFormDataFromValues(form).
		Post(endpoint)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", endpoint, err)
	}
	return toResponse(res), nil
}

// Cookies returns the cookies the jar would send to `endpoint`.
func (c *Client) Cookies(endpoint string) []*http.Cookie {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil
	}
	return c.jar.Cookies(parsed)
}
