// Package degiro is a client for the DeGiro trader web API. A Client holds a
// single session: log in once, then read account state and place orders
// through the two-phase check/confirm protocol.
//
// A Client is not safe for concurrent use while Login is in progress. Callers
// must let Login return before issuing any other call on the same Client.
package degiro

import (
	"log/slog"
	"net/http"
	"time"
)

// DefaultBaseURL is the trader host used when no WithBaseURL option is given.
const DefaultBaseURL = "https://trader.degiro.nl"

const (
	sessionCookie     = "JSESSIONID"
	loginPath         = "/login/securityCheck"
	clientPath        = "/pa/secure/client"
	tradingPath       = "/trading/secure/v5/"
	productSearchPath = "/product_search/secure/v5/"
)

// Doer issues a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the DeGiro web API on behalf of one session.
type Client struct {
	baseURL    string
	httpClient Doer
	log        *slog.Logger

	// session is nil until Login succeeds or a session is seeded.
	session *Session
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the trader host, mostly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient replaces the transport. The supplied Doer should not follow
// redirects, otherwise the login cookie may be lost.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) { c.httpClient = d }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithSession seeds the client with an existing session so Login can be
// skipped.
func WithSession(s Session) Option {
	return func(c *Client) {
		if s.valid() {
			c.session = &s
		}
	}
}

// NewClient creates a new DeGiro API client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: newHTTPClient(),
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "degiro")
	return c
}

// newHTTPClient returns a client that hands redirects back to the caller,
// because a successful login answers with a redirect carrying the session
// cookie.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
