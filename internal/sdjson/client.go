// Package sdjson is a client for the Schedules Direct SD-JSON API
// (https://schedulesdirect.org, API version 20141201).
//
// # What it does
//
// The SD-JSON service provides licensed EPG data behind a token-based auth
// flow:
//
//  1. POST /20141201/token → session token (valid 24 h)
//  2. GET  /20141201/status → account status
//  3. GET  /20141201/lineups/<lineup_id> → stations + channel mapping
//  4. POST /20141201/schedules → per-station daily airings (program IDs only)
//  5. POST /20141201/programs → bulk program metadata by ID
//
// Every response embeds a code/message pair distinct from the HTTP status;
// this package interprets that convention and maps it onto typed errors.
//
// # Failure semantics
//
// The call layer retries exactly once on connection-level failures (dial
// errors, resets, timeouts). Application-level errors — a malformed lineup,
// an invalid program ID, rate limiting — propagate immediately; higher-level
// backoff is the caller's job, keeping failure behaviour predictable instead
// of silently masking persistent faults. A stale token is refreshed
// transparently, once per call.
package sdjson

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"

	"github.com/sdgrab/sd-xmltv/internal/metrics"
)

const (
	// tokenTTL is slightly under the service's 24 h token validity so a
	// long run never races the server-side expiry.
	tokenTTL = 23 * time.Hour

	defaultTimeout = 30 * time.Second
	userAgent      = "sd-xmltv/1.0 (+https://github.com/sdgrab/sd-xmltv)"

	connRetryDelay = 2 * time.Second
)

// Options configures a Client. Username and PasswordSHA1 are required;
// everything else has a default.
type Options struct {
	BaseURL      string // no trailing slash; default json.schedulesdirect.org/20141201
	Username     string
	PasswordSHA1 string // hex SHA1 of the account password

	// Headers are extra headers attached to every request, e.g. from the
	// configuration surface. They never override the token header.
	Headers map[string]string

	// Concurrency bounds the per-stage fan-out of batched fetches.
	Concurrency int
	// RequestsPerSecond gates all outbound calls through one rate limiter;
	// the service rate-limits aggressive clients.
	RequestsPerSecond float64

	// MaxStationsPerCall and MaxProgramsPerCall are the service-imposed
	// batch caps for /schedules and /programs.
	MaxStationsPerCall int
	MaxProgramsPerCall int

	// Client may be nil; a timeout-tuned default is used.
	Client *http.Client
}

// Client issues SD-JSON calls and owns the session token. Safe for
// concurrent use; batched fetchers share it across goroutines.
type Client struct {
	baseURL      string
	username     string
	passwordSHA1 string
	headers      map[string]string
	hc           *http.Client
	limiter      *rate.Limiter

	concurrency int
	maxStations int
	maxPrograms int

	mu       sync.Mutex
	token    string
	issuedAt time.Time
}

// NewClient validates opts and returns a Client with no session yet; the
// first token-requiring call authenticates lazily.
func NewClient(opts Options) (*Client, error) {
	if opts.Username == "" || opts.PasswordSHA1 == "" {
		return nil, fmt.Errorf("%w: username and password hash are required", ErrAuth)
	}
	base := strings.TrimSuffix(opts.BaseURL, "/")
	if base == "" {
		base = "https://json.schedulesdirect.org/20141201"
	}
	hc := opts.Client
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	c := &Client{
		baseURL:      base,
		username:     opts.Username,
		passwordSHA1: opts.PasswordSHA1,
		headers:      opts.Headers,
		hc:           hc,
		limiter:      rate.NewLimiter(rate.Limit(rps), 1),
		concurrency:  opts.Concurrency,
		maxStations:  opts.MaxStationsPerCall,
		maxPrograms:  opts.MaxProgramsPerCall,
	}
	if c.concurrency <= 0 {
		c.concurrency = 4
	}
	if c.maxStations <= 0 {
		c.maxStations = 5000
	}
	if c.maxPrograms <= 0 {
		c.maxPrograms = 500
	}
	return c, nil
}

// callOpts tweaks a single call.
type callOpts struct {
	noToken    bool // endpoint does not require a session
	verboseMap bool // lineup detail wants the verboseMap header
}

// envelope is the embedded status convention carried by object responses.
// Array responses have no top-level envelope; their elements carry
// per-element codes handled by the stage fetchers.
type envelope struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Response string `json:"response"`
}

func (e envelope) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Response
}

// call issues one API request and returns the raw JSON payload. It attaches
// the token, enforces the rate limit, performs the single connection-level
// retry, interprets the embedded code, and re-authenticates once on a stale
// token.
func (c *Client) call(ctx context.Context, method, path string, body any, opt callOpts) (json.RawMessage, error) {
	if !opt.noToken {
		if err := c.ensureToken(ctx); err != nil {
			return nil, err
		}
	}
	raw, err := c.do(ctx, method, path, body, opt)
	if err == nil {
		return raw, nil
	}

	// Stale session: refresh the token once and replay the call.
	var apiErr *APIError
	if !opt.noToken && errors.As(err, &apiErr) && isTokenCode(apiErr.Code) {
		c.invalidateToken()
		if err := c.ensureToken(ctx); err != nil {
			return nil, err
		}
		return c.do(ctx, method, path, body, opt)
	}
	return nil, err
}

// do performs the HTTP exchange with exactly one retry on connection-level
// failures. Application errors (embedded code != 0, unexpected HTTP status)
// are never retried here.
func (c *Client) do(ctx context.Context, method, path string, body any, opt callOpts) (json.RawMessage, error) {
	endpoint := endpointLabel(path)

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", endpoint, err)
		}
	}

	var raw json.RawMessage
	attempt := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var rdr io.Reader
		if payload != nil {
			rdr = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
		if err != nil {
			return err
		}
		c.setHeaders(req, opt)
		resp, err := c.hc.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		raw, err = c.interpret(endpoint, resp.StatusCode, data)
		return err
	}

	err := retry.Do(attempt,
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(connRetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return ctx.Err() == nil && isConnError(err)
		}),
		retry.OnRetry(func(_ uint, _ error) {
			metrics.APIRetries.WithLabelValues(endpoint).Inc()
		}),
	)
	return raw, err
}

// interpret applies the service's embedded status convention and records the
// call outcome.
func (c *Client) interpret(endpoint string, httpStatus int, data []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)

	// Object payloads carry the embedded code; 0 means success.
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			metrics.APIRequests.WithLabelValues(endpoint, "malformed").Inc()
			return nil, fmt.Errorf("sd api %s: parse response: %w", endpoint, err)
		}
		metrics.APIRequests.WithLabelValues(endpoint, strconv.Itoa(env.Code)).Inc()
		if env.Code != codeOK {
			return nil, classify(&APIError{Code: env.Code, Message: env.text(), Endpoint: endpoint})
		}
		return json.RawMessage(trimmed), nil
	}

	// Array payloads have no envelope; rely on the HTTP status.
	if httpStatus < 200 || httpStatus >= 300 {
		metrics.APIRequests.WithLabelValues(endpoint, "http_"+strconv.Itoa(httpStatus)).Inc()
		return nil, fmt.Errorf("sd api %s: http status %d", endpoint, httpStatus)
	}
	metrics.APIRequests.WithLabelValues(endpoint, "0").Inc()
	return json.RawMessage(trimmed), nil
}

func (c *Client) setHeaders(req *http.Request, opt callOpts) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/plain,deflate,gzip")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if opt.verboseMap {
		req.Header.Set("verboseMap", "true")
	}
	if !opt.noToken {
		c.mu.Lock()
		req.Header.Set("token", c.token)
		c.mu.Unlock()
	}
}

// isConnError reports whether err is a transport-level failure worth the
// single retry. Anything the server answered — any embedded code, any HTTP
// status — is not.
func isConnError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ue *url.Error
	return errors.As(err, &ue)
}

// endpointLabel maps an API path to its logical endpoint name for metrics
// and error text: "/lineups/USA-X" → "lineups".
func endpointLabel(path string) string {
	p := strings.TrimPrefix(path, "/")
	if i := strings.IndexAny(p, "/?"); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "root"
	}
	return p
}
