// Package apiclient is the authenticated HTTP client for the admin backend.
//
// Every request carries the stored access token as a Bearer header. A 401
// triggers at most one token refresh per request, after which the request is
// re-dispatched once; concurrent 401s share a single refresh call. When the
// session cannot be recovered the stored credentials are cleared, the
// OnSessionExpired callback fires and the caller gets a SessionExpiredError.
package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
	limiter "github.com/sethvargo/go-limiter"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/marketdesk/adminctl/auth"
	"github.com/marketdesk/adminctl/auth/state"
	"github.com/marketdesk/adminctl/lib"
	"github.com/marketdesk/adminctl/lib/httperror"
	"github.com/marketdesk/adminctl/lib/logger"
)

const (
	authorizationHeader = "Authorization"
	requestIDHeader     = "X-Request-ID"

	DefaultHealthPath = "/api/health"
)

// Config configures Client.
type Config struct {
	// BaseURL is the admin backend root.
	BaseURL string
	// Store holds the Credential Pair.
	Store state.Store
	// Refresher exchanges the refresh token. It must not go through this
	// client.
	Refresher auth.Refresher
	// HTTPClient overrides the default pooled client.
	HTTPClient *http.Client
	Timeout    time.Duration
	HealthPath string
	RateLimit  RateLimit
	Metrics    *Metrics
	Clock      clockwork.Clock
	// OnSessionExpired is called after the credentials were cleared because
	// the session could not be refreshed.
	OnSessionExpired func(context.Context, SessionExpiredEvent)
}

func (c *Config) CheckAndSetDefaults() error {
	if c.BaseURL == "" {
		return trace.BadParameter("missing backend base URL")
	}
	if c.Store == nil {
		return trace.BadParameter("missing credentials store")
	}
	if c.Refresher == nil {
		return trace.BadParameter("missing token refresher")
	}
	if c.HealthPath == "" {
		c.HealthPath = DefaultHealthPath
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Client is safe for concurrent use.
type Client struct {
	client     *resty.Client
	store      state.Store
	refresher  auth.Refresher
	metrics    *Metrics
	clock      clockwork.Clock
	healthPath string
	onExpired  func(context.Context, SessionExpiredEvent)

	limiter    limiter.Store
	limiterKey string

	flights singleflight.Group
	pending atomic.Int32
	// waiters counts requests blocked on a refresh flight.
	waiters atomic.Int32
}

// New returns a client for conf.BaseURL.
func New(conf Config) (*Client, error) {
	if err := conf.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	baseURL, err := url.Parse(conf.BaseURL)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	rl, err := newLimiter(conf.RateLimit)
	if err != nil {
		return nil, trace.Wrap(err)
	}

	c := &Client{
		client:     lib.NewRestyClient(conf.BaseURL, conf.HTTPClient, conf.Timeout),
		store:      conf.Store,
		refresher:  conf.Refresher,
		metrics:    conf.Metrics,
		clock:      conf.Clock,
		healthPath: conf.HealthPath,
		onExpired:  conf.OnSessionExpired,
		limiter:    rl,
		limiterKey: baseURL.Host,
	}
	c.client.OnBeforeRequest(c.attachBearer)
	return c, nil
}

// attachBearer sets the stored access token on every outgoing request.
// Without stored credentials the request goes out unauthenticated.
func (c *Client) attachBearer(_ *resty.Client, r *resty.Request) error {
	creds, err := c.store.GetCredentials(r.Context())
	if trace.IsNotFound(err) {
		return nil
	} else if err != nil {
		return trace.Wrap(err, "reading stored credentials")
	}
	if creds.AccessToken != "" {
		r.Header.Set(authorizationHeader, bearer(creds.AccessToken))
	}
	return nil
}

// Do sends req, transparently recovering from one expired access token.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	a := attempt{req: req.clone(), id: uuid.NewString()}
	ctx, _ = logger.WithFields(ctx, log.Fields{
		"request_id": a.id,
		"method":     req.Method,
		"path":       req.Path,
	})
	return c.dispatch(ctx, a)
}

func (c *Client) dispatch(ctx context.Context, a attempt) (*Response, error) {
	log := logger.Get(ctx)

	resp, err := c.send(ctx, a)
	switch {
	case err == nil:
		return newResponse(resp), nil
	case !httperror.IsUnauthorized(err):
		return nil, trace.Wrap(err)
	case a.retried:
		log.Debug("Request rejected again after token refresh")
		return nil, trace.Wrap(err)
	}

	log.Debug("Access token rejected, refreshing")
	sentWith := bearerToken(resp.Request.Header.Get(authorizationHeader))
	creds, rerr := c.recoverSession(ctx, sentWith)
	if rerr == errNoRefreshToken {
		return nil, trace.Wrap(&SessionExpiredError{Reason: ReasonNoRefreshToken, Err: err})
	} else if rerr != nil {
		return nil, trace.Wrap(rerr)
	}
	return c.dispatch(ctx, a.retry(creds.AccessToken))
}

// send performs a single HTTP exchange. Error statuses are returned as
// *httperror.Error together with the response.
func (c *Client) send(ctx context.Context, a attempt) (*resty.Response, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, trace.Wrap(err)
	}

	r := c.client.R().
		SetContext(ctx).
		SetHeader(requestIDHeader, a.id)
	for key, values := range a.req.Header {
		for _, v := range values {
			r.Header.Add(key, v)
		}
	}
	if len(a.req.Query) > 0 {
		r.SetQueryParamsFromValues(a.req.Query)
	}
	if a.req.Body != nil {
		r.SetBody(a.req.Body)
	}

	resp, err := r.Execute(a.req.Method, a.req.Path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, trace.Wrap(ctx.Err())
		}
		return nil, trace.ConnectionProblem(err, "%s %s failed", a.req.Method, a.req.Path)
	}
	c.metrics.observeResponse(resp.StatusCode())
	if err := httperror.FromResponse(resp); err != nil {
		return resp, err
	}
	return resp, nil
}

func newResponse(resp *resty.Response) *Response {
	return &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
	}
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post sends a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put sends a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body})
}

// Patch sends a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path})
}

// HealthCheck probes the backend health endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.Get(ctx, c.healthPath, nil)
	return trace.Wrap(err, "backend health check failed")
}

// SessionState reports the current session lifecycle state.
func (c *Client) SessionState(ctx context.Context) (auth.SessionState, error) {
	if c.pending.Load() > 0 {
		return auth.RefreshPending, nil
	}
	_, err := c.store.GetCredentials(ctx)
	if trace.IsNotFound(err) {
		return auth.Unauthenticated, nil
	} else if err != nil {
		return auth.Unauthenticated, trace.Wrap(err)
	}
	return auth.Authenticated, nil
}

// Close releases the rate limiter.
func (c *Client) Close(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return trace.Wrap(c.limiter.Close(ctx))
}
