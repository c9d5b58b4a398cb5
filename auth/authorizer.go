package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gravitational/trace"
	"github.com/tidwall/gjson"

	"github.com/marketdesk/adminctl/auth/state"
	"github.com/marketdesk/adminctl/lib"
	"github.com/marketdesk/adminctl/lib/httperror"
)

const (
	DefaultLoginPath         = "/api/admin/login"
	DefaultRefreshPath       = "/api/admin/refreshAccessToken"
	DefaultAccessTokenField  = "data.accessToken"
	DefaultRefreshTokenField = "data.refreshToken"
)

// AuthorizerConfig configures HTTPAuthorizer.
type AuthorizerConfig struct {
	// BaseURL is the admin backend root.
	BaseURL string
	// LoginPath is the endpoint accepting {email, password}.
	LoginPath string
	// RefreshPath is the endpoint accepting {refreshToken}.
	RefreshPath string
	// AccessTokenField and RefreshTokenField are gjson paths into the
	// login/refresh response body.
	AccessTokenField  string
	RefreshTokenField string
	// HTTPClient overrides the default pooled client.
	HTTPClient *http.Client
	Timeout    time.Duration
}

// CheckAndSetDefaults validates the config and fills in the backend's
// conventional endpoint and field names.
func (c *AuthorizerConfig) CheckAndSetDefaults() error {
	if c.BaseURL == "" {
		return trace.BadParameter("missing backend base URL")
	}
	if c.LoginPath == "" {
		c.LoginPath = DefaultLoginPath
	}
	if c.RefreshPath == "" {
		c.RefreshPath = DefaultRefreshPath
	}
	if c.AccessTokenField == "" {
		c.AccessTokenField = DefaultAccessTokenField
	}
	if c.RefreshTokenField == "" {
		c.RefreshTokenField = DefaultRefreshTokenField
	}
	return nil
}

// HTTPAuthorizer implements Authorizer over the admin backend REST API.
// Its client never attaches a bearer token.
type HTTPAuthorizer struct {
	client *resty.Client
	conf   AuthorizerConfig
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// NewHTTPAuthorizer returns an authorizer for conf.BaseURL.
func NewHTTPAuthorizer(conf AuthorizerConfig) (*HTTPAuthorizer, error) {
	if err := conf.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	return &HTTPAuthorizer{
		client: lib.NewRestyClient(conf.BaseURL, conf.HTTPClient, conf.Timeout),
		conf:   conf,
	}, nil
}

// Login implements Authenticator
func (a *HTTPAuthorizer) Login(ctx context.Context, email string, password string) (*state.Credentials, error) {
	if email == "" || password == "" {
		return nil, trace.BadParameter("email and password are required")
	}
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(loginRequest{Email: email, Password: password}).
		Post(a.conf.LoginPath)
	if err != nil {
		return nil, trace.ConnectionProblem(err, "login request failed")
	}
	if err := httperror.FromResponse(resp); err != nil {
		return nil, trace.Wrap(err, "login failed")
	}
	return a.credentialsFrom(resp)
}

// Refresh implements Refresher
func (a *HTTPAuthorizer) Refresh(ctx context.Context, refreshToken string) (*state.Credentials, error) {
	if refreshToken == "" {
		return nil, trace.BadParameter("missing refresh token")
	}
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(refreshRequest{RefreshToken: refreshToken}).
		Post(a.conf.RefreshPath)
	if err != nil {
		return nil, trace.ConnectionProblem(err, "token refresh request failed")
	}
	if err := httperror.FromResponse(resp); err != nil {
		return nil, trace.Wrap(err, "token refresh rejected")
	}
	return a.credentialsFrom(resp)
}

func (a *HTTPAuthorizer) credentialsFrom(resp *resty.Response) (*state.Credentials, error) {
	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return nil, trace.BadParameter("backend returned a non-JSON token response")
	}
	creds := &state.Credentials{
		AccessToken:  gjson.GetBytes(body, a.conf.AccessTokenField).String(),
		RefreshToken: gjson.GetBytes(body, a.conf.RefreshTokenField).String(),
	}
	if err := creds.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err, "unexpected token response")
	}
	return creds, nil
}

var _ Authorizer = &HTTPAuthorizer{}
