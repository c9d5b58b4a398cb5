package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"

	"github.com/marketdesk/adminctl/auth/state"
	"github.com/marketdesk/adminctl/lib/logger"
)

// SessionConfig configures Session.
type SessionConfig struct {
	Store         state.Store
	Authenticator Authenticator
	Clock         clockwork.Clock
}

func (c *SessionConfig) CheckAndSetDefaults() error {
	if c.Store == nil {
		return trace.BadParameter("missing credentials store")
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Session manages the stored Credential Pair outside of the request path:
// logging in, logging out and reporting what the store holds.
type Session struct {
	store state.Store
	authn Authenticator
	clock clockwork.Clock
}

// Status describes the stored session. Expiry times are zero when the token
// is not a JWT or carries no exp claim.
type Status struct {
	State            SessionState
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	// AccessExpired is set when the access token's exp claim is in the past.
	// The next request will trigger a refresh.
	AccessExpired bool
}

// NewSession returns a session manager. Authenticator may be nil if Login is
// never called.
func NewSession(conf SessionConfig) (*Session, error) {
	if err := conf.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	return &Session{
		store: conf.Store,
		authn: conf.Authenticator,
		clock: conf.Clock,
	}, nil
}

// Login authenticates against the backend and stores the issued pair.
func (s *Session) Login(ctx context.Context, email string, password string) error {
	if s.authn == nil {
		return trace.BadParameter("session has no authenticator")
	}
	ctx = logger.SetField(ctx, "email", email)

	creds, err := s.authn.Login(ctx, email, password)
	if err != nil {
		return trace.Wrap(err)
	}
	if err := s.store.PutCredentials(ctx, creds); err != nil {
		return trace.Wrap(err, "storing credentials")
	}
	logger.Get(ctx).Info("Logged in")
	return nil
}

// Logout forgets the stored pair.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.store.ClearCredentials(ctx); err != nil {
		return trace.Wrap(err)
	}
	logger.Get(ctx).Info("Logged out")
	return nil
}

// Status reports the stored session without contacting the backend.
func (s *Session) Status(ctx context.Context) (Status, error) {
	creds, err := s.store.GetCredentials(ctx)
	if trace.IsNotFound(err) {
		return Status{State: Unauthenticated}, nil
	} else if err != nil {
		return Status{}, trace.Wrap(err)
	}

	status := Status{
		State:            Authenticated,
		AccessExpiresAt:  tokenExpiry(creds.AccessToken),
		RefreshExpiresAt: tokenExpiry(creds.RefreshToken),
	}
	if !status.AccessExpiresAt.IsZero() {
		status.AccessExpired = !s.clock.Now().Before(status.AccessExpiresAt)
	}
	return status, nil
}

// tokenExpiry reads the exp claim without verifying the signature; only the
// backend can judge validity.
func tokenExpiry(token string) time.Time {
	if token == "" {
		return time.Time{}
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
