// Package auth talks to the admin backend's login and token refresh
// endpoints and tracks the admin session they establish.
package auth

import (
	"context"

	"github.com/marketdesk/adminctl/auth/state"
)

// Authorizer is both halves of the backend's auth contract.
type Authorizer interface {
	Authenticator
	Refresher
}

// Authenticator exchanges admin credentials for a token pair.
type Authenticator interface {
	Login(ctx context.Context, email string, password string) (*state.Credentials, error)
}

// Refresher exchanges a refresh token for a new token pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*state.Credentials, error)
}

// SessionState is the admin session lifecycle. It is derived from store
// contents and from whether a refresh is in flight.
type SessionState int

const (
	// Unauthenticated means no Credential Pair is stored.
	Unauthenticated SessionState = iota
	// Authenticated means a Credential Pair is stored.
	Authenticated
	// RefreshPending means a 401 triggered a refresh that has not finished yet.
	RefreshPending
)

func (s SessionState) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	case RefreshPending:
		return "refresh-pending"
	default:
		return "unknown"
	}
}
