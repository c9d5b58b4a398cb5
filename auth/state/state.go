// Package state persists the admin Credential Pair between requests.
package state

import (
	"context"

	"github.com/gravitational/trace"
)

const (
	// AccessTokenKey is the storage key of the access token.
	AccessTokenKey = "adminAccessToken"
	// RefreshTokenKey is the storage key of the refresh token.
	RefreshTokenKey = "adminRefreshToken"
)

// Credentials is the access/refresh token pair issued by the admin backend.
type Credentials struct {
	// AccessToken is the short-lived Bearer token sent with every request.
	AccessToken string `json:"adminAccessToken"`
	// RefreshToken is exchanged for a new pair when the access token expires.
	RefreshToken string `json:"adminRefreshToken"`
}

// CheckAndSetDefaults rejects half-filled pairs.
func (c *Credentials) CheckAndSetDefaults() error {
	if c == nil {
		return trace.BadParameter("missing credentials")
	}
	if c.AccessToken == "" {
		return trace.BadParameter("credentials do not contain %s", AccessTokenKey)
	}
	if c.RefreshToken == "" {
		return trace.BadParameter("credentials do not contain %s", RefreshTokenKey)
	}
	return nil
}

// Store reads, writes and deletes the Credential Pair. Both tokens are always
// written, read and deleted together.
type Store interface {
	// GetCredentials returns trace.NotFound when no pair is stored.
	GetCredentials(context.Context) (*Credentials, error)
	// PutCredentials replaces the stored pair.
	PutCredentials(context.Context, *Credentials) error
	// ClearCredentials deletes the stored pair. Clearing an empty store is not an error.
	ClearCredentials(context.Context) error
}

func notFound() error {
	return trace.NotFound("no admin credentials stored")
}
