package apiclient

import (
	"errors"
	"fmt"
)

// ExpiryReason tells why a session ended.
type ExpiryReason string

const (
	// ReasonNoRefreshToken means a 401 arrived and no refresh token was stored.
	ReasonNoRefreshToken ExpiryReason = "no_refresh_token"
	// ReasonRefreshFailed means the refresh endpoint rejected the refresh token
	// or could not be reached.
	ReasonRefreshFailed ExpiryReason = "refresh_failed"
)

// SessionExpiredError is returned when a 401 could not be recovered from.
// The stored credentials have been cleared by the time it is returned.
//
// Err is the original 401 error for ReasonNoRefreshToken and the refresh
// error for ReasonRefreshFailed; errors.As reaches either through Unwrap.
type SessionExpiredError struct {
	Reason ExpiryReason
	Err    error
}

func (e *SessionExpiredError) Error() string {
	return fmt.Sprintf("admin session expired (%s): %v", e.Reason, e.Err)
}

func (e *SessionExpiredError) Unwrap() error {
	return e.Err
}

// IsSessionExpired reports whether err ended the admin session.
func IsSessionExpired(err error) bool {
	var e *SessionExpiredError
	return errors.As(err, &e)
}

// SessionExpiredEvent is delivered to Config.OnSessionExpired once per
// failed refresh attempt.
type SessionExpiredEvent struct {
	Reason ExpiryReason
	// Err is the refresh error, nil for ReasonNoRefreshToken.
	Err error
}
