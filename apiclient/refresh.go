package apiclient

import (
	"context"
	"errors"

	"github.com/gravitational/trace"

	"github.com/marketdesk/adminctl/auth/state"
	"github.com/marketdesk/adminctl/lib/logger"
)

const refreshFlight = "refresh"

const (
	refreshSucceeded = "success"
	refreshFailed    = "failure"
	refreshSkipped   = "skipped"
)

// errNoRefreshToken is shared by every waiter of a flight that found no
// refresh token; each waiter reports its own original 401.
var errNoRefreshToken = errors.New("no refresh token stored")

// recoverSession returns credentials to retry with after a 401 on a request
// that carried sentWith.
func (c *Client) recoverSession(ctx context.Context, sentWith string) (*state.Credentials, error) {
	current, err := c.store.GetCredentials(ctx)
	if err == nil && current.AccessToken != "" && current.AccessToken != sentWith {
		// Another request refreshed while this one was in flight.
		c.metrics.observeRefresh(refreshSkipped)
		logger.Get(ctx).Debug("Credentials already refreshed, retrying")
		return current, nil
	}

	// The flight must outlive the caller that started it.
	flightCtx := context.WithoutCancel(ctx)
	c.waiters.Add(1)
	defer c.waiters.Add(-1)
	ch := c.flights.DoChan(refreshFlight, func() (interface{}, error) {
		return c.refresh(flightCtx, sentWith)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*state.Credentials), nil
	case <-ctx.Done():
		return nil, trace.Wrap(ctx.Err())
	}
}

// refresh exchanges the stored refresh token. Failures end the session.
func (c *Client) refresh(ctx context.Context, sentWith string) (*state.Credentials, error) {
	c.pending.Add(1)
	defer c.pending.Add(-1)

	creds, err := c.store.GetCredentials(ctx)
	if err != nil && !trace.IsNotFound(err) {
		return nil, trace.Wrap(err, "reading stored credentials")
	}
	if creds != nil && creds.AccessToken != "" && creds.AccessToken != sentWith {
		// A flight that finished just before this one started already
		// stored a new pair.
		c.metrics.observeRefresh(refreshSkipped)
		return creds, nil
	}
	if creds == nil || creds.RefreshToken == "" {
		c.expire(ctx, ReasonNoRefreshToken, nil)
		return nil, errNoRefreshToken
	}

	logger.Get(ctx).WithField("waiters", c.waiters.Load()).Debug("Refreshing admin credentials")
	fresh, err := c.refresher.Refresh(ctx, creds.RefreshToken)
	if err == nil {
		err = trace.Wrap(c.store.PutCredentials(ctx, fresh), "storing refreshed credentials")
	}
	if err != nil {
		c.metrics.observeRefresh(refreshFailed)
		c.expire(ctx, ReasonRefreshFailed, err)
		return nil, trace.Wrap(&SessionExpiredError{Reason: ReasonRefreshFailed, Err: err})
	}

	c.metrics.observeRefresh(refreshSucceeded)
	logger.Get(ctx).Debug("Admin credentials refreshed")
	return fresh, nil
}

// expire clears the stored credentials and signals the host application.
func (c *Client) expire(ctx context.Context, reason ExpiryReason, cause error) {
	log := logger.Get(ctx).WithField("reason", reason)
	if err := c.store.ClearCredentials(ctx); err != nil {
		log.WithError(err).Error("Failed to clear stored credentials")
	}
	c.metrics.observeExpiry(reason)
	if cause != nil {
		log = log.WithError(cause)
	}
	log.Warn("Admin session expired")

	if c.onExpired != nil {
		c.onExpired(ctx, SessionExpiredEvent{Reason: reason, Err: cause})
	}
}
