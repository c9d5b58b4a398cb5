package apiclient

import (
	"context"
	"time"

	"github.com/gravitational/trace"
	limiter "github.com/sethvargo/go-limiter"
	"github.com/sethvargo/go-limiter/memorystore"

	"github.com/marketdesk/adminctl/lib/logger"
)

// RateLimit caps outgoing requests to Tokens per Interval. Zero Tokens
// disables limiting.
type RateLimit struct {
	Tokens   uint64        `toml:"tokens"`
	Interval time.Duration `toml:"interval"`
}

func newLimiter(rl RateLimit) (limiter.Store, error) {
	if rl.Tokens == 0 {
		return nil, nil
	}
	if rl.Interval <= 0 {
		return nil, trace.BadParameter("rate limit interval must be positive")
	}
	store, err := memorystore.New(&memorystore.Config{
		Tokens:   rl.Tokens,
		Interval: rl.Interval,
	})
	return store, trace.Wrap(err)
}

// throttle blocks until the limiter admits one more request.
func (c *Client) throttle(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	for {
		_, _, reset, ok, err := c.limiter.Take(ctx, c.limiterKey)
		if err != nil {
			return trace.Wrap(err)
		}
		if ok {
			return nil
		}

		wait := c.rateLimitWait(reset)
		logger.Get(ctx).Debugf("Rate limited, next request in %s", wait)
		select {
		case <-ctx.Done():
			return trace.Wrap(ctx.Err())
		case <-c.clock.After(wait):
		}
	}
}

// rateLimitWait converts a limiter reset time in unix nanoseconds into the
// time left on the client clock.
func (c *Client) rateLimitWait(reset uint64) time.Duration {
	wait := time.Unix(0, int64(reset)).Sub(c.clock.Now())
	if wait < 0 {
		return 0
	}
	return wait
}
