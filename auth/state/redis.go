package state

import (
	"context"

	"github.com/gravitational/trace"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the hash holding the pair when no key is configured.
const DefaultRedisKey = "adminctl:session"

// RedisStore keeps the pair as two fields of one redis hash, so several
// operators or hosts can share a session.
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, key string) (*RedisStore, error) {
	if client == nil {
		return nil, trace.BadParameter("missing redis client")
	}
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}, nil
}

// DialRedisStore connects to the redis server at url and verifies it answers.
func DialRedisStore(ctx context.Context, url, key string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, trace.BadParameter("parsing redis url: %v", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, trace.ConnectionProblem(err, "redis ping failed")
	}
	return NewRedisStore(client, key)
}

func (r *RedisStore) GetCredentials(ctx context.Context) (*Credentials, error) {
	fields, err := r.client.HMGet(ctx, r.key, AccessTokenKey, RefreshTokenKey).Result()
	if err != nil {
		return nil, trace.ConnectionProblem(err, "reading credentials from redis")
	}
	access, _ := fields[0].(string)
	refresh, _ := fields[1].(string)
	if access == "" && refresh == "" {
		return nil, notFound()
	}
	return &Credentials{AccessToken: access, RefreshToken: refresh}, nil
}

func (r *RedisStore) PutCredentials(ctx context.Context, creds *Credentials) error {
	if err := creds.CheckAndSetDefaults(); err != nil {
		return trace.Wrap(err)
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key)
		pipe.HSet(ctx, r.key, AccessTokenKey, creds.AccessToken, RefreshTokenKey, creds.RefreshToken)
		return nil
	})
	return trace.Wrap(err)
}

func (r *RedisStore) ClearCredentials(ctx context.Context) error {
	return trace.Wrap(r.client.Del(ctx, r.key).Err())
}

// Close releases the underlying client.
func (r *RedisStore) Close() error {
	return trace.Wrap(r.client.Close())
}
