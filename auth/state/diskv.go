package state

import (
	"context"

	"github.com/gravitational/trace"
	"github.com/peterbourgon/diskv/v3"
)

// cacheSizeMaxBytes max memory cache
const cacheSizeMaxBytes = 1024

// DiskvStore keeps each token in its own file under a base directory, using
// the AccessTokenKey and RefreshTokenKey file names.
//
// The two files are written one after the other, so the store is not atomic.
// A write error clears both files. A crash between the two writes is not
// cleaned up: the refresh token is written first, which leaves the new refresh
// token next to the old access token. The next 401 on the old access token
// refreshes with the new refresh token and recovers the session. Use FileStore
// or RedisStore where the pair must be replaced atomically.
type DiskvStore struct {
	dv *diskv.Diskv
}

// NewDiskvStore returns a store rooted at dir.
func NewDiskvStore(dir string) (*DiskvStore, error) {
	if dir == "" {
		return nil, trace.BadParameter("missing credentials directory")
	}

	// Simplest transform function: put all the data files into the base dir.
	flatTransform := func(s string) []string { return []string{} }

	dv := diskv.New(diskv.Options{
		BasePath:     dir,
		Transform:    flatTransform,
		CacheSizeMax: cacheSizeMaxBytes,
		TempDir:      dir,
		FilePerm:     0600,
		PathPerm:     0700,
	})
	return &DiskvStore{dv: dv}, nil
}

func (s *DiskvStore) GetCredentials(_ context.Context) (*Credentials, error) {
	if !s.dv.Has(AccessTokenKey) && !s.dv.Has(RefreshTokenKey) {
		return nil, notFound()
	}

	access, err := s.readString(AccessTokenKey)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	refresh, err := s.readString(RefreshTokenKey)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	if access == "" && refresh == "" {
		return nil, notFound()
	}
	return &Credentials{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *DiskvStore) PutCredentials(ctx context.Context, creds *Credentials) error {
	if err := creds.CheckAndSetDefaults(); err != nil {
		return trace.Wrap(err)
	}
	if err := s.dv.WriteString(RefreshTokenKey, creds.RefreshToken); err != nil {
		return trace.Wrap(err)
	}
	if err := s.dv.WriteString(AccessTokenKey, creds.AccessToken); err != nil {
		// Do not leave a pair that mixes generations behind.
		return trace.NewAggregate(err, s.ClearCredentials(ctx))
	}
	return nil
}

func (s *DiskvStore) ClearCredentials(_ context.Context) error {
	var errors []error
	for _, key := range []string{AccessTokenKey, RefreshTokenKey} {
		if !s.dv.Has(key) {
			continue
		}
		if err := s.dv.Erase(key); err != nil {
			errors = append(errors, trace.Wrap(err))
		}
	}
	return trace.NewAggregate(errors...)
}

// readString returns "" for a missing key.
func (s *DiskvStore) readString(key string) (string, error) {
	if !s.dv.Has(key) {
		return "", nil
	}
	b, err := s.dv.Read(key)
	if err != nil {
		return "", trace.Wrap(err)
	}
	return string(b), nil
}
