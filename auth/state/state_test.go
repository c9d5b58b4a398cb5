package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gravitational/trace"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("EmptyIsNotFound", func(t *testing.T) {
		_, err := store.GetCredentials(ctx)
		require.True(t, trace.IsNotFound(err), "expected NotFound, got %v", err)
	})

	t.Run("PutGet", func(t *testing.T) {
		creds := &Credentials{AccessToken: "A1", RefreshToken: "R1"}
		require.NoError(t, store.PutCredentials(ctx, creds))

		stored, err := store.GetCredentials(ctx)
		require.NoError(t, err)
		require.Equal(t, creds, stored)
	})

	t.Run("PutReplaces", func(t *testing.T) {
		require.NoError(t, store.PutCredentials(ctx, &Credentials{AccessToken: "A2", RefreshToken: "R2"}))

		stored, err := store.GetCredentials(ctx)
		require.NoError(t, err)
		require.Equal(t, "A2", stored.AccessToken)
		require.Equal(t, "R2", stored.RefreshToken)
	})

	t.Run("PutRejectsHalfPair", func(t *testing.T) {
		err := store.PutCredentials(ctx, &Credentials{AccessToken: "A3"})
		require.True(t, trace.IsBadParameter(err))
		err = store.PutCredentials(ctx, nil)
		require.True(t, trace.IsBadParameter(err))

		stored, err := store.GetCredentials(ctx)
		require.NoError(t, err)
		require.Equal(t, "A2", stored.AccessToken)
	})

	t.Run("Clear", func(t *testing.T) {
		require.NoError(t, store.ClearCredentials(ctx))
		_, err := store.GetCredentials(ctx)
		require.True(t, trace.IsNotFound(err))

		// idempotent
		require.NoError(t, store.ClearCredentials(ctx))
	})
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestMemoryStoreCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	creds := &Credentials{AccessToken: "A1", RefreshToken: "R1"}
	require.NoError(t, store.PutCredentials(ctx, creds))
	creds.AccessToken = "mutated"

	stored, err := store.GetCredentials(ctx)
	require.NoError(t, err)
	require.Equal(t, "A1", stored.AccessToken)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	testStore(t, store)
}

func TestFileStorePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.PutCredentials(context.Background(), &Credentials{AccessToken: "A1", RefreshToken: "R1"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `{"adminAccessToken":"A1","adminRefreshToken":"R1"}`, string(data))
}

func TestFileStoreCorrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))
	store, err := NewFileStore(path)
	require.NoError(t, err)

	_, err = store.GetCredentials(context.Background())
	require.Error(t, err)
	require.False(t, trace.IsNotFound(err))
}

func TestDiskvStore(t *testing.T) {
	store, err := NewDiskvStore(t.TempDir())
	require.NoError(t, err)
	testStore(t, store)
}

func TestDiskvStoreLayout(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskvStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.PutCredentials(context.Background(), &Credentials{AccessToken: "A1", RefreshToken: "R1"}))

	access, err := os.ReadFile(filepath.Join(dir, AccessTokenKey))
	require.NoError(t, err)
	require.Equal(t, "A1", string(access))
	refresh, err := os.ReadFile(filepath.Join(dir, RefreshTokenKey))
	require.NoError(t, err)
	require.Equal(t, "R1", string(refresh))
}

// A crash between the two writes of PutCredentials leaves the new refresh
// token beside the old access token. The store reads it back as is.
func TestDiskvStoreMixedPair(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewDiskvStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.PutCredentials(ctx, &Credentials{AccessToken: "A1", RefreshToken: "R1"}))

	require.NoError(t, os.WriteFile(filepath.Join(dir, RefreshTokenKey), []byte("R2"), 0600))

	reopened, err := NewDiskvStore(dir)
	require.NoError(t, err)
	creds, err := reopened.GetCredentials(ctx)
	require.NoError(t, err)
	require.Equal(t, &Credentials{AccessToken: "A1", RefreshToken: "R2"}, creds)
}

func TestRedisStore(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	store, err := NewRedisStore(client, "")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	testStore(t, store)
}

func TestDialRedisStore(t *testing.T) {
	srv := miniredis.RunT(t)
	ctx := context.Background()

	store, err := DialRedisStore(ctx, "redis://"+srv.Addr(), "team:session")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.PutCredentials(ctx, &Credentials{AccessToken: "A1", RefreshToken: "R1"}))
	require.Equal(t, "A1", srv.HGet("team:session", AccessTokenKey))
	require.Equal(t, "R1", srv.HGet("team:session", RefreshTokenKey))

	_, err = DialRedisStore(ctx, "not a url", "")
	require.True(t, trace.IsBadParameter(err))
}
