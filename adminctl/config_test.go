package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gravitational/trace"
	"github.com/stretchr/testify/require"

	"github.com/marketdesk/adminctl/apiclient"
	"github.com/marketdesk/adminctl/auth"
	"github.com/marketdesk/adminctl/auth/state"
)

func loadConfigString(t *testing.T, in string) (*Config, error) {
	t.Helper()
	filePath := filepath.Join(t.TempDir(), "config_test.toml")
	require.NoError(t, os.WriteFile(filePath, []byte(in), 0600))
	return LoadConfig(filePath)
}

func TestExampleConfig(t *testing.T) {
	conf, err := loadConfigString(t, exampleConfig)
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com", conf.Backend.URL)
	require.Equal(t, storeFile, conf.Credentials.Store)
	require.True(t, filepath.IsAbs(conf.Credentials.Path))
	require.Equal(t, "credentials.json", filepath.Base(conf.Credentials.Path))
}

func TestConfigDefaults(t *testing.T) {
	conf, err := loadConfigString(t, `
	[backend]
	url = "api.example.com:443/"
	[credentials]
	store = "memory"
	`)
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com", conf.Backend.URL)
	require.Equal(t, auth.DefaultLoginPath, conf.Backend.LoginPath)
	require.Equal(t, auth.DefaultRefreshPath, conf.Backend.RefreshPath)
	require.Equal(t, apiclient.DefaultHealthPath, conf.Backend.HealthPath)
	require.Equal(t, 10*time.Second, conf.Backend.Timeout)
	require.Equal(t, auth.DefaultAccessTokenField, conf.Backend.AccessTokenField)
	require.Equal(t, auth.DefaultRefreshTokenField, conf.Backend.RefreshTokenField)
	require.Zero(t, conf.Backend.RateLimit.Tokens)
	require.Equal(t, "stderr", conf.Log.Output)
	require.Equal(t, "info", conf.Log.Severity)
}

func TestConfigValues(t *testing.T) {
	conf, err := loadConfigString(t, `
	[backend]
	url = "http://localhost:8080"
	timeout = "3s"
	access_token_field = "token.access"
	refresh_token_field = "token.refresh"
	[backend.rate_limit]
	tokens = 5
	interval = "2s"
	[credentials]
	store = "Redis"
	redis_url = "redis://localhost:6379/1"
	[log]
	severity = "debug"
	`)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080", conf.Backend.URL)
	require.Equal(t, 3*time.Second, conf.Backend.Timeout)
	require.Equal(t, "token.access", conf.Backend.AccessTokenField)
	require.Equal(t, "token.refresh", conf.Backend.RefreshTokenField)
	require.Equal(t, apiclient.RateLimit{Tokens: 5, Interval: 2 * time.Second}, conf.Backend.RateLimit)
	require.Equal(t, storeRedis, conf.Credentials.Store)
	require.Equal(t, state.DefaultRedisKey, conf.Credentials.RedisKey)
	require.Equal(t, "debug", conf.Log.Severity)
}

func TestConfigErrors(t *testing.T) {
	testCases := []struct {
		desc string
		in   string
	}{
		{
			desc: "missing backend url",
			in: `
			[credentials]
			store = "memory"
			`,
		},
		{
			desc: "unknown store",
			in: `
			[backend]
			url = "https://api.example.com"
			[credentials]
			store = "sqlite"
			`,
		},
		{
			desc: "redis without url",
			in: `
			[backend]
			url = "https://api.example.com"
			[credentials]
			store = "redis"
			`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := loadConfigString(t, tc.in)
			require.Error(t, err)
			require.True(t, trace.IsBadParameter(err), "got %v", err)
		})
	}
}

func TestConfigStoreDefaults(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	file := CredentialsConfig{}
	require.NoError(t, file.CheckAndSetDefaults())
	require.Equal(t, filepath.Join(home, ".adminctl", "credentials.json"), file.Path)

	diskv := CredentialsConfig{Store: storeDiskv}
	require.NoError(t, diskv.CheckAndSetDefaults())
	require.Equal(t, filepath.Join(home, ".adminctl", "credentials"), diskv.Path)

	explicit := CredentialsConfig{Store: storeFile, Path: "/var/lib/adminctl/creds.json"}
	require.NoError(t, explicit.CheckAndSetDefaults())
	require.Equal(t, "/var/lib/adminctl/creds.json", explicit.Path)
}
