/*
Copyright 2026 Marketdesk, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gravitational/trace"
	"github.com/pelletier/go-toml"

	"github.com/marketdesk/adminctl/apiclient"
	"github.com/marketdesk/adminctl/auth"
	"github.com/marketdesk/adminctl/auth/state"
	"github.com/marketdesk/adminctl/lib"
	"github.com/marketdesk/adminctl/lib/logger"
)

const (
	storeMemory = "memory"
	storeFile   = "file"
	storeDiskv  = "diskv"
	storeRedis  = "redis"
)

// Config stores the full configuration for adminctl.
type Config struct {
	Backend     BackendConfig     `toml:"backend"`
	Credentials CredentialsConfig `toml:"credentials"`
	Log         logger.Config     `toml:"log"`
}

// BackendConfig describes the admin backend API.
type BackendConfig struct {
	URL               string              `toml:"url"`
	LoginPath         string              `toml:"login_path"`
	RefreshPath       string              `toml:"refresh_path"`
	HealthPath        string              `toml:"health_path"`
	Timeout           time.Duration       `toml:"timeout"`
	AccessTokenField  string              `toml:"access_token_field"`
	RefreshTokenField string              `toml:"refresh_token_field"`
	RateLimit         apiclient.RateLimit `toml:"rate_limit"`
}

// CredentialsConfig selects where the Credential Pair is kept between runs.
type CredentialsConfig struct {
	// Store is one of "memory", "file", "diskv" or "redis".
	Store    string `toml:"store"`
	Path     string `toml:"path"`
	RedisURL string `toml:"redis_url"`
	RedisKey string `toml:"redis_key"`
}

const exampleConfig = `# Example adminctl configuration TOML file

[backend]
url = "https://api.example.com"            # Admin backend address
# login_path = "/api/admin/login"
# refresh_path = "/api/admin/refreshAccessToken"
# health_path = "/api/health"
# timeout = "10s"
# access_token_field = "data.accessToken"  # gjson path in login/refresh responses
# refresh_token_field = "data.refreshToken"

# [backend.rate_limit]
# tokens = 10                              # Requests allowed per interval, 0 disables
# interval = "1s"

[credentials]
store = "file"                             # "memory", "file", "diskv" or "redis"
path = "~/.adminctl/credentials.json"      # File for "file", directory for "diskv"
# redis_url = "redis://localhost:6379/0"   # Used by store = "redis"
# redis_key = "adminctl:session"

[log]
output = "stderr" # Logger output. Could be "stdout", "stderr" or "/var/log/adminctl.log"
severity = "INFO" # Logger severity. Could be "INFO", "ERROR", "DEBUG" or "WARN".
`

// LoadConfig reads the config file, initializes a new Config struct object, and returns it.
func LoadConfig(filepath string) (*Config, error) {
	t, err := toml.LoadFile(filepath)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	conf := &Config{}
	if err := t.Unmarshal(conf); err != nil {
		return nil, trace.Wrap(err)
	}
	if err := conf.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	return conf, nil
}

// CheckAndSetDefaults checks the config struct for any logical errors, and sets default values
// if some values are missing.
func (c *Config) CheckAndSetDefaults() error {
	if c.Backend.URL == "" {
		return trace.BadParameter("missing required value backend.url")
	}
	baseURL, err := lib.ParseBaseURL(c.Backend.URL)
	if err != nil {
		return trace.Wrap(err)
	}
	c.Backend.URL = baseURL.String()
	if c.Backend.LoginPath == "" {
		c.Backend.LoginPath = auth.DefaultLoginPath
	}
	if c.Backend.RefreshPath == "" {
		c.Backend.RefreshPath = auth.DefaultRefreshPath
	}
	if c.Backend.HealthPath == "" {
		c.Backend.HealthPath = apiclient.DefaultHealthPath
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = lib.DefaultBackendTimeout
	}
	if c.Backend.AccessTokenField == "" {
		c.Backend.AccessTokenField = auth.DefaultAccessTokenField
	}
	if c.Backend.RefreshTokenField == "" {
		c.Backend.RefreshTokenField = auth.DefaultRefreshTokenField
	}
	if c.Backend.RateLimit.Tokens > 0 && c.Backend.RateLimit.Interval == 0 {
		c.Backend.RateLimit.Interval = time.Second
	}

	if err := c.Credentials.CheckAndSetDefaults(); err != nil {
		return trace.Wrap(err)
	}

	if c.Log.Output == "" {
		c.Log.Output = "stderr"
	}
	if c.Log.Severity == "" {
		c.Log.Severity = "info"
	}
	return nil
}

func (c *CredentialsConfig) CheckAndSetDefaults() error {
	if c.Store == "" {
		c.Store = storeFile
	}
	c.Store = strings.ToLower(c.Store)
	switch c.Store {
	case storeMemory:
	case storeFile, storeDiskv:
		if c.Path == "" {
			c.Path = "~/.adminctl/credentials"
			if c.Store == storeFile {
				c.Path += ".json"
			}
		}
		path, err := expandHome(c.Path)
		if err != nil {
			return trace.Wrap(err)
		}
		c.Path = path
	case storeRedis:
		if c.RedisURL == "" {
			return trace.BadParameter("missing required value credentials.redis_url")
		}
		if c.RedisKey == "" {
			c.RedisKey = state.DefaultRedisKey
		}
	default:
		return trace.BadParameter("unknown credentials.store %q, expected one of memory, file, diskv, redis", c.Store)
	}
	return nil
}

// OpenStore builds the configured credentials store. The returned closer
// releases its connections.
func (c CredentialsConfig) OpenStore(ctx context.Context) (state.Store, func() error, error) {
	noop := func() error { return nil }
	switch c.Store {
	case storeMemory:
		return state.NewMemoryStore(), noop, nil
	case storeFile:
		store, err := state.NewFileStore(c.Path)
		return store, noop, trace.Wrap(err)
	case storeDiskv:
		store, err := state.NewDiskvStore(c.Path)
		return store, noop, trace.Wrap(err)
	case storeRedis:
		store, err := state.DialRedisStore(ctx, c.RedisURL, c.RedisKey)
		if err != nil {
			return nil, nil, trace.Wrap(err)
		}
		return store, store.Close, nil
	}
	return nil, nil, trace.BadParameter("unknown credentials store %q", c.Store)
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", trace.Wrap(err, "resolving home directory")
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
