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
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gravitational/trace"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/marketdesk/adminctl/apiclient"
	"github.com/marketdesk/adminctl/auth"
	"github.com/marketdesk/adminctl/auth/state"
	"github.com/marketdesk/adminctl/lib"
	"github.com/marketdesk/adminctl/lib/logger"
)

// App wires the configured store, authorizer and API client together.
type App struct {
	conf Config
	out  io.Writer

	store      state.Store
	closeStore func() error
	session    *auth.Session
	client     *apiclient.Client
	registry   *prometheus.Registry
}

// NewApp opens the credentials store and builds the backend clients.
func NewApp(ctx context.Context, conf Config, out io.Writer) (*App, error) {
	store, closeStore, err := conf.Credentials.OpenStore(ctx)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	app := &App{conf: conf, out: out, store: store, closeStore: closeStore}
	if err := app.init(); err != nil {
		closeStore()
		return nil, trace.Wrap(err)
	}
	return app, nil
}

func (a *App) init() error {
	authorizer, err := auth.NewHTTPAuthorizer(auth.AuthorizerConfig{
		BaseURL:           a.conf.Backend.URL,
		LoginPath:         a.conf.Backend.LoginPath,
		RefreshPath:       a.conf.Backend.RefreshPath,
		AccessTokenField:  a.conf.Backend.AccessTokenField,
		RefreshTokenField: a.conf.Backend.RefreshTokenField,
		Timeout:           a.conf.Backend.Timeout,
	})
	if err != nil {
		return trace.Wrap(err)
	}

	a.session, err = auth.NewSession(auth.SessionConfig{
		Store:         a.store,
		Authenticator: authorizer,
	})
	if err != nil {
		return trace.Wrap(err)
	}

	a.registry = prometheus.NewRegistry()
	metrics, err := apiclient.NewMetrics(a.registry)
	if err != nil {
		return trace.Wrap(err)
	}

	a.client, err = apiclient.New(apiclient.Config{
		BaseURL:          a.conf.Backend.URL,
		Store:            a.store,
		Refresher:        authorizer,
		Timeout:          a.conf.Backend.Timeout,
		HealthPath:       a.conf.Backend.HealthPath,
		RateLimit:        a.conf.Backend.RateLimit,
		Metrics:          metrics,
		OnSessionExpired: a.onSessionExpired,
	})
	return trace.Wrap(err)
}

// onSessionExpired is where a browser session would be sent back to the
// login page.
func (a *App) onSessionExpired(ctx context.Context, event apiclient.SessionExpiredEvent) {
	logger.Get(ctx).WithField("reason", event.Reason).Warn("Session expired, run `adminctl login`")
}

// Close releases the API client and the credentials store.
func (a *App) Close(ctx context.Context) error {
	return trace.NewAggregate(a.client.Close(ctx), a.closeStore())
}

// Login stores a fresh Credential Pair for email.
func (a *App) Login(ctx context.Context, email, password string) error {
	if err := a.session.Login(ctx, email, password); err != nil {
		return trace.Wrap(err, "login failed")
	}
	fmt.Fprintf(a.out, "Logged in to %s as %s\n", a.conf.Backend.URL, email)
	return nil
}

// Logout forgets the stored Credential Pair.
func (a *App) Logout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		return trace.Wrap(err)
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// Status prints the stored session as a table.
func (a *App) Status(ctx context.Context) error {
	status, err := a.session.Status(ctx)
	if err != nil {
		return trace.Wrap(err)
	}

	table := tablewriter.NewWriter(a.out)
	table.SetHeader([]string{"Field", "Value"})
	table.SetAutoFormatHeaders(false)
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	table.Append([]string{"Backend", a.conf.Backend.URL})
	table.Append([]string{"Store", a.conf.Credentials.Store})
	table.Append([]string{"State", status.State.String()})
	if status.State != auth.Unauthenticated {
		table.Append([]string{"Access token expires", formatExpiry(status.AccessExpiresAt)})
		table.Append([]string{"Refresh token expires", formatExpiry(status.RefreshExpiresAt)})
		table.Append([]string{"Access token expired", fmt.Sprint(status.AccessExpired)})
	}
	table.Render()
	return nil
}

func formatExpiry(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Local().Format(time.RFC3339)
}

// Health checks that the backend is reachable.
func (a *App) Health(ctx context.Context) error {
	if err := a.client.HealthCheck(ctx); err != nil {
		return trace.Wrap(err)
	}
	fmt.Fprintf(a.out, "%s is healthy\n", a.conf.Backend.URL)
	return nil
}

// Request sends an authenticated request and prints the response body.
// data, when set, must be a JSON document. query items are key=value.
func (a *App) Request(ctx context.Context, method, path, data string, query []string) error {
	req := apiclient.Request{
		Method: strings.ToUpper(method),
		Path:   path,
	}
	if !strings.HasPrefix(req.Path, "/") {
		req.Path = "/" + req.Path
	}
	if data != "" {
		if !lib.JSON.Valid([]byte(data)) {
			return trace.BadParameter("--data is not valid JSON")
		}
		req.Body = []byte(data)
	}
	if len(query) > 0 {
		values, err := parseQuery(query)
		if err != nil {
			return trace.Wrap(err)
		}
		req.Query = values
	}
	if req.Method == http.MethodGet && req.Body != nil {
		return trace.BadParameter("GET requests cannot carry --data")
	}

	resp, err := a.client.Do(ctx, req)
	if err != nil {
		return trace.Wrap(err)
	}
	return trace.Wrap(printBody(a.out, resp.Body))
}

func parseQuery(items []string) (url.Values, error) {
	values := make(url.Values, len(items))
	for _, item := range items {
		key, value, ok := strings.Cut(item, "=")
		if !ok || key == "" {
			return nil, trace.BadParameter("query parameter %q is not in key=value form", item)
		}
		values.Add(key, value)
	}
	return values, nil
}

// printBody pretty-prints JSON bodies and writes anything else verbatim.
func printBody(w io.Writer, body []byte) error {
	if len(body) == 0 {
		return nil
	}
	var v interface{}
	if err := lib.JSON.Unmarshal(body, &v); err != nil {
		_, err := w.Write(body)
		return trace.Wrap(err)
	}
	pretty, err := lib.JSON.MarshalIndent(v, "", "  ")
	if err != nil {
		return trace.Wrap(err)
	}
	_, err = fmt.Fprintf(w, "%s\n", pretty)
	return trace.Wrap(err)
}

// WriteMetrics dumps the request and session counters in the node exporter
// textfile format.
func (a *App) WriteMetrics(filename string) error {
	return trace.Wrap(prometheus.WriteToTextfile(filename, a.registry))
}
