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
	"os"
	"strings"

	"github.com/gravitational/kingpin"
	"github.com/gravitational/trace"
	"github.com/manifoldco/promptui"

	"github.com/marketdesk/adminctl/apiclient"
	"github.com/marketdesk/adminctl/lib"
	"github.com/marketdesk/adminctl/lib/logger"
)

func main() {
	logger.Init()
	app := kingpin.New("adminctl", "Command line client for the marketplace admin API.")

	path := app.Flag("config", "TOML config file path").
		Short('c').
		Default("/etc/adminctl.toml").
		String()
	debug := app.Flag("debug", "Enable verbose logging to stderr").
		Short('d').
		Bool()
	metricsFile := app.Flag("metrics-textfile", "Write request and session counters to this file on exit").
		String()

	app.Command("configure", "Prints an example .TOML configuration file.")
	app.Command("version", "Prints adminctl version and exits.")

	loginCmd := app.Command("login", "Logs in and stores the issued tokens.")
	email := loginCmd.Flag("email", "Admin account email").String()
	password := loginCmd.Flag("password", "Admin account password. Prompted for when omitted.").String()

	app.Command("logout", "Forgets the stored tokens.")
	app.Command("status", "Shows the stored session.")
	app.Command("health", "Checks that the backend is reachable.")

	requestCmd := app.Command("request", "Sends an authenticated request and prints the response.")
	method := requestCmd.Arg("method", "HTTP method").Required().
		Enum("GET", "POST", "PUT", "PATCH", "DELETE", "get", "post", "put", "patch", "delete")
	reqPath := requestCmd.Arg("path", "API path, e.g. /api/admin/vendors").Required().String()
	data := requestCmd.Flag("data", "JSON request body").String()
	query := requestCmd.Flag("query", "Query parameter as key=value, repeatable").Strings()

	selectedCmd, err := app.Parse(os.Args[1:])
	if err != nil {
		lib.Bail(err)
	}

	switch selectedCmd {
	case "configure":
		fmt.Print(exampleConfig)
		return
	case "version":
		fmt.Println(lib.VersionString(app.Name, Version, Gitref))
		return
	}

	ctx, cancel := lib.SignalContext(context.Background())
	defer cancel()

	err = run(ctx, *path, *debug, *metricsFile, func(ctx context.Context, a *App) error {
		switch selectedCmd {
		case "login":
			creds, err := promptCredentials(*email, *password)
			if err != nil {
				return trace.Wrap(err)
			}
			return a.Login(ctx, creds.email, creds.password)
		case "logout":
			return a.Logout(ctx)
		case "status":
			return a.Status(ctx)
		case "health":
			return a.Health(ctx)
		case "request":
			return a.Request(ctx, *method, *reqPath, *data, *query)
		}
		return trace.BadParameter("unknown command %q", selectedCmd)
	})
	switch {
	case err == nil:
		return
	case apiclient.IsSessionExpired(err):
		fmt.Fprintln(os.Stderr, "session expired, run `adminctl login`")
	case lib.IsCanceled(err):
		logger.Standard().Info("Interrupted")
		os.Exit(1)
	case lib.IsDeadline(err):
		logger.Standard().Error("Backend did not answer in time")
	}
	cancel()
	lib.Bail(err)
}

func run(ctx context.Context, configPath string, debug bool, metricsFile string, cmd func(context.Context, *App) error) error {
	conf, err := LoadConfig(configPath)
	if err != nil {
		return trace.Wrap(err)
	}

	logConfig := conf.Log
	if debug {
		logConfig.Severity = "debug"
	}
	if err = logger.Setup(logConfig); err != nil {
		return trace.Wrap(err)
	}
	defer logger.Close()
	if debug {
		logger.Standard().Debugf("DEBUG logging enabled")
	}

	app, err := NewApp(ctx, *conf, os.Stdout)
	if err != nil {
		return trace.Wrap(err)
	}
	defer func() {
		if err := app.Close(context.Background()); err != nil {
			logger.Standard().WithError(err).Warn("Failed to close")
		}
	}()

	err = cmd(ctx, app)
	if metricsFile != "" {
		if merr := app.WriteMetrics(metricsFile); merr != nil {
			return trace.NewAggregate(err, merr)
		}
	}
	return trace.Wrap(err)
}

type loginCredentials struct {
	email    string
	password string
}

// promptCredentials asks for whatever was not passed on the command line.
func promptCredentials(email, password string) (loginCredentials, error) {
	if email == "" {
		prompt := promptui.Prompt{
			Label:    "Email",
			Validate: validateEmail,
		}
		result, err := prompt.Run()
		if err != nil {
			return loginCredentials{}, trace.Wrap(err)
		}
		email = result
	} else if err := validateEmail(email); err != nil {
		return loginCredentials{}, trace.Wrap(err)
	}

	if password == "" {
		prompt := promptui.Prompt{
			Label: "Password",
			Mask:  '*',
			Validate: func(s string) error {
				if s == "" {
					return trace.BadParameter("password is required")
				}
				return nil
			},
		}
		result, err := prompt.Run()
		if err != nil {
			return loginCredentials{}, trace.Wrap(err)
		}
		password = result
	}
	return loginCredentials{email: strings.TrimSpace(email), password: password}, nil
}

func validateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return trace.BadParameter("email is required")
	}
	if !strings.Contains(s, "@") {
		return trace.BadParameter("%q is not a valid email", s)
	}
	return nil
}
