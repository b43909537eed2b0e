// Package app provides the user-center server application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/logger"
	"github.com/spf13/cobra"

	"github.com/kart-io/sentinel-iam/cmd/user-center/app/options"
	usercenter "github.com/kart-io/sentinel-iam/internal/user-center"
	"github.com/kart-io/sentinel-iam/pkg/infra/app"
)

// commandDesc is the description of the command.
const commandDesc = `Sentinel IAM User Center

The identity and access management service.

This server provides:
  - Login, token refresh and logout with revocable JWTs
  - Users, roles and permissions administration
  - Per-operation authorization and role-based response filtering
  - Audit log of every administrative change

Examples:
  # Start with a local SQLite database
  user-center --jwt.key=$(openssl rand -hex 32)

  # Use MySQL and Redis
  user-center --db.driver=mysql --db.host=127.0.0.1 --redis.enabled

  # Use config file
  user-center -c /etc/sentinel-iam/user-center.yaml

Configuration:
  Configuration can be provided via:
  - Command-line flags (highest priority)
  - Environment variables (prefix: USER_CENTER_)
  - Configuration file (YAML)
  - Default values (lowest priority)`

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	application := app.NewApp(
		app.WithName("user-center"),
		app.WithShortDescription("Sentinel IAM user center"),
		app.WithDescription(commandDesc),
		app.WithArgs(cobra.NoArgs),
		app.WithSilence(),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)

	return application
}

// run contains the main logic for initializing and running the server.
func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx := setupSignalContext()

		server, err := cfg.NewServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", usercenter.Name, err)
		}
		defer func() { _ = logger.Flush() }()

		return server.Run(ctx)
	}
}

// setupSignalContext returns a context that is cancelled on SIGINT or SIGTERM.
// A second signal exits immediately.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
