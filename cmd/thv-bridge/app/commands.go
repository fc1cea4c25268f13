// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app provides the entry point for the toolhive-bridge command-line
// application: a cobra root command wiring together configuration loading,
// the upstream client, the orchestrator, and the MCP tool surface.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/toolhive-bridge/pkg/auth"
	"github.com/stacklok/toolhive-bridge/pkg/auth/oauth"
	"github.com/stacklok/toolhive-bridge/pkg/config"
	"github.com/stacklok/toolhive-bridge/pkg/logger"
	"github.com/stacklok/toolhive-bridge/pkg/orchestrator"
	"github.com/stacklok/toolhive-bridge/pkg/schema"
	"github.com/stacklok/toolhive-bridge/pkg/tools"
	"github.com/stacklok/toolhive-bridge/pkg/upstream"
)

// shutdownDrain is the graceful-shutdown window spec §5 gives in-flight
// requests to finish before the process exits.
const shutdownDrain = 30 * time.Second

// version is overwritten at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:               "thv-bridge",
	DisableAutoGenTag: true,
	Short:             "MCP bridge that fronts a single upstream REST service",
	Long: `thv-bridge is a protocol-bridging MCP server. It exposes the upstream
service's image, speech, chat, vector-store, task-status, and pricing
operations as MCP tools, centralizing authentication, retry/backoff, rate
limiting, error normalization, and tracing for every call.`,
	Run: func(cmd *cobra.Command, _ []string) {
		if err := cmd.Help(); err != nil {
			logger.Errorf("Error displaying help: %v", err)
		}
	},
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.Initialize()
	},
}

// NewRootCmd creates a new root command for the thv-bridge CLI.
func NewRootCmd() *cobra.Command {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		logger.Errorf("Error binding debug flag: %v", err)
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newValidateConfigCmd())

	rootCmd.SilenceUsage = true

	return rootCmd
}

// newServeCmd creates the serve command for starting the bridge's MCP server.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP bridge server",
		Long: `Start the MCP bridge server. Configuration is read from the process
environment (BRIDGE_* variables); see "validate-config" to check it without
starting the server.`,
		RunE: runServe,
	}

	cmd.Flags().String("transport", "stdio", "Transport to serve on: stdio or http")
	cmd.Flags().String("host", "127.0.0.1", "Host address to bind to (http transport only)")
	cmd.Flags().Int("port", 8080, "Port to listen on (http transport only)")

	return cmd
}

// newVersionCmd creates the version command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			logger.Infof("thv-bridge version: %s", version)
		},
	}
}

// newValidateConfigCmd creates the validate-config command: load Settings
// from the environment, validate them, and print the redacted view (spec
// §6 operational tooling, supplemented per SPEC_FULL.md).
func newValidateConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config",
		Short: "Validate bridge configuration loaded from the environment",
		Long: `Load configuration from BRIDGE_* environment variables, validate it, and
print the redacted settings. Exits non-zero if configuration is invalid.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			s, err := config.NewLoader().Load()
			if err != nil {
				logger.Errorf("Configuration invalid: %v", err)
				return err
			}

			r := s.Redacted()
			logger.Infof("Configuration is valid")
			logger.Infof("  env: %s", r.Env)
			logger.Infof("  api_base_url: %s", r.BaseURL)
			logger.Infof("  auth_mode: %s", r.Mode)
			logger.Infof("  verify_tls: %v", r.VerifyTLS)
			logger.Infof("  request_timeout: %s", r.RequestTimeout)
			logger.Infof("  retry: max_attempts=%d base_delay=%s max_delay=%s",
				r.Retry.MaxAttempts, r.Retry.BaseDelay, r.Retry.MaxDelay)
			logger.Infof("  rate_limit: max_requests_per_window=%d window_seconds=%d",
				r.RateLimit.MaxRequestsPerWindow, r.RateLimit.WindowSeconds)

			return nil
		},
	}
}

// buildAuthProvider selects the auth.Provider implementation matching
// Settings.Mode (spec §4.1).
func buildAuthProvider(s config.Settings, httpClient *http.Client) (auth.Provider, error) {
	switch s.Mode {
	case config.AuthModeAPIKey:
		return auth.NewAPIKeyProvider(s.APIKey), nil
	case config.AuthModeOAuth:
		cfg, err := oauth.NewConfig(s.OAuthClientID, s.OAuthClientSecret, s.OAuthTokenURL, s.OAuthScope)
		if err != nil {
			return nil, fmt.Errorf("invalid oauth configuration: %w", err)
		}
		return oauth.NewProvider(cfg, httpClient), nil
	case config.AuthModeNone:
		return auth.NewNoneProvider(), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", s.Mode)
	}
}

// runServe loads configuration, wires the upstream client, orchestrator and
// tool surface, and serves the MCP transport named by --transport.
func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	s, err := config.NewLoader().Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Infof("Configuration loaded (env=%s, auth_mode=%s, base_url=%s)", s.Env, s.Mode, s.BaseURL)

	limiter := upstream.NewRateLimiter(s.RateLimit)

	// An auth provider that refreshes over HTTP needs its own short-lived
	// client distinct from the upstream.Client's; oauth.Provider takes one
	// directly so it isn't subject to the upstream retry/rate-limit policy.
	authProv, err := buildAuthProvider(s, &http.Client{Timeout: s.RequestTimeout})
	if err != nil {
		return fmt.Errorf("failed to build auth provider: %w", err)
	}

	client, err := upstream.New(s, authProv, limiter)
	if err != nil {
		return fmt.Errorf("failed to build upstream client: %w", err)
	}

	validator, err := schema.NewValidator()
	if err != nil {
		return fmt.Errorf("failed to compile operation schemas: %w", err)
	}

	o := orchestrator.New(validator, client, s)
	srv := tools.NewServer(o, s, version)

	transport, _ := cmd.Flags().GetString("transport")
	switch transport {
	case "stdio":
		logger.Info("Starting MCP bridge on stdio")
		return srv.ServeStdio()
	case "http":
		return serveHTTP(ctx, cmd, srv)
	default:
		return fmt.Errorf("unknown transport %q, expected stdio or http", transport)
	}
}

// serveHTTP starts the streamable-HTTP transport and blocks until ctx is
// cancelled (signal or parent shutdown), then drains in-flight requests for
// up to shutdownDrain before returning (spec §5).
func serveHTTP(ctx context.Context, cmd *cobra.Command, srv *tools.Server) error {
	host, _ := cmd.Flags().GetString("host")
	port, _ := cmd.Flags().GetInt("port")
	addr := fmt.Sprintf("%s:%d", host, port)

	handler := srv.StreamableHTTPHandler(ctx)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Starting MCP bridge on http://%s/mcp", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down MCP bridge")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownDrain)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
