// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"strings"

	"github.com/stacklok/toolhive-bridge/pkg/networking"
)

// Validate checks every invariant spec.md §3 places on Settings, returning
// every violation found rather than failing on the first one, so an operator
// sees the complete list in one pass.
func Validate(s Settings) []string {
	var issues []string

	switch s.Env {
	case EnvDevelopment, EnvTest, EnvStaging, EnvProduction:
	default:
		issues = append(issues, fmt.Sprintf("env: invalid value %q", s.Env))
	}

	if err := networking.ValidateEndpointURL(s.BaseURL); err != nil {
		issues = append(issues, "base_url: "+err.Error())
	}

	issues = append(issues, validateAuthMode(s)...)

	if err := networking.ValidateEndpointURL(s.OAuthTokenURL); s.Mode == AuthModeOAuth && err != nil {
		issues = append(issues, "oauth_token_url: "+err.Error())
	}

	if s.HTTPProxy != "" && networking.ValidateEndpointURL(s.HTTPProxy) != nil {
		issues = append(issues, "http_proxy: invalid URL")
	}
	if s.HTTPSProxy != "" && networking.ValidateEndpointURL(s.HTTPSProxy) != nil {
		issues = append(issues, "https_proxy: invalid URL")
	}

	if s.RequestTimeout <= 0 {
		issues = append(issues, "request_timeout: must be > 0")
	}
	if s.Retry.MaxAttempts < 1 {
		issues = append(issues, "retry.max_attempts: must be >= 1")
	}
	if s.Retry.BaseDelay < 0 {
		issues = append(issues, "retry.base_delay: must be >= 0")
	}
	if s.Retry.MaxDelay < 0 {
		issues = append(issues, "retry.max_delay: must be >= 0")
	}
	if s.Retry.JitterFraction < 0 {
		issues = append(issues, "retry.jitter_fraction: must be >= 0")
	}
	if s.RateLimit.MaxRequestsPerWindow < 0 {
		issues = append(issues, "rate_limit.max_requests_per_window: must be >= 0")
	}
	if s.RateLimit.WindowSeconds < 0 {
		issues = append(issues, "rate_limit.window_seconds: must be >= 0")
	}

	return issues
}

// validateAuthMode enforces spec §3: in staging/production exactly one of
// {api_key, oauth} must be fully populated — never zero, never both.
func validateAuthMode(s Settings) []string {
	var issues []string

	hasAPIKey := s.APIKey != ""
	hasOAuth := s.OAuthClientID != "" || s.OAuthClientSecret != "" || s.OAuthTokenURL != ""
	oauthComplete := s.OAuthClientID != "" && s.OAuthClientSecret != "" && s.OAuthTokenURL != ""

	switch s.Mode {
	case AuthModeAPIKey:
		if !hasAPIKey {
			issues = append(issues, "api_key: required when auth mode is api_key")
		}
	case AuthModeOAuth:
		if hasOAuth && !oauthComplete {
			issues = append(issues, "oauth: client_id, client_secret, and token_url must all be set together")
		} else if !oauthComplete {
			issues = append(issues, "oauth: client_id, client_secret, and token_url are all required when auth mode is oauth")
		}
	case AuthModeNone:
		if s.IsProductionLike() {
			issues = append(issues, "auth mode: none is not permitted in staging/production")
		}
	default:
		issues = append(issues, fmt.Sprintf("auth_mode: invalid value %q", s.Mode))
	}

	if hasAPIKey && hasOAuth {
		issues = append(issues, "auth: api_key and oauth credentials must not both be populated")
	}

	return issues
}

// FormatIssues renders a slice of validation issues as a single
// "; "-joined string, for inclusion in a ConfigError message.
func FormatIssues(issues []string) string {
	return strings.Join(issues, "; ")
}
