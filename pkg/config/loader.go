// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/stacklok/toolhive-bridge/pkg/errors"
)

// EnvPrefix is the prefix applied to every environment variable named in
// spec §6 (`*_ENV`, `*_API_BASE_URL`, ...): BRIDGE_ENV, BRIDGE_API_BASE_URL, etc.
const EnvPrefix = "BRIDGE"

// Defaults mirrors the "documented defaults" spec §6 promises for values
// that are not required to be set explicitly.
var Defaults = Settings{
	Env:            EnvDevelopment,
	VerifyTLS:      true,
	RequestTimeout: 30 * time.Second,
	Retry: RetryTuning{
		MaxAttempts:    3,
		BaseDelay:      200 * time.Millisecond,
		MaxDelay:       30 * time.Second,
		JitterFraction: 0.2,
	},
	RateLimit: RateLimitTuning{
		MaxRequestsPerWindow: 100,
		WindowSeconds:        60,
	},
}

// keys enumerates every viper key this loader binds, in the order they are
// registered with BindEnv below.
var keys = []string{
	"env", "api_base_url", "api_key",
	"client_id", "client_secret", "token_url", "scope",
	"timeout", "verify_ssl", "http_proxy", "https_proxy", "no_proxy",
	"max_attempts", "base_delay_ms", "max_delay_ms", "jitter_fraction",
	"rate_limit_max_requests", "rate_limit_window_seconds",
}

// Loader builds a Settings value from environment variables prefixed by
// EnvPrefix, following the "record built by a factory, returned by value"
// pattern spec.md §9 calls for.
type Loader struct {
	v *viper.Viper
}

// NewLoader returns a Loader wired to read from the process environment.
func NewLoader() *Loader {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
	return &Loader{v: v}
}

// Load reads environment variables, applies Defaults for anything unset,
// and returns the resulting Settings together with a *errors.Error of kind
// "config" if validation fails. Missing required variables in staging/
// production are validation failures here, not loader-level errors, so the
// caller sees one consistent error reporting path.
func (l *Loader) Load() (Settings, error) {
	s := Defaults
	s.Source = "env"

	if v := l.v.GetString("env"); v != "" {
		s.Env = Environment(v)
	}
	if v := l.v.GetString("api_base_url"); v != "" {
		s.BaseURL = v
	}
	s.APIKey = l.v.GetString("api_key")
	s.OAuthClientID = l.v.GetString("client_id")
	s.OAuthClientSecret = l.v.GetString("client_secret")
	s.OAuthTokenURL = l.v.GetString("token_url")
	s.OAuthScope = l.v.GetString("scope")
	s.HTTPProxy = l.v.GetString("http_proxy")
	s.HTTPSProxy = l.v.GetString("https_proxy")
	s.ProxyNoProxy = l.v.GetString("no_proxy")

	if l.v.IsSet("timeout") {
		s.RequestTimeout = time.Duration(l.v.GetInt("timeout")) * time.Second
	}
	if l.v.IsSet("verify_ssl") {
		s.VerifyTLS = l.v.GetBool("verify_ssl")
	}
	if l.v.IsSet("max_attempts") {
		s.Retry.MaxAttempts = l.v.GetInt("max_attempts")
	}
	if l.v.IsSet("base_delay_ms") {
		s.Retry.BaseDelay = time.Duration(l.v.GetInt("base_delay_ms")) * time.Millisecond
	}
	if l.v.IsSet("max_delay_ms") {
		s.Retry.MaxDelay = time.Duration(l.v.GetInt("max_delay_ms")) * time.Millisecond
	}
	if l.v.IsSet("jitter_fraction") {
		s.Retry.JitterFraction = l.v.GetFloat64("jitter_fraction")
	}
	if l.v.IsSet("rate_limit_max_requests") {
		s.RateLimit.MaxRequestsPerWindow = l.v.GetInt("rate_limit_max_requests")
	}
	if l.v.IsSet("rate_limit_window_seconds") {
		s.RateLimit.WindowSeconds = l.v.GetInt("rate_limit_window_seconds")
	}

	s.Mode = deriveAuthMode(s)

	if issues := requiredForEnvironment(s); len(issues) > 0 {
		return s, errors.NewConfigError(fmt.Sprintf("missing required configuration: %s", FormatIssues(issues)), nil)
	}
	if issues := Validate(s); len(issues) > 0 {
		return s, errors.NewConfigError(fmt.Sprintf("invalid configuration: %s", FormatIssues(issues)), nil)
	}

	return s, nil
}

// deriveAuthMode infers the auth mode from which credentials are populated;
// there is no separate auth-mode variable (spec §3 models auth mode as
// derived from configuration).
func deriveAuthMode(s Settings) AuthMode {
	switch {
	case s.APIKey != "":
		return AuthModeAPIKey
	case s.OAuthClientID != "" || s.OAuthClientSecret != "" || s.OAuthTokenURL != "":
		return AuthModeOAuth
	default:
		return AuthModeNone
	}
}

// requiredForEnvironment reports missing required variables: api_base_url in
// every environment, and auth credentials in staging/production. The
// resulting config error makes the process exit with code 2.
func requiredForEnvironment(s Settings) []string {
	var issues []string
	if s.BaseURL == "" {
		issues = append(issues, "api_base_url is required")
	}
	if s.IsProductionLike() && s.Mode == AuthModeNone {
		issues = append(issues, "api_key or oauth credentials are required in staging/production")
	}
	return issues
}
