// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package oauth implements the OAuth2 client-credentials authentication
// provider used when Settings.AuthMode is "oauth".
package oauth

import (
	"fmt"

	"github.com/stacklok/toolhive-bridge/pkg/networking"
)

// Config holds the client-credentials triple plus optional scope.
type Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scope        string
}

// NewConfig validates and returns a Config.
func NewConfig(clientID, clientSecret, tokenURL, scope string) (*Config, error) {
	if clientID == "" {
		return nil, fmt.Errorf("client ID is required")
	}
	if clientSecret == "" {
		return nil, fmt.Errorf("client secret is required")
	}
	if err := networking.ValidateEndpointURL(tokenURL); err != nil {
		return nil, fmt.Errorf("invalid token URL: %w", err)
	}
	return &Config{ClientID: clientID, ClientSecret: clientSecret, TokenURL: tokenURL, Scope: scope}, nil
}
