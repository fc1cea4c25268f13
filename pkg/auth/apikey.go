// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package auth

import "context"

// apiKeyProvider is a stateless Provider for Settings.AuthMode == "api_key".
// Adapted from the teacher's remote.BearerTokenSource: a static bearer value
// with no expiry and nothing to invalidate.
type apiKeyProvider struct {
	apiKey string
}

// NewAPIKeyProvider returns a Provider that always sends "Bearer <apiKey>".
func NewAPIKeyProvider(apiKey string) Provider {
	return &apiKeyProvider{apiKey: apiKey}
}

func (p *apiKeyProvider) HeaderFor(context.Context) (string, string, error) {
	return "Authorization", "Bearer " + p.apiKey, nil
}

// Invalidate is a no-op: a static API key has nothing to refresh.
func (p *apiKeyProvider) Invalidate() {}

// noneProvider is used for Settings.AuthMode == "none": no header is sent.
type noneProvider struct{}

// NewNoneProvider returns a Provider that attaches no Authorization header.
func NewNoneProvider() Provider {
	return &noneProvider{}
}

func (*noneProvider) HeaderFor(context.Context) (string, string, error) {
	return "", "", nil
}

func (*noneProvider) Invalidate() {}
