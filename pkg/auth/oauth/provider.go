// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package oauth

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/stacklok/toolhive-bridge/pkg/errors"
	"github.com/stacklok/toolhive-bridge/pkg/logger"
	"github.com/stacklok/toolhive-bridge/pkg/networking"
)

// refreshMargin matches spec: a token is usable when now + refreshMargin < expiry.
const refreshMargin = 300 * time.Second

// defaultExpiresIn is substituted when the token endpoint omits expires_in.
const defaultExpiresIn = 3600 * time.Second

// tokenResponse is the expected shape of the token endpoint's JSON body.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// Provider implements auth.Provider for the OAuth2 client-credentials grant.
// It maintains at most one cached access token, refreshed under a
// single-flight discipline so concurrent callers never trigger more than one
// refresh request at a time.
type Provider struct {
	cfg        *Config
	httpClient *http.Client

	mu     sync.Mutex
	cached *oauth2.Token

	group singleflight.Group
}

// NewProvider returns a Provider that refreshes tokens against cfg.TokenURL
// using httpClient.
func NewProvider(cfg *Config, httpClient *http.Client) *Provider {
	return &Provider{cfg: cfg, httpClient: httpClient}
}

// HeaderFor returns "Authorization: Bearer <token>", refreshing first if the
// cached token is not usable.
func (p *Provider) HeaderFor(ctx context.Context) (string, string, error) {
	tok, err := p.token(ctx)
	if err != nil {
		return "", "", err
	}
	return "Authorization", "Bearer " + tok.AccessToken, nil
}

// Invalidate marks the cached token unusable, forcing the next HeaderFor
// call to refresh. Called by the upstream client after a 401 (auth_stale).
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.cached = nil
	p.mu.Unlock()
}

func (p *Provider) token(ctx context.Context) (*oauth2.Token, error) {
	if tok := p.usableCached(); tok != nil {
		return tok, nil
	}

	v, err, _ := p.group.Do("refresh", func() (any, error) {
		if tok := p.usableCached(); tok != nil {
			return tok, nil
		}
		return p.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*oauth2.Token), nil
}

func (p *Provider) usableCached() *oauth2.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached == nil || p.cached.AccessToken == "" {
		return nil
	}
	if time.Now().Add(refreshMargin).Before(p.cached.Expiry) {
		return p.cached
	}
	return nil
}

// refresh performs the client-credentials POST described by spec §4.2/§6:
// application/x-www-form-urlencoded, grant_type=client_credentials, optional
// scope, HTTP Basic auth with (client_id, client_secret).
func (p *Provider) refresh(ctx context.Context) (*oauth2.Token, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	if p.cfg.Scope != "" {
		form.Set("scope", p.cfg.Scope)
	}

	result, err := networking.FetchJSONWithForm[tokenResponse](ctx, p.httpClient, p.cfg.TokenURL, form,
		networking.WithHeader("Authorization", basicAuthHeader(p.cfg.ClientID, p.cfg.ClientSecret)),
	)
	if err != nil {
		return nil, errors.NewUpstreamError("oauth token refresh failed", err)
	}
	if result.Data.AccessToken == "" {
		return nil, errors.NewUpstreamError("oauth token response missing access_token", nil)
	}

	expiresIn := defaultExpiresIn
	if result.Data.ExpiresIn > 0 {
		expiresIn = time.Duration(result.Data.ExpiresIn) * time.Second
	}
	tokenType := result.Data.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	tok := &oauth2.Token{
		AccessToken: result.Data.AccessToken,
		TokenType:   tokenType,
		Expiry:      time.Now().Add(expiresIn),
	}

	p.mu.Lock()
	p.cached = tok
	p.mu.Unlock()

	logger.Debugw("oauth token refreshed", "expires_in_seconds", int64(expiresIn.Seconds()))

	return tok, nil
}

func basicAuthHeader(clientID, clientSecret string) string {
	req := &http.Request{Header: http.Header{}}
	req.SetBasicAuth(clientID, clientSecret)
	return req.Header.Get("Authorization")
}
