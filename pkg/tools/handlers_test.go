// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/toolhive-bridge/pkg/auth"
	"github.com/stacklok/toolhive-bridge/pkg/config"
	"github.com/stacklok/toolhive-bridge/pkg/orchestrator"
	"github.com/stacklok/toolhive-bridge/pkg/schema"
	"github.com/stacklok/toolhive-bridge/pkg/upstream"
)

func makeCallToolRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func newTestServer(t *testing.T, baseURL string) *Server {
	t.Helper()
	validator, err := schema.NewValidator()
	require.NoError(t, err)

	s := config.Settings{
		BaseURL:        baseURL,
		Env:            config.EnvDevelopment,
		Mode:           config.AuthModeAPIKey,
		APIKey:         "k",
		VerifyTLS:      true,
		RequestTimeout: 2 * time.Second,
		Retry:          config.RetryTuning{MaxAttempts: 3, BaseDelay: 5 * time.Millisecond, MaxDelay: 50 * time.Millisecond},
		RateLimit:      config.RateLimitTuning{MaxRequestsPerWindow: 1000, WindowSeconds: 1},
	}
	limiter := upstream.NewRateLimiter(s.RateLimit)
	client, err := upstream.New(s, auth.NewAPIKeyProvider(s.APIKey), limiter)
	require.NoError(t, err)

	return NewServer(orchestrator.New(validator, client, s), s, "test")
}

func TestServerHealth_DoesNotContactUpstream(t *testing.T) {
	t.Parallel()

	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))
	defer srv.Close()

	s := newTestServer(t, srv.URL)
	result, err := s.handleServerHealth(context.Background(), makeCallToolRequest(nil))
	require.NoError(t, err)

	data, ok := result.StructuredContent.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, data["ok"])
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, "api_key", data["auth_mode"])
	assert.False(t, called)
}

func TestOperationHandler_ForwardsToOrchestrator(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"price":3}`))
	}))
	defer srv.Close()

	validator, err := schema.NewValidator()
	require.NoError(t, err)
	s := config.Settings{
		BaseURL: srv.URL, RequestTimeout: 2 * time.Second,
		Retry:     config.RetryTuning{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond},
		RateLimit: config.RateLimitTuning{MaxRequestsPerWindow: 1000, WindowSeconds: 1},
	}
	limiter := upstream.NewRateLimiter(s.RateLimit)
	client, err := upstream.New(s, auth.NewAPIKeyProvider("k"), limiter)
	require.NoError(t, err)
	o := orchestrator.New(validator, client, s)

	handler := newOperationHandler(o, "pricing")
	result, err := handler(context.Background(), makeCallToolRequest(map[string]any{}))
	require.NoError(t, err)

	env, ok := result.StructuredContent.(orchestrator.Envelope)
	require.True(t, ok)
	assert.True(t, env.OK)
	assert.Equal(t, float64(3), env.Data["price"])
}
