// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"encoding/base64"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/toolhive-bridge/pkg/auth"
	"github.com/stacklok/toolhive-bridge/pkg/config"
	"github.com/stacklok/toolhive-bridge/pkg/schema"
	"github.com/stacklok/toolhive-bridge/pkg/upstream"
)

func testSettings(baseURL string) config.Settings {
	return config.Settings{
		BaseURL:        baseURL,
		VerifyTLS:      true,
		RequestTimeout: 2 * time.Second,
		Retry: config.RetryTuning{
			MaxAttempts:    3,
			BaseDelay:      5 * time.Millisecond,
			MaxDelay:       50 * time.Millisecond,
			JitterFraction: 0,
		},
		RateLimit: config.RateLimitTuning{MaxRequestsPerWindow: 1000, WindowSeconds: 1},
	}
}

func newTestOrchestrator(t *testing.T, baseURL string, authProv auth.Provider) *Orchestrator {
	t.Helper()
	validator, err := schema.NewValidator()
	require.NoError(t, err)

	s := testSettings(baseURL)
	limiter := upstream.NewRateLimiter(s.RateLimit)
	client, err := upstream.New(s, authProv, limiter)
	require.NoError(t, err)

	return New(validator, client, s)
}

// Scenario 1: text-to-image happy path (spec §8).
func TestExecute_TextToImage_HappyPath(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/text-to-image", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"task_id":"11111111-1111-1111-1111-111111111111","status":"pending"}`))
	}))
	defer srv.Close()

	o := newTestOrchestrator(t, srv.URL, auth.NewAPIKeyProvider("k"))
	env := o.Execute(context.Background(), "text_to_image", map[string]any{"prompt": "a red cube"}, "")

	assert.True(t, env.OK)
	assert.Equal(t, "text_to_image", env.Operation)
	assert.NotEmpty(t, env.TraceID)
	assert.Equal(t, http.StatusAccepted, env.Status)
	assert.Equal(t, "pending", env.Data["status"])
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", env.Data["task_id"])
}

// Scenario 2: validation failure, no network call made (spec §8).
func TestExecute_Chat_ValidationFailure(t *testing.T) {
	t.Parallel()

	called := atomic.Bool{}
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called.Store(true)
	}))
	defer srv.Close()

	o := newTestOrchestrator(t, srv.URL, auth.NewAPIKeyProvider("k"))
	env := o.Execute(context.Background(), "chat", map[string]any{"messages": []any{}}, "")

	require.False(t, env.OK)
	assert.Equal(t, "validation", env.Kind)
	require.Len(t, env.Issues, 1)
	assert.Equal(t, "messages", env.Issues[0].Path)
	assert.Equal(t, "min_length", env.Issues[0].Code)
	assert.False(t, called.Load(), "validation failure must short-circuit before any network call")
}

// Scenario 3: 429 with Retry-After then success (spec §8).
func TestExecute_Pricing_RetryAfterThenSuccess(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"price":1}`))
	}))
	defer srv.Close()

	o := newTestOrchestrator(t, srv.URL, auth.NewAPIKeyProvider("k"))
	env := o.Execute(context.Background(), "pricing", map[string]any{}, "")

	assert.True(t, env.OK)
	assert.Equal(t, float64(1), env.Data["price"])
	assert.Equal(t, int32(2), attempts.Load())
}

// Scenario 4: OAuth 401 triggers exactly one auth_stale retry without
// consuming a backoff delay (spec §8).
func TestExecute_Chat_AuthStaleRefreshAndRetry(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer stale" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"reply":"hi"}`))
	}))
	defer srv.Close()

	authProv := &refreshingAuthProvider{}
	o := newTestOrchestrator(t, srv.URL, authProv)

	start := time.Now()
	env := o.Execute(context.Background(), "chat",
		map[string]any{"messages": []any{map[string]any{"role": "user", "content": "hi"}}}, "")
	elapsed := time.Since(start)

	assert.True(t, env.OK)
	assert.Equal(t, int32(1), authProv.invalidated.Load())
	assert.Less(t, elapsed, 200*time.Millisecond, "auth_stale retry must not consume a backoff delay")
}

type refreshingAuthProvider struct {
	invalidated atomic.Int32
}

func (p *refreshingAuthProvider) HeaderFor(context.Context) (string, string, error) {
	if p.invalidated.Load() == 0 {
		return "Authorization", "Bearer stale", nil
	}
	return "Authorization", "Bearer fresh", nil
}

func (p *refreshingAuthProvider) Invalidate() { p.invalidated.Add(1) }

// Scenario 5: exhausted retries surface as an upstream error envelope with
// the final status and the full attempt count (spec §8).
func TestExecute_Pricing_ExhaustedRetries(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	o := newTestOrchestrator(t, srv.URL, auth.NewAPIKeyProvider("k"))
	env := o.Execute(context.Background(), "pricing", map[string]any{}, "")

	require.False(t, env.OK)
	assert.Equal(t, "upstream", env.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, env.Status)
	assert.Equal(t, int32(3), attempts.Load())
}

// Scenario 6: multipart round-trip for image_to_image (spec §8).
func TestExecute_ImageToImage_MultipartRoundTrip(t *testing.T) {
	t.Parallel()

	var gotPrompt string
	var gotImage []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		require.Equal(t, "multipart/form-data", mediaType)

		mr := multipart.NewReader(r.Body, params["boundary"])
		form, err := mr.ReadForm(1 << 20)
		require.NoError(t, err)

		gotPrompt = form.Value["prompt"][0]
		file, err := form.File["image"][0].Open()
		require.NoError(t, err)
		defer file.Close()
		buf := make([]byte, 4)
		_, err = file.Read(buf)
		require.NoError(t, err)
		gotImage = buf

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"task_id":"22222222-2222-2222-2222-222222222222","status":"pending"}`))
	}))
	defer srv.Close()

	o := newTestOrchestrator(t, srv.URL, auth.NewAPIKeyProvider("k"))
	imageBytes := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	env := o.Execute(context.Background(), "image_to_image", map[string]any{
		"image":  base64.StdEncoding.EncodeToString(imageBytes),
		"prompt": "x",
	}, "")

	require.True(t, env.OK)
	assert.Equal(t, "x", gotPrompt)
	assert.Equal(t, imageBytes, gotImage)
}

func TestExecute_UnknownOperation(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, "http://example.invalid", auth.NewAPIKeyProvider("k"))
	env := o.Execute(context.Background(), "not_a_real_operation", map[string]any{}, "")

	require.False(t, env.OK)
	assert.Equal(t, "internal", env.Kind)
	assert.Contains(t, env.Message, "unknown_operation")
}

func TestExecute_TaskStatus_PathParamSubstitution(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/task-status/11111111-1111-1111-1111-111111111111", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"done"}`))
	}))
	defer srv.Close()

	o := newTestOrchestrator(t, srv.URL, auth.NewAPIKeyProvider("k"))
	env := o.Execute(context.Background(), "task_status",
		map[string]any{"task_id": "11111111-1111-1111-1111-111111111111"}, "")

	require.True(t, env.OK)
	assert.Equal(t, "done", env.Data["status"])
}
