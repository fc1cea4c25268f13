// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package upstream implements the bridge's single outbound HTTP client: the
// send loop (C3), retry/backoff policy and client-side rate limiter (C4).
package upstream

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/stacklok/toolhive-bridge/pkg/auth"
	"github.com/stacklok/toolhive-bridge/pkg/config"
	"github.com/stacklok/toolhive-bridge/pkg/errors"
	"github.com/stacklok/toolhive-bridge/pkg/logger"
	"github.com/stacklok/toolhive-bridge/pkg/networking"
)

// connectTimeoutCap is the "separate connect timeout of min(5s, request
// timeout)" spec §4.3 requires; it bounds the per-attempt context on top of
// the overall invocation deadline.
const connectTimeoutCap = 5 * time.Second

// RateLimitInfo captures the upstream rate-limit headers spec §6 says are
// "honored". The bridge makes no scheduling decision from these beyond
// Retry-After; they are logged for operator visibility (SPEC_FULL §6).
type RateLimitInfo struct {
	Limit     string
	Remaining string
	Reset     string
}

// RawResult is the parsed outcome of one upstream call (spec §4.3 contract).
type RawResult struct {
	Status     int
	Headers    http.Header
	JSON       map[string]any
	Raw        []byte
	RateLimit  RateLimitInfo
	RetryAfter time.Duration
}

// Client is the single long-lived HTTP client for all upstream calls,
// shared across invocations (spec §5: "shared, internally thread/task-safe;
// no external locking").
type Client struct {
	http        *http.Client
	baseURL     string
	authProv    auth.Provider
	retryTuning config.RetryTuning
	limiter     *RateLimiter
	timeout     time.Duration
}

// New builds a Client from Settings, an auth provider, and a shared rate limiter.
func New(s config.Settings, authProv auth.Provider, limiter *RateLimiter) (*Client, error) {
	httpClient, err := networking.NewHttpClientBuilder().
		WithTimeout(s.RequestTimeout).
		WithTLSVerify(s.VerifyTLS).
		WithProxy(s.HTTPProxy, s.HTTPSProxy).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream HTTP client: %w", err)
	}
	return &Client{
		http:        httpClient,
		baseURL:     strings.TrimRight(s.BaseURL, "/"),
		authProv:    authProv,
		retryTuning: s.Retry,
		limiter:     limiter,
		timeout:     s.RequestTimeout,
	}, nil
}

// Send executes req under the retry/rate-limit policy (spec §4.3/§4.4),
// returning the final RawResult, the number of attempts made, and an error
// only when every attempt was exhausted without a classifiable HTTP
// response (transport_error), ctx was cancelled, the invocation's deadline
// was exceeded, or the client-side rate limiter wait timed out.
func (c *Client) Send(ctx context.Context, traceID string, req Request, deadline time.Time) (*RawResult, int, error) {
	schedule := newBackoffSchedule(c.retryTuning)
	maxAttempts := c.retryTuning.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var authStaleUsed bool
	var lastErr error
	var lastResult *RawResult

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return lastResult, attempt - 1, errors.NewTransportError("invocation cancelled", err)
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return lastResult, attempt - 1, errors.NewTransportError("invocation deadline exceeded", nil)
		}

		if err := c.limiter.Acquire(ctx, c.timeout); err != nil {
			return lastResult, attempt, err
		}

		result, oc, err := c.attempt(ctx, traceID, req)
		lastResult = result
		lastErr = err

		if err != nil {
			if attempt == maxAttempts {
				return result, attempt, errors.NewTransportError("upstream request failed", err)
			}
			logger.Debugw("upstream attempt failed, retrying", "trace_id", traceID, "attempt", attempt, "error", err.Error())
			c.sleep(ctx, schedule.next())
			continue
		}

		if oc == outcomeSuccess || !oc.retryable() {
			return result, attempt, nil
		}

		if attempt == maxAttempts {
			return result, attempt, nil
		}

		if oc == outcomeAuthStale {
			if authStaleUsed {
				// Only one auth_stale retry per invocation (spec §4.4); treat
				// a second 401 as a non-retryable upstream failure.
				return result, attempt, nil
			}
			authStaleUsed = true
			c.authProv.Invalidate()
			logger.Debugw("auth_stale: invalidated cached token, retrying without backoff delay", "trace_id", traceID, "attempt", attempt)
			continue
		}

		delay := schedule.next()
		if oc == outcomeRateLimited && result.RetryAfter > 0 {
			delay = clampRetryAfter(result.RetryAfter, c.retryTuning.MaxDelay)
		}
		logger.Debugw("retrying upstream request", "trace_id", traceID, "attempt", attempt, "delay_ms", delay.Milliseconds())
		c.sleep(ctx, delay)
	}

	return lastResult, maxAttempts, lastErr
}

func (c *Client) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// attempt performs exactly one HTTP round trip.
func (c *Client) attempt(ctx context.Context, traceID string, req Request) (*RawResult, outcome, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, connectTimeout(c.timeout))
	defer cancel()

	httpReq, err := c.buildRequest(attemptCtx, req)
	if err != nil {
		return nil, outcomeTransportError, err
	}

	name, value, err := c.authProv.HeaderFor(ctx)
	if err != nil {
		return nil, outcomeTransportError, fmt.Errorf("failed to acquire auth header: %w", err)
	}
	if name != "" {
		httpReq.Header.Set(name, value)
	}
	httpReq.Header.Set("X-Request-Id", traceID)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, outcomeTransportError, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, outcomeTransportError, fmt.Errorf("failed to read response body: %w", err)
	}

	result := &RawResult{
		Status:  resp.StatusCode,
		Headers: resp.Header,
		Raw:     body,
		RateLimit: RateLimitInfo{
			Limit:     resp.Header.Get("X-RateLimit-Limit"),
			Remaining: resp.Header.Get("X-RateLimit-Remaining"),
			Reset:     resp.Header.Get("X-RateLimit-Reset"),
		},
	}
	if d, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
		result.RetryAfter = d
	}
	logger.Debugw("upstream response", "trace_id", traceID, "status", resp.StatusCode,
		"rate_limit_remaining", result.RateLimit.Remaining)

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mediaType, _, err := mime.ParseMediaType(ct); err == nil && mediaType == "application/json" {
			var decoded map[string]any
			if err := json.Unmarshal(body, &decoded); err == nil {
				result.JSON = decoded
			}
		}
	}

	return result, classify(resp.StatusCode), nil
}

func connectTimeout(requestTimeout time.Duration) time.Duration {
	if requestTimeout <= 0 || requestTimeout > connectTimeoutCap {
		return connectTimeoutCap
	}
	return requestTimeout
}

func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	url := c.baseURL + req.Path

	var body io.Reader
	contentType := ""

	switch req.BodyKind {
	case BodyKindJSON:
		encoded, err := req.encodeJSON()
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(encoded)
		contentType = "application/json"
	case BodyKindMultipart:
		buf, ct, err := req.encodeMultipart()
		if err != nil {
			return nil, err
		}
		body = buf
		contentType = ct
	case BodyKindNone:
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	return httpReq, nil
}

// DecodeBase64IfNeeded decodes s as standard base64 and returns an error
// when s is not valid base64; string file arguments are always treated as
// base64 (raw byte sequences are handled by the caller without calling this).
func DecodeBase64IfNeeded(s string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 file content: %w", err)
	}
	return decoded, nil
}
