// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package upstream

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/stacklok/toolhive-bridge/pkg/config"
)

var errNegativeSeconds = errors.New("retry-after: negative seconds")

// outcome classifies a completed attempt per spec §4.3's response
// classification table.
type outcome int

// Outcome values.
const (
	outcomeSuccess outcome = iota
	outcomeAuthStale
	outcomeRateLimited
	outcomeTransient
	outcomeClientError
	outcomeServerError
	outcomeTransportError
)

func (o outcome) retryable() bool {
	switch o {
	case outcomeAuthStale, outcomeRateLimited, outcomeTransient, outcomeTransportError:
		return true
	default:
		return false
	}
}

// classify maps an HTTP status code to an outcome (spec §4.3). Network
// failures are classified directly as outcomeTransportError by the caller,
// never reaching this function.
func classify(status int) outcome {
	switch status {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
		return outcomeSuccess
	case http.StatusUnauthorized:
		return outcomeAuthStale
	case http.StatusTooManyRequests:
		return outcomeRateLimited
	case http.StatusRequestTimeout, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return outcomeTransient
	default:
		if status >= 200 && status < 300 {
			return outcomeSuccess
		}
		if status >= 400 && status < 500 {
			return outcomeClientError
		}
		if status >= 500 {
			return outcomeServerError
		}
		return outcomeClientError
	}
}

// backoffSchedule computes retry delays per spec §4.4: exponential backoff
// with base/max delay and a uniform jitter factor. Building this on
// cenkalti/backoff/v5's ExponentialBackOff is a deliberate fit, not a
// coincidence: with Multiplier=2, its NextBackOff() sequence is exactly
// spec's `min(max_delay, base_delay*2^(attempt-1))`, and its
// RandomizationFactor already implements "uniform factor in [1-jitter, 1+jitter]".
// One schedule is created per invocation (pkg/orchestrator.RequestContext's
// lifetime) and never reused across invocations.
type backoffSchedule struct {
	b *backoff.ExponentialBackOff
}

// newBackoffSchedule builds a fresh schedule from the retry tuning in Settings.
func newBackoffSchedule(t config.RetryTuning) *backoffSchedule {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.BaseDelay
	b.MaxInterval = t.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = t.JitterFraction
	return &backoffSchedule{b: b}
}

// next returns the delay to wait before the next backoff-consuming attempt.
// auth_stale retries must not call this: spec §4.4 says they retry "without
// consuming a backoff delay".
func (s *backoffSchedule) next() time.Duration {
	d, err := s.b.NextBackOff()
	if err != nil {
		return s.b.MaxInterval
	}
	return d
}

// clampRetryAfter bounds a server-directed Retry-After delay to max_delay,
// per spec §8 boundary behavior ("Retry-After larger than max_delay is clamped").
func clampRetryAfter(d, maxDelay time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if maxDelay > 0 && d > maxDelay {
		return maxDelay
	}
	return d
}

// parseRetryAfter parses a Retry-After header value as either integer
// seconds or an RFC 7231 HTTP-date, falling back to zero (caller then uses
// the exponential schedule instead) on parse failure. Resolves spec's Open
// Question #1.
func parseRetryAfter(value string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	if secs, err := parseNonNegativeSeconds(value); err == nil {
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(value); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

func parseNonNegativeSeconds(value string) (int64, error) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errNegativeSeconds
	}
	return n, nil
}
