// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package upstream

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/stacklok/toolhive-bridge/pkg/config"
	"github.com/stacklok/toolhive-bridge/pkg/errors"
)

// RateLimiter is the client-side token bucket described by spec §4.4:
// capacity max_requests_per_window, refilled linearly over window_seconds.
// One instance is shared across every invocation for the process lifetime
// (spec §5: "shared token bucket; acquire/refill protected by a mutex or
// implemented lock-free"); golang.org/x/time/rate.Limiter already guards
// its state with an internal mutex, so no extra locking is added here.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter builds a RateLimiter from Settings' rate-limit tuning. A
// non-positive MaxRequestsPerWindow disables limiting entirely (rate.Inf).
func NewRateLimiter(t config.RateLimitTuning) *RateLimiter {
	if t.MaxRequestsPerWindow <= 0 || t.WindowSeconds <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	refillPerSecond := float64(t.MaxRequestsPerWindow) / float64(t.WindowSeconds)
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(refillPerSecond), t.MaxRequestsPerWindow)}
}

// Acquire waits for one token, up to timeout. Exceeding timeout is reported
// as a transport_error with reason rate_limit_local (spec §4.4).
func (r *RateLimiter) Acquire(ctx context.Context, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := r.limiter.Wait(waitCtx); err != nil {
		return errors.NewTransportError("rate_limit_local: client-side rate limit wait exceeded timeout", err)
	}
	return nil
}
