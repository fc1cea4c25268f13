// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"time"

	"github.com/google/uuid"
)

// RequestContext is the per-invocation bookkeeping the orchestrator carries
// through its state machine (spec §3 RequestContext, §9 "Retry state: keep
// retry bookkeeping inside the orchestrator's RequestContext, not in a
// thread-local or module-level store"). It lives for exactly one Execute
// call and is never shared across invocations.
type RequestContext struct {
	TraceID   string
	Operation string
	Attempt   int
	StartedAt time.Time
	Deadline  time.Time
}

// newRequestContext builds a RequestContext for one invocation, generating a
// trace id when the caller didn't supply one (spec §4.6 step 1). The
// deadline is the "soft upper bound" spec §5 Concurrency defines:
// now + request_timeout*max_attempts.
func newRequestContext(operation, traceID string, requestTimeout time.Duration, maxAttempts int) *RequestContext {
	if traceID == "" {
		traceID = uuid.NewString()
	}
	now := time.Now()
	deadline := time.Time{}
	if requestTimeout > 0 && maxAttempts > 0 {
		deadline = now.Add(requestTimeout * time.Duration(maxAttempts))
	}
	return &RequestContext{
		TraceID:   traceID,
		Operation: operation,
		StartedAt: now,
		Deadline:  deadline,
	}
}
