// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/stacklok/toolhive-bridge/pkg/config"
	bridgeerrors "github.com/stacklok/toolhive-bridge/pkg/errors"
	"github.com/stacklok/toolhive-bridge/pkg/logger"
	"github.com/stacklok/toolhive-bridge/pkg/networking"
	"github.com/stacklok/toolhive-bridge/pkg/schema"
	"github.com/stacklok/toolhive-bridge/pkg/upstream"
)

// Orchestrator implements the execute(operation, arguments, trace_id?) →
// ResponseEnvelope contract of spec §4.6. It owns no mutable state of its
// own beyond what it's constructed with (spec §9 "No global mutable state"):
// the validator, the upstream client, and the retry/timeout tuning it reads
// from Settings.
type Orchestrator struct {
	validator      *schema.Validator
	client         *upstream.Client
	requestTimeout time.Duration
	maxAttempts    int
}

// New builds an Orchestrator from a compiled schema Validator, an upstream
// Client, and Settings (for the deadline computation spec §5 requires).
func New(validator *schema.Validator, client *upstream.Client, s config.Settings) *Orchestrator {
	return &Orchestrator{
		validator:      validator,
		client:         client,
		requestTimeout: s.RequestTimeout,
		maxAttempts:    s.Retry.MaxAttempts,
	}
}

// Execute runs the full validate → call → normalize pipeline (spec §4.6).
// It never returns a Go error: every failure mode becomes an `ok: false`
// Envelope, per spec §4.6's "Failure semantics: Never throws to the caller".
func (o *Orchestrator) Execute(ctx context.Context, operation string, args map[string]any, traceID string) Envelope {
	rc := newRequestContext(operation, traceID, o.requestTimeout, o.maxAttempts)
	outcome := "internal"
	defer func() {
		logger.Infow("orchestrator invocation completed",
			"trace_id", rc.TraceID, "operation", rc.Operation,
			"attempts", rc.Attempt, "latency_ms", time.Since(rc.StartedAt).Milliseconds(),
			"outcome", outcome)
	}()

	// NEW -> VALIDATING: resolve the OperationSpec (spec §4.6 step 2).
	spec, ok := Catalog[operation]
	if !ok {
		outcome = "internal"
		return internalEnvelope(rc.TraceID, fmt.Sprintf("unknown_operation: %q", operation))
	}

	issues, err := o.validator.Validate(operation, args)
	if err != nil {
		outcome = "internal"
		return internalEnvelope(rc.TraceID, "schema validation failed unexpectedly")
	}
	if len(issues) > 0 {
		outcome = "validation"
		return validationEnvelope(rc.TraceID, issues)
	}

	// ACQUIRING_AUTH / SENDING / AWAITING / RETRYING are all internal to
	// upstream.Client.Send (spec §4.3/§4.4); the orchestrator only renders
	// the request and interprets the final outcome.
	req, err := renderRequest(spec, args)
	if err != nil {
		if bridgeerrors.IsValidation(err) {
			outcome = "validation"
			return validationEnvelope(rc.TraceID, []schema.Issue{{Message: err.Error(), Code: "invalid_file_encoding"}})
		}
		outcome = "internal"
		return internalEnvelope(rc.TraceID, "failed to render upstream request")
	}

	result, attempts, sendErr := o.client.Send(ctx, rc.TraceID, req, rc.Deadline)
	rc.Attempt = attempts
	latencyMs := time.Since(rc.StartedAt).Milliseconds()

	if sendErr != nil {
		if isAuth, status := findAuthFailure(sendErr); isAuth {
			outcome = "upstream"
			return upstreamEnvelope(rc.TraceID, status, "", "authentication with upstream failed", nil, 0)
		}
		outcome = "transport"
		return transportEnvelope(rc.TraceID, "upstream request failed", sendErr.Error(), attempts)
	}

	if result == nil {
		outcome = "internal"
		return internalEnvelope(rc.TraceID, "upstream client returned no result and no error")
	}

	if result.Status >= 200 && result.Status < 300 {
		outcome = "success"
		return successEnvelope(spec.Name, rc.TraceID, responseData(result), result.Status, latencyMs)
	}

	// DONE: the final attempt produced a non-retryable or retry-exhausted
	// upstream failure (spec §4.6 step 6).
	if isUpstreamErrorEligible(result.Status) {
		fields := schema.ExtractUpstreamErrorFields(result.Raw)
		retryAfterMs := int64(0)
		if result.RetryAfter > 0 {
			retryAfterMs = result.RetryAfter.Milliseconds()
		}
		outcome = "upstream"
		return upstreamEnvelope(rc.TraceID, result.Status, fields.Code, fields.Message, fields.Details, retryAfterMs)
	}

	outcome = "internal"
	return internalEnvelope(rc.TraceID, fmt.Sprintf("unexpected upstream status %d", result.Status))
}

// findAuthFailure walks sendErr's cause chain looking for the upstream-typed
// *bridgeerrors.Error the OAuth provider's refresh path produces, resolving
// spec §7's "auth refresh failures surface as upstream with status 0 when
// the token endpoint is unreachable, or the endpoint's status otherwise."
// A plain errors.As can't express this: the outermost error is itself a
// *bridgeerrors.Error (kind transport, from the Client's attempt-exhausted
// wrapping), so the walk must inspect each node's Type field explicitly
// rather than stopping at the first type match.
func findAuthFailure(err error) (bool, int) {
	for e := err; e != nil; e = stderrors.Unwrap(e) {
		be, ok := e.(*bridgeerrors.Error)
		if ok && be.Type == bridgeerrors.ErrUpstream {
			return true, httpStatusOf(be)
		}
	}
	return false, 0
}

// httpStatusOf extracts a wrapped *networking.HTTPError's status code, or 0
// when the failure never reached the token endpoint (connection refused,
// DNS failure, timeout).
func httpStatusOf(err error) int {
	for e := err; e != nil; e = stderrors.Unwrap(e) {
		if he, ok := e.(*networking.HTTPError); ok {
			return he.StatusCode
		}
	}
	return 0
}
