// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import "github.com/stacklok/toolhive-bridge/pkg/schema"

// Envelope is the uniform success/failure record every Execute call returns
// (spec §3 ResponseEnvelope). Exactly one of the success fields or one of
// the failure-kind field groups is populated, matching spec §8's invariant
// "ok xor (data xor one of issues/message)".
type Envelope struct {
	OK        bool           `json:"ok"`
	Operation string         `json:"operation,omitempty"`
	TraceID   string         `json:"trace_id"`
	Kind      string         `json:"kind,omitempty"`

	// Success fields. Status is also set on upstream failures.
	Data      map[string]any `json:"data,omitempty"`
	Status    int            `json:"status,omitempty"`
	LatencyMs int64          `json:"latency_ms,omitempty"`

	// Validation failure fields.
	Issues []schema.Issue `json:"issues,omitempty"`

	// Upstream/transport/internal failure fields.
	Code         string `json:"code,omitempty"`
	Message      string `json:"message,omitempty"`
	Details      any    `json:"details,omitempty"`
	RetryAfterMs int64  `json:"retry_after_ms,omitempty"`
	Cause        string `json:"cause,omitempty"`
	Attempts     int    `json:"attempts,omitempty"`
}

// successEnvelope builds the `{ ok: true, ... }` shape (spec §3).
func successEnvelope(operation, traceID string, data map[string]any, status int, latencyMs int64) Envelope {
	return Envelope{
		OK: true, Operation: operation, TraceID: traceID,
		Data: data, Status: status, LatencyMs: latencyMs,
	}
}

// validationEnvelope builds the `{ ok: false, kind: "validation", ... }` shape.
func validationEnvelope(traceID string, issues []schema.Issue) Envelope {
	return Envelope{OK: false, Kind: "validation", TraceID: traceID, Issues: issues}
}

// upstreamEnvelope builds the `{ ok: false, kind: "upstream", ... }` shape.
func upstreamEnvelope(traceID string, status int, code, message string, details any, retryAfterMs int64) Envelope {
	return Envelope{
		OK: false, Kind: "upstream", TraceID: traceID,
		Status: status, Code: code, Message: message, Details: details, RetryAfterMs: retryAfterMs,
	}
}

// transportEnvelope builds the `{ ok: false, kind: "transport", ... }` shape.
func transportEnvelope(traceID, message, cause string, attempts int) Envelope {
	return Envelope{OK: false, Kind: "transport", TraceID: traceID, Message: message, Cause: cause, Attempts: attempts}
}

// internalEnvelope builds the `{ ok: false, kind: "internal", ... }` shape.
// message must already be scrubbed of secrets/stack traces (spec §4.6).
func internalEnvelope(traceID, message string) Envelope {
	return Envelope{OK: false, Kind: "internal", TraceID: traceID, Message: message}
}
