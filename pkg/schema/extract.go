// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// UpstreamErrorFields is the best-effort extraction target from an upstream
// error body (spec §4.6 step 6, §7: "carries the fields code and message
// extracted from it").
type UpstreamErrorFields struct {
	Code    string
	Message string
	Details any
}

// candidateCodeKeys/candidateMessageKeys cover the field names upstream
// error bodies commonly use; the first present key wins.
var (
	candidateCodeKeys    = []string{"code", "error_code", "error.code"}
	candidateMessageKeys = []string{"message", "error_message", "error.message", "error", "detail"}
	candidateDetailsKeys = []string{"details", "error.details"}
)

// ExtractUpstreamErrorFields pulls code/message/details out of an arbitrary
// JSON error body using gjson, tolerating whatever shape the upstream
// actually returns instead of requiring a fixed schema.
func ExtractUpstreamErrorFields(body []byte) UpstreamErrorFields {
	var fields UpstreamErrorFields

	for _, key := range candidateCodeKeys {
		if r := gjson.GetBytes(body, key); r.Exists() {
			fields.Code = r.String()
			break
		}
	}
	for _, key := range candidateMessageKeys {
		if r := gjson.GetBytes(body, key); r.Exists() && r.Type == gjson.String {
			fields.Message = r.String()
			break
		}
	}
	for _, key := range candidateDetailsKeys {
		if r := gjson.GetBytes(body, key); r.Exists() {
			fields.Details = r.Value()
			break
		}
	}

	return fields
}

// redactedFields are argument paths that must never reach a log line in
// plain form (spec §7: "request bodies for store_vector_db are never
// included in error messages or logs; only their presence/absence is
// indicated").
var redactedFields = []string{"file", "image", "mask", "background_image"}

// RedactForLogging returns a copy of a JSON-encoded argument body with
// binary/file-bearing fields replaced by a presence marker, safe to attach
// to a log line. Unlike ExtractUpstreamErrorFields (read-only gjson
// lookups), this needs to rewrite the document, which is sjson's job.
func RedactForLogging(body []byte) []byte {
	out := body
	for _, field := range redactedFields {
		if !gjson.GetBytes(out, field).Exists() {
			continue
		}
		redacted, err := sjson.SetBytes(out, field, "[present, redacted]")
		if err != nil {
			continue
		}
		out = redacted
	}
	return out
}
