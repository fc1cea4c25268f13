// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/stacklok/toolhive-bridge/pkg/errors"
	"github.com/stacklok/toolhive-bridge/pkg/upstream"
)

// isFileField reports whether name is one of spec's FileFields for op.
func isFileField(op OperationSpec, name string) bool {
	for _, f := range op.FileFields {
		if f == name {
			return true
		}
	}
	return false
}

// isPathParam reports whether name is substituted into op's path template.
func isPathParam(op OperationSpec, name string) bool {
	for _, p := range op.PathParams {
		if p == name {
			return true
		}
	}
	return false
}

// renderRequest builds an upstream.Request from validated arguments, per
// spec §4.6 step 4: "Render path (substituting {task_id} etc.), select
// method and body-kind."
func renderRequest(op OperationSpec, args map[string]any) (upstream.Request, error) {
	path := op.PathTemplate
	for _, param := range op.PathParams {
		raw, ok := args[param]
		if !ok {
			return upstream.Request{}, errors.NewInternalError(fmt.Sprintf("missing path parameter %q", param), nil)
		}
		value, ok := raw.(string)
		if !ok {
			return upstream.Request{}, errors.NewInternalError(fmt.Sprintf("path parameter %q must be a string", param), nil)
		}
		path = strings.ReplaceAll(path, "{"+param+"}", value)
	}

	req := upstream.Request{Method: op.Method, Path: path, BodyKind: op.BodyKind}

	switch op.BodyKind {
	case upstream.BodyKindJSON:
		body := make(map[string]any, len(args))
		for k, v := range args {
			if isPathParam(op, k) {
				continue
			}
			body[k] = v
		}
		req.JSONBody = body
	case upstream.BodyKindMultipart:
		fields := make(map[string]string)
		files := make(map[string]upstream.FilePart)
		for k, v := range args {
			if isPathParam(op, k) {
				continue
			}
			if isFileField(op, k) {
				content, err := decodeFileArgument(v)
				if err != nil {
					return upstream.Request{}, errors.NewValidationError(fmt.Sprintf("field %q: %s", k, err.Error()), err)
				}
				files[k] = upstream.FilePart{Filename: k, Content: content}
				continue
			}
			fields[k] = stringifyFormField(v)
		}
		req.FormFields = fields
		req.Files = files
	case upstream.BodyKindNone:
	}

	return req, nil
}

// decodeFileArgument accepts either a base64-encoded string or a raw byte
// slice (spec §4.3: "accepted either as base64-encoded strings... or as byte
// sequences"). The MCP transport decodes JSON arguments, so byte sequences
// typically arrive as []byte only when a caller supplies one directly
// (e.g. tests); the wire format is almost always base64 text.
func decodeFileArgument(v any) ([]byte, error) {
	switch value := v.(type) {
	case string:
		return upstream.DecodeBase64IfNeeded(value)
	case []byte:
		return value, nil
	default:
		return nil, fmt.Errorf("expected base64 string or byte sequence, got %T", v)
	}
}

// stringifyFormField renders a non-file multipart argument as a form value.
func stringifyFormField(v any) string {
	switch value := v.(type) {
	case string:
		return value
	default:
		return fmt.Sprintf("%v", value)
	}
}

// responseData converts a RawResult into the envelope's `data` map (spec
// §4.5 response parsing): JSON bodies pass through as-is; binary bodies are
// base64-encoded under `data` with a `content_type` sibling.
func responseData(result *upstream.RawResult) map[string]any {
	if result.JSON != nil {
		return result.JSON
	}
	contentType := result.Headers.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	}
	return map[string]any{
		"data":         base64.StdEncoding.EncodeToString(result.Raw),
		"content_type": contentType,
	}
}

// isUpstreamErrorEligible reports whether a final non-2xx status still
// warrants an upstream-kind envelope (spec §4.6 step 6) rather than having
// already been resolved as a transport-level failure.
func isUpstreamErrorEligible(status int) bool {
	return status >= http.StatusBadRequest
}
