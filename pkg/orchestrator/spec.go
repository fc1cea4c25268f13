// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package orchestrator implements the bridge's per-invocation pipeline
// (spec §4.6 C6): resolve an OperationSpec, validate arguments, dispatch to
// the upstream HTTP transport under the retry/rate-limit policy, and
// normalize the outcome into a ResponseEnvelope. New operations are data,
// not code (spec.md §9 "per-operation dispatch without inheritance") — this
// file is the static catalog every Execute call consults.
package orchestrator

import "github.com/stacklok/toolhive-bridge/pkg/upstream"

// ResponseKind classifies the shape of a successful upstream response
// (spec §3 OperationSpec.response_kind).
type ResponseKind string

// ResponseKind values.
const (
	ResponseKindSyncResult ResponseKind = "sync-result"
	ResponseKindAsyncTask  ResponseKind = "async-task"
	ResponseKindArbitrary  ResponseKind = "arbitrary-json"
)

// OperationSpec is one row of the static dispatch table: name, upstream
// path template, HTTP method, body encoding, and response kind (spec §3).
// FileFields and PathParams are the SPEC_FULL.md-added fields needed to
// actually render a Request from a decoded argument map.
type OperationSpec struct {
	Name         string
	PathTemplate string
	Method       string
	BodyKind     upstream.BodyKind
	ResponseKind ResponseKind

	// FileFields names the top-level arguments that carry file content
	// (bytes or base64), encoded as multipart file parts rather than form
	// fields or JSON properties.
	FileFields []string

	// PathParams names the top-level arguments substituted into
	// PathTemplate (e.g. "task_id" for "/task-status/{task_id}") and
	// therefore excluded from the request body entirely.
	PathParams []string
}

// Catalog is the single source of truth for operation → (endpoint, method,
// body shape) dispatch (spec §3, §4.6 step 4).
var Catalog = map[string]OperationSpec{
	"text_to_image": {
		Name: "text_to_image", PathTemplate: "/text-to-image", Method: "POST",
		BodyKind: upstream.BodyKindJSON, ResponseKind: ResponseKindAsyncTask,
	},
	"image_to_image": {
		Name: "image_to_image", PathTemplate: "/image-to-image", Method: "POST",
		BodyKind: upstream.BodyKindMultipart, ResponseKind: ResponseKindAsyncTask,
		FileFields: []string{"image"},
	},
	"inpainting": {
		Name: "inpainting", PathTemplate: "/inpainting", Method: "POST",
		BodyKind: upstream.BodyKindMultipart, ResponseKind: ResponseKindAsyncTask,
		FileFields: []string{"image", "mask"},
	},
	"replace_background": {
		Name: "replace_background", PathTemplate: "/replace-background", Method: "POST",
		BodyKind: upstream.BodyKindMultipart, ResponseKind: ResponseKindAsyncTask,
		FileFields: []string{"image", "background_image"},
	},
	"text_to_speech": {
		Name: "text_to_speech", PathTemplate: "/text-to-speech", Method: "POST",
		BodyKind: upstream.BodyKindJSON, ResponseKind: ResponseKindAsyncTask,
	},
	"chat": {
		Name: "chat", PathTemplate: "/chat", Method: "POST",
		BodyKind: upstream.BodyKindJSON, ResponseKind: ResponseKindSyncResult,
	},
	// chat_stream targets the upstream's incrementally-emitting /streamchat
	// endpoint; the bridge reads it to completion and returns one aggregated
	// reply (spec §1 Non-goals, §9 "Streaming chat").
	"chat_stream": {
		Name: "chat_stream", PathTemplate: "/streamchat", Method: "POST",
		BodyKind: upstream.BodyKindJSON, ResponseKind: ResponseKindSyncResult,
	},
	"store_vector_db": {
		Name: "store_vector_db", PathTemplate: "/store-file-in-vector-database", Method: "POST",
		BodyKind: upstream.BodyKindMultipart, ResponseKind: ResponseKindSyncResult,
		FileFields: []string{"file"},
	},
	"task_status": {
		Name: "task_status", PathTemplate: "/task-status/{task_id}", Method: "GET",
		BodyKind: upstream.BodyKindNone, ResponseKind: ResponseKindSyncResult,
		PathParams: []string{"task_id"},
	},
	"pricing": {
		Name: "pricing", PathTemplate: "/pricing", Method: "GET",
		BodyKind: upstream.BodyKindNone, ResponseKind: ResponseKindSyncResult,
	},
}
