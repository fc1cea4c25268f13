// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package schema holds the declarative per-operation input schemas (spec
// §4.5) and validates caller arguments against them using
// santhosh-tekuri/jsonschema/v6, the same library the teacher uses to
// compile composite-tool JSON Schemas in
// cmd/thv-operator/api/v1alpha1/virtualmcpcompositetooldefinition_webhook.go.
package schema

// document is a JSON Schema expressed as the plain map/slice/scalar values
// jsonschema.Compiler.AddResource accepts directly (no marshal/unmarshal
// round trip needed).
type document = map[string]any

func obj(properties document, required []string) document {
	d := document{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           properties,
	}
	if len(required) > 0 {
		d["required"] = required
	}
	return d
}

func str(minLen, maxLen int) document {
	d := document{"type": "string"}
	if minLen > 0 {
		d["minLength"] = minLen
	}
	if maxLen > 0 {
		d["maxLength"] = maxLen
	}
	return d
}

func num(min, max float64, hasMin, hasMax bool) document {
	d := document{"type": "number"}
	if hasMin {
		d["minimum"] = min
	}
	if hasMax {
		d["maximum"] = max
	}
	return d
}

func integer(min float64, hasMin bool) document {
	d := document{"type": "integer"}
	if hasMin {
		d["minimum"] = min
	}
	return d
}

func integerRange(min, max float64) document {
	return document{"type": "integer", "minimum": min, "maximum": max}
}

// Catalog is the static table of per-operation JSON Schema documents, the
// single source of truth for input validation (spec §3 OperationSpec,
// §4.5). Keyed by operation name.
var Catalog = map[string]document{
	"text_to_image": obj(document{
		"prompt":          str(1, 4000),
		"model":           str(0, 0),
		"width":           integerRange(64, 4096),
		"height":          integerRange(64, 4096),
		"steps":           integerRange(1, 150),
		"guidance_scale":  num(0, 50, true, true),
		"seed":            document{"type": "integer"},
		"negative_prompt": str(0, 0),
	}, []string{"prompt"}),

	"image_to_image": obj(document{
		"image":          str(1, 0),
		"prompt":         str(1, 0),
		"strength":       num(0, 1, true, true),
		"guidance_scale": num(0, 0, false, false),
		"steps":          integer(1, true),
		"seed":           document{"type": "integer"},
	}, []string{"image", "prompt"}),

	"inpainting": obj(document{
		"image":          str(1, 0),
		"mask":           str(1, 0),
		"prompt":         str(1, 0),
		"guidance_scale": num(0, 0, false, false),
		"steps":          integer(1, true),
		"seed":           document{"type": "integer"},
	}, []string{"image", "mask", "prompt"}),

	"replace_background": obj(document{
		"image":              str(1, 0),
		"background_prompt":  str(0, 0),
		"background_image":   str(0, 0),
		"mask_threshold":     num(0, 1, true, true),
	}, []string{"image"}),

	"text_to_speech": obj(document{
		"text":  str(1, 10000),
		"voice": str(0, 0),
		"language": str(0, 0),
		"speed": num(0.25, 4, true, true),
		"pitch": document{"type": "number"},
	}, []string{"text"}),

	"chat": obj(document{
		"messages": document{
			"type":     "array",
			"minItems": 1,
			"items": document{
				"type":                 "object",
				"additionalProperties": true,
				"required":             []string{"role", "content"},
				"properties": document{
					"role":    document{"type": "string"},
					"content": document{"type": "string"},
				},
			},
		},
		"model":       str(0, 0),
		"temperature": num(0, 2, true, true),
		"max_tokens":  integer(1, true),
	}, []string{"messages"}),

	// chat_stream shares chat's input shape: spec §1 lists "streaming chat"
	// as a distinct operation from "chat completion", and §9's Design Notes
	// describe it as the same request shape against a different upstream
	// endpoint (/streamchat) whose incrementally-emitted stream the bridge
	// aggregates into one reply (non-goal: no token forwarding to the caller).
	"chat_stream": obj(document{
		"messages": document{
			"type":     "array",
			"minItems": 1,
			"items": document{
				"type":                 "object",
				"additionalProperties": true,
				"required":             []string{"role", "content"},
				"properties": document{
					"role":    document{"type": "string"},
					"content": document{"type": "string"},
				},
			},
		},
		"model":       str(0, 0),
		"temperature": num(0, 2, true, true),
		"max_tokens":  integer(1, true),
	}, []string{"messages"}),

	"store_vector_db": obj(document{
		"file":            str(1, 0),
		"collection_name": str(1, 0),
		"metadata":        document{"type": "object"},
		"chunk_size":      integer(1, true),
		"overlap":         integer(0, true),
	}, []string{"file", "collection_name"}),

	"task_status": obj(document{
		"task_id": document{
			"type":    "string",
			"pattern": `^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`,
		},
	}, []string{"task_id"}),

	"pricing": obj(document{}, nil),
}
