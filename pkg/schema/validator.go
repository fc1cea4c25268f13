// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Issue is one validation failure, matching ResponseEnvelope's validation
// error shape (spec §3: `{ path, message, code }`).
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Validator compiles every Catalog entry once at construction (so a
// malformed schema fails fast at startup, not on the first call) and
// validates operation arguments against them.
type Validator struct {
	compiled map[string]*jsonschema.Schema
}

// NewValidator compiles Catalog, grounded on the teacher's
// jsonschema.NewCompiler/AddResource/Compile sequence in
// cmd/thv-operator/api/v1alpha1/virtualmcpcompositetooldefinition_webhook.go.
func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiled := make(map[string]*jsonschema.Schema, len(Catalog))

	for name, doc := range Catalog {
		resourceID := "schema:///" + name
		if err := compiler.AddResource(resourceID, doc); err != nil {
			return nil, fmt.Errorf("failed to add schema resource for operation %q: %w", name, err)
		}
		sch, err := compiler.Compile(resourceID)
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema for operation %q: %w", name, err)
		}
		compiled[name] = sch
	}

	return &Validator{compiled: compiled}, nil
}

// Validate checks args against operation's compiled schema, then applies any
// cross-field invariants the declarative schema can't express (spec §4.5).
// Returns a nil/empty slice when args are valid.
func (v *Validator) Validate(operation string, args map[string]any) ([]Issue, error) {
	sch, ok := v.compiled[operation]
	if !ok {
		return nil, fmt.Errorf("no schema registered for operation %q", operation)
	}

	if err := sch.Validate(toInstance(args)); err != nil {
		verr, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return []Issue{{Path: "", Message: err.Error(), Code: "invalid"}}, nil
		}
		return collectIssues(verr, nil), nil
	}

	if issue := crossFieldIssue(operation, args); issue != nil {
		return []Issue{*issue}, nil
	}

	return nil, nil
}

// toInstance copies a decoded argument map into a fresh map[string]any for
// jsonschema.Schema.Validate. Values are passed through unchanged; numbers
// are not converted.
func toInstance(args map[string]any) any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}
	return out
}

// crossFieldIssue implements the one validation rule the declarative schema
// table can't express on its own: store_vector_db's `overlap < chunk_size`
// (spec §4.5, boundary behavior §8: "overlap equal to chunk_size rejected;
// one less accepted").
func crossFieldIssue(operation string, args map[string]any) *Issue {
	if operation != "store_vector_db" {
		return nil
	}
	overlap, hasOverlap := asInt(args["overlap"])
	chunkSize, hasChunkSize := asInt(args["chunk_size"])
	if !hasOverlap || !hasChunkSize {
		return nil
	}
	if overlap >= chunkSize {
		return &Issue{Path: "overlap", Message: "overlap must be less than chunk_size", Code: "invalid_range"}
	}
	return nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// collectIssues walks a ValidationError tree the same way the teacher's
// collectJSONSchemaErrors does (recurse into Causes, format leaves via
// BasicOutput), but builds Issue values instead of strings.
func collectIssues(err *jsonschema.ValidationError, issues []Issue) []Issue {
	if err == nil {
		return issues
	}
	if len(err.Causes) > 0 {
		for _, cause := range err.Causes {
			issues = collectIssues(cause, issues)
		}
		return issues
	}

	output := err.BasicOutput()
	path := ""
	message := err.Error()
	if output != nil {
		path = strings.TrimPrefix(output.InstanceLocation, "/")
		path = strings.ReplaceAll(path, "/", ".")
		if output.Error != nil {
			message = output.Error.String()
		}
	}

	return append(issues, Issue{
		Path:    path,
		Message: message,
		Code:    codeForKind(err),
	})
}

// codeForKind derives a stable machine-readable code from the ValidationError
// leaf's underlying keyword, using the keyword type's own name via %T rather
// than any unexported field: every jsonschema ErrorKind value's Go type name
// corresponds 1:1 to the JSON Schema keyword that failed.
func codeForKind(err *jsonschema.ValidationError) string {
	typeName := fmt.Sprintf("%T", err.ErrorKind)
	typeName = typeName[strings.LastIndex(typeName, ".")+1:]

	switch typeName {
	case "Required", "MissingProperty":
		return "required"
	case "MinLength":
		return "min_length"
	case "MaxLength":
		return "max_length"
	case "MinItems":
		return "min_length"
	case "MaxItems":
		return "max_length"
	case "Minimum", "ExclusiveMinimum":
		return "min_value"
	case "Maximum", "ExclusiveMaximum":
		return "max_value"
	case "AdditionalProperties":
		return "unknown_field"
	case "Enum":
		return "invalid_enum"
	case "Pattern", "Format":
		return "invalid_format"
	case "InvalidType", "Type":
		return "invalid_type"
	default:
		return "invalid_" + strings.ToLower(typeName)
	}
}
