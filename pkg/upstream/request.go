// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
)

// BodyKind selects how Request's fields are encoded on the wire (spec §3
// OperationSpec.body_encoding, §4.3).
type BodyKind string

// BodyKind values.
const (
	BodyKindJSON      BodyKind = "json"
	BodyKindMultipart BodyKind = "multipart"
	BodyKindNone      BodyKind = "none"
)

// FilePart is a binary file argument, already decoded from base64 if the
// caller supplied one (spec §4.3: "accepted either as base64-encoded
// strings... or as byte sequences").
type FilePart struct {
	Filename string
	Content  []byte
}

// Request describes one upstream call, fully rendered by the orchestrator
// (path template substituted, arguments split into text fields vs files).
type Request struct {
	Method     string
	Path       string
	BodyKind   BodyKind
	JSONBody   map[string]any
	FormFields map[string]string
	Files      map[string]FilePart
}

// encodeJSON marshals JSONBody.
func (r Request) encodeJSON() ([]byte, error) {
	b, err := json.Marshal(r.JSONBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON body: %w", err)
	}
	return b, nil
}

// encodeMultipart streams text fields then file fields into a multipart
// body, per spec §4.3: "each field marked as a file is streamed as a
// multipart part with filename inferred from the field, text fields are
// included as form fields."
func (r Request) encodeMultipart() (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	for name, value := range r.FormFields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %q: %w", name, err)
		}
	}
	for name, file := range r.Files {
		filename := file.Filename
		if filename == "" {
			filename = name
		}
		part, err := w.CreateFormFile(name, filename)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create file part %q: %w", name, err)
		}
		if _, err := part.Write(file.Content); err != nil {
			return nil, "", fmt.Errorf("failed to write file part %q: %w", name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}
