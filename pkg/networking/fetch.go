// Copyright 2025 Stacklok, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package networking provides the HTTP transport primitives shared by the
// auth and upstream packages: a generic JSON fetch helper, a typed HTTP
// error, and URL classification utilities.
package networking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// Result carries a decoded JSON body together with the response headers, so
// callers that need rate-limit or pagination headers don't have to make a
// second request.
type Result[T any] struct {
	Data    T
	Headers http.Header
}

// ErrorHandler inspects a non-2xx response and its body, returning a custom
// error. Returning nil falls back to the default *HTTPError.
type ErrorHandler func(resp *http.Response, body []byte) error

type fetchOptions struct {
	method       string
	headers      map[string]string
	body         io.Reader
	errorHandler ErrorHandler
}

// Option configures a FetchJSON/FetchJSONWithForm call.
type Option func(*fetchOptions)

// WithMethod overrides the default GET method.
func WithMethod(method string) Option {
	return func(o *fetchOptions) { o.method = method }
}

// WithHeader sets a request header, overriding any default of the same name.
func WithHeader(key, value string) Option {
	return func(o *fetchOptions) {
		if o.headers == nil {
			o.headers = map[string]string{}
		}
		o.headers[key] = value
	}
}

// WithBody sets the request body.
func WithBody(body io.Reader) Option {
	return func(o *fetchOptions) { o.body = body }
}

// WithErrorHandler installs a custom handler for non-2xx responses.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *fetchOptions) { o.errorHandler = h }
}

// FetchJSON performs an HTTP request and decodes a JSON response body into T.
// By default it issues a GET with an "Accept: application/json" header.
func FetchJSON[T any](ctx context.Context, client *http.Client, rawURL string, opts ...Option) (*Result[T], error) {
	o := &fetchOptions{method: http.MethodGet, headers: map[string]string{"Accept": "application/json"}}
	for _, opt := range opts {
		opt(o)
	}

	req, err := http.NewRequestWithContext(ctx, o.method, rawURL, o.body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range o.headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if o.errorHandler != nil {
			if custom := o.errorHandler(resp, body); custom != nil {
				return nil, custom
			}
		}
		return nil, NewHTTPError(resp.StatusCode, rawURL, resp.Status)
	}

	if err := validateJSONContentType(resp.Header.Get("Content-Type")); err != nil {
		return nil, err
	}

	var data T
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	return &Result[T]{Data: data, Headers: resp.Header}, nil
}

// FetchJSONWithForm performs a POST with an application/x-www-form-urlencoded
// body and decodes a JSON response, as used by the OAuth2 token endpoint.
func FetchJSONWithForm[T any](
	ctx context.Context, client *http.Client, rawURL string, form url.Values, opts ...Option,
) (*Result[T], error) {
	allOpts := append([]Option{
		WithMethod(http.MethodPost),
		WithHeader("Content-Type", "application/x-www-form-urlencoded"),
		WithBody(bytes.NewReader([]byte(form.Encode()))),
	}, opts...)
	return FetchJSON[T](ctx, client, rawURL, allOpts...)
}

func validateJSONContentType(contentType string) error {
	if contentType == "" {
		return fmt.Errorf("unexpected content type %q: expected application/json", contentType)
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.EqualFold(mediaType, "application/json") {
		return fmt.Errorf("unexpected content type %q: expected application/json", contentType)
	}
	return nil
}
