// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package auth provides the authentication providers the upstream client
// uses to produce an Authorization header for each outbound request.
package auth

import "context"

// Provider produces an Authorization header value for outbound requests to
// the upstream service.
type Provider interface {
	// HeaderFor returns the header name ("Authorization") and value to send,
	// refreshing any cached credential if necessary.
	HeaderFor(ctx context.Context) (name string, value string, err error)

	// Invalidate marks any cached credential unusable, forcing the next
	// HeaderFor call to refresh. Safe to call from multiple goroutines.
	Invalidate()
}
