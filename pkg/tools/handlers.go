// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/stacklok/toolhive-bridge/pkg/orchestrator"
)

// newOperationHandler returns the thin adapter spec §4.7 describes: accept
// the transport-decoded argument map, forward to the orchestrator with the
// operation identifier, return the envelope unchanged.
func newOperationHandler(o *orchestrator.Orchestrator, operation string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		env := o.Execute(ctx, operation, request.GetArguments(), "")
		return mcp.NewToolResultStructuredOnly(env), nil
	}
}

// handleServerHealth answers server_health without contacting upstream
// (spec §4.7): `{ ok: true, status: "healthy", auth_mode, env, uptime_s }`.
func (s *Server) handleServerHealth(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result := map[string]any{
		"ok":        true,
		"status":    "healthy",
		"auth_mode": string(s.settings.AuthModeOf()),
		"env":       string(s.settings.Env),
		"uptime_s":  int64(time.Since(s.startedAt).Seconds()),
	}
	return mcp.NewToolResultStructuredOnly(result), nil
}
