// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package tools is the bridge's C7 tool surface: one thin adapter per
// operation, registered with the MCP transport, plus the synthetic
// server_health tool (spec §4.7). Grounded on
// cmd/thv/app/mcp_serve.go's raw mcp.Tool{InputSchema: mcp.ToolInputSchema{...}}
// registration style, which composes directly with pkg/schema.Catalog's
// JSON Schema documents instead of re-declaring each field with
// mcp.WithString/mcp.WithNumber builders.
package tools

import (
	"context"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/stacklok/toolhive-bridge/pkg/config"
	"github.com/stacklok/toolhive-bridge/pkg/orchestrator"
	"github.com/stacklok/toolhive-bridge/pkg/schema"
)

// toolDescriptions gives each operation the human-readable summary the MCP
// transport surfaces to clients browsing available tools; the JSON Schema
// document itself (pkg/schema.Catalog) still owns field-level validation.
var toolDescriptions = map[string]string{
	"text_to_image":      "Generate an image from a text prompt.",
	"image_to_image":     "Transform an existing image guided by a text prompt.",
	"inpainting":         "Fill a masked region of an image guided by a text prompt.",
	"replace_background": "Replace the background of an image.",
	"text_to_speech":     "Synthesize speech audio from text.",
	"chat":               "Run a chat completion and return the full reply.",
	"chat_stream":        "Run a chat completion against the streaming endpoint, aggregated into one reply.",
	"store_vector_db":    "Chunk and store a file's contents in the vector database.",
	"task_status":        "Look up the status of a previously submitted asynchronous task.",
	"pricing":            "Retrieve current upstream pricing information.",
}

// Server wraps an MCP server instance with the bridge's tool set.
type Server struct {
	mcpServer *server.MCPServer
	startedAt time.Time
	settings  config.Settings
}

// NewServer builds an MCP server with one adapter tool per
// orchestrator.Catalog entry plus the synthetic server_health tool.
func NewServer(o *orchestrator.Orchestrator, s config.Settings, version string) *Server {
	srv := &Server{
		mcpServer: server.NewMCPServer("toolhive-bridge", version,
			server.WithToolCapabilities(false),
			server.WithLogging(),
		),
		startedAt: time.Now(),
		settings:  s,
	}

	for name := range orchestrator.Catalog {
		srv.mcpServer.AddTool(mcp.Tool{
			Name:        name,
			Description: toolDescriptions[name],
			InputSchema: inputSchemaFor(name),
		}, newOperationHandler(o, name))
	}

	srv.mcpServer.AddTool(mcp.Tool{
		Name:        "server_health",
		Description: "Report bridge liveness without contacting the upstream service.",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]any{}},
	}, srv.handleServerHealth)

	return srv
}

// inputSchemaFor projects a pkg/schema.Catalog document into the
// mcp.ToolInputSchema shape the transport expects.
func inputSchemaFor(operation string) mcp.ToolInputSchema {
	doc := schema.Catalog[operation]
	props, _ := doc["properties"].(map[string]any)
	required, _ := doc["required"].([]string)
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

// ServeStdio runs the server over stdio, the transport the teacher's own
// CLI-invoked MCP servers use for direct subprocess integration.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// StreamableHTTPHandler exposes the server over the streamable-HTTP
// transport (same library feature cmd/thv/app/mcp_serve.go uses for its
// network-reachable mode), for deployments that front the bridge with a
// long-lived HTTP listener instead of a stdio subprocess.
func (s *Server) StreamableHTTPHandler(ctx context.Context) *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(s.mcpServer,
		server.WithEndpointPath("/mcp"),
		server.WithHTTPContextFunc(func(_ context.Context, _ *http.Request) context.Context {
			return ctx
		}),
	)
}
