// Package mcpsrv exposes the clinic tool set over MCP streamable HTTP so
// external agent hosts can call the same tools the assistant uses.
package mcpsrv

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/feldsher/feldsher/internal/toolreg"
)

// Build creates an MCP server carrying the tools visible to role.
func Build(reg *toolreg.Registry, role toolreg.Role, version string) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "feldsher",
		Version: version,
	}, nil)

	for _, def := range reg.VisibleTools(role) {
		srv.AddTool(&mcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: inputSchema(def),
		}, callHandler(def))
	}
	return srv
}

// Handler wraps the server as a stateless streamable HTTP handler.
func Handler(srv *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return srv
	}, &mcp.StreamableHTTPOptions{Stateless: true})
}

func callHandler(def *toolreg.Definition) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := map[string]any{}
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return nil, fmt.Errorf("decode arguments: %w", err)
			}
		}
		payload, err := def.Handler(ctx, args)
		if err != nil {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
			}, nil
		}
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode result: %w", err)
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(body)}},
		}, nil
	}
}

func inputSchema(def *toolreg.Definition) *jsonschema.Schema {
	props := make(map[string]*jsonschema.Schema, len(def.Params))
	var required []string
	for _, p := range def.Params {
		s := &jsonschema.Schema{Type: p.Type, Description: p.Description}
		for _, e := range p.Enum {
			s.Enum = append(s.Enum, e)
		}
		props[p.Name] = s
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}
