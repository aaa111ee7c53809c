// Package mcpserver exposes the tool catalog over the Model Context
// Protocol on stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/shehryarbajwa/agent-browser/internal/tools"
	"github.com/shehryarbajwa/agent-browser/pkg/models"
)

// Caller runs a named tool
type Caller interface {
	Call(ctx context.Context, name string, args map[string]interface{}) (models.Result, error)
}

type Server struct {
	mcp    *server.MCPServer
	caller Caller
	log    zerolog.Logger
}

// New registers every tool definition against caller
func New(caller Caller, version string, log zerolog.Logger) *Server {
	s := &Server{
		mcp:    server.NewMCPServer("agent-browser", version, server.WithToolCapabilities(false)),
		caller: caller,
		log:    log.With().Str("component", "mcp").Logger(),
	}

	for _, def := range tools.Definitions() {
		s.mcp.AddTool(buildTool(def), s.handler(def.Name))
	}
	s.log.Debug().Int("tools", len(tools.Definitions())).Msg("Registered tools")
	return s
}

func buildTool(def tools.Definition) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(def.Description)}
	for _, p := range def.Params {
		props := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			props = append(props, mcp.Required())
		}
		if len(p.Enum) > 0 {
			props = append(props, mcp.Enum(p.Enum...))
		}

		switch p.Type {
		case "number":
			if d, ok := p.Default.(int); ok {
				props = append(props, mcp.DefaultNumber(float64(d)))
			}
			opts = append(opts, mcp.WithNumber(p.Name, props...))
		case "boolean":
			if d, ok := p.Default.(bool); ok {
				props = append(props, mcp.DefaultBool(d))
			}
			opts = append(opts, mcp.WithBoolean(p.Name, props...))
		case "object":
			opts = append(opts, mcp.WithObject(p.Name, props...))
		default:
			if d, ok := p.Default.(string); ok {
				props = append(props, mcp.DefaultString(d))
			}
			opts = append(opts, mcp.WithString(p.Name, props...))
		}
	}
	return mcp.NewTool(def.Name, opts...)
}

// handler maps hard failures to error results; payloads, including
// structured error payloads, are returned as JSON text.
func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := s.caller.Call(ctx, name, req.GetArguments())
		if err != nil {
			s.log.Warn().Err(err).Str("tool", name).Msg("Tool call failed")
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, err := json.Marshal(res)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

// Serve speaks MCP over in/out until ctx is cancelled or in closes
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(stdlog.New(s.log, "", 0))

	s.log.Info().Msg("MCP server listening on stdio")
	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
