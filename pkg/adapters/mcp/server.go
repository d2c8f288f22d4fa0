// Package mcp exposes the tool catalog as a Model Context Protocol server,
// so other agents can read and edit the workspace through it.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/fileops"
	"github.com/aretw0/tendril/pkg/tools"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

// Server publishes registry tools over MCP.
type Server struct {
	registry    *tools.Registry
	env         tools.Env
	allowWrites bool
	logger      *slog.Logger
	mcpServer   *server.MCPServer
	exposed     []string
}

// Option configures a Server.
type Option func(*Server)

// WithRegistry replaces the default catalog.
func WithRegistry(r *tools.Registry) Option {
	return func(s *Server) { s.registry = r }
}

// AllowWrites also exposes the tools that modify the workspace.
func AllowWrites(allow bool) Option {
	return func(s *Server) { s.allowWrites = allow }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a server over ws. Read-only tools are always exposed;
// mutating tools only with AllowWrites. The interaction tools are never
// exposed since an MCP caller has no user to ask.
func NewServer(ws *fileops.Workspace, version string, opts ...Option) *Server {
	s := &Server{
		registry: tools.Default(),
		env:      tools.Env{Workspace: ws},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mcpServer = server.NewMCPServer("tendril-mcp", strings.TrimSpace(version),
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// Exposed lists the published tool names in catalog order.
func (s *Server) Exposed() []string { return append([]string(nil), s.exposed...) }

// ServeStdio serves on stdin and stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sse.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sse.MessageHandler()))
	httpServer := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("mcp server listening (sse)", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	for _, spec := range s.registry.Specs() {
		if domain.IsControlTool(spec.Name) || (spec.RequiresApproval && !s.allowWrites) {
			continue
		}
		t, _ := s.registry.Lookup(spec.Name)

		schema, err := json.Marshal(t.Schema)
		if err != nil || t.Schema == nil {
			schema = []byte(`{"type":"object"}`)
		}
		tool := mcp.NewToolWithRawSchema(spec.Name, spec.Description, schema)
		tool.Annotations.ReadOnlyHint = mcp.ToBoolPtr(!spec.RequiresApproval)
		tool.Annotations.DestructiveHint = mcp.ToBoolPtr(spec.RequiresApproval)

		s.mcpServer.AddTool(tool, s.handler(spec.Name))
		s.exposed = append(s.exposed, spec.Name)
	}
	s.logger.Debug("mcp tools registered", "count", len(s.exposed), "writes", s.allowWrites)
}

func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		call := domain.ToolCall{ID: uuid.NewString(), Name: name, Args: req.GetArguments()}
		res := s.registry.Execute(ctx, s.env, call)
		s.logger.Info("mcp tool call", "tool_name", name, "ok", res.OK)
		return toResult(res), nil
	}
}

// toResult renders a ToolResult as MCP content: the message, then the data as JSON.
func toResult(res domain.ToolResult) *mcp.CallToolResult {
	if !res.OK {
		text := res.Message
		if res.Error != "" && res.Error != res.Message {
			text += ": " + res.Error
		}
		return mcp.NewToolResultError(text)
	}
	text := res.Message
	if len(res.Data) > 0 {
		if data, err := json.MarshalIndent(res.Data, "", "  "); err == nil {
			text += "\n" + string(data)
		}
	}
	return mcp.NewToolResultText(text)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("tendril://tools", "Tool catalog",
		mcp.WithResourceDescription("Specs of every tool in the catalog, with approval flags"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.registry.Specs())
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "tendril://tools",
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
