// Package mcpserver exposes a loaded SCIP index over the Model Context
// Protocol, grounded on the teacher's pkg/mcp/server.go: a thin wrapper
// around the MCP SDK's server type that registers a fixed set of
// read-only tools and serves them over stdio.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/scipcxx/internal/mcpindex"
)

const (
	serverName    = "scipcxx"
	serverVersion = "1.0.0"
	toolCount     = 3
)

// Deps holds injectable dependencies for the server.
type Deps struct {
	Index  *mcpindex.Index
	Logger *slog.Logger
}

// Server wraps the MCP SDK server with scipcxx tool registrations.
type Server struct {
	inner *mcpsdk.Server
	mu    sync.RWMutex
	tools []string
}

// New creates an MCP server with all scipcxx tools registered against the
// given index.
func New(deps Deps) *Server {
	opts := &mcpsdk.ServerOptions{}
	if deps.Logger != nil {
		opts.Logger = deps.Logger
	}

	inner := mcpsdk.NewServer(&mcpsdk.Implementation{Name: serverName, Version: serverVersion}, opts)

	s := &Server{inner: inner, tools: make([]string, 0, toolCount)}
	s.registerTools(deps.Index)

	return s
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)

	return names
}

func (s *Server) trackTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, name)
}

// Run starts the server on stdio transport. It blocks until the context is
// canceled or the connection closes.
func (s *Server) Run(ctx context.Context) error {
	if err := s.inner.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		return fmt.Errorf("mcpserver: %w", err)
	}

	return nil
}

func (s *Server) registerTools(idx *mcpindex.Index) {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameLookupSymbol,
		Description: lookupSymbolDescription,
	}, handleLookupSymbol(idx))
	s.trackTool(ToolNameLookupSymbol)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameListDocuments,
		Description: listDocumentsDescription,
	}, handleListDocuments(idx))
	s.trackTool(ToolNameListDocuments)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameStats,
		Description: statsDescription,
	}, handleStats(idx))
	s.trackTool(ToolNameStats)
}
