package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/vaultlens/vaultlens/internal/engine"
	"github.com/vaultlens/vaultlens/internal/search"
)

const (
	// ServerName is the MCP server name
	ServerName = "vaultlens"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server exposes the retrieval engine over the Model Context Protocol.
type Server struct {
	mcp      *server.MCPServer
	engine   *engine.Engine
	defaults search.Options
	logger   *zap.Logger
}

// NewServer creates an MCP server around an assembled engine. defaults
// seed each search request and are overridden per call by tool
// arguments.
func NewServer(eng *engine.Engine, defaults search.Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		engine:   eng,
		defaults: defaults,
		logger:   logger,
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.engine.Close() }()
	s.logger.Info("mcp server listening on stdio",
		zap.String("name", ServerName),
		zap.String("version", ServerVersion))
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(buildIndexTool(), s.handleBuildIndex)
	s.mcp.AddTool(searchVaultTool(), s.handleSearchVault)
	s.mcp.AddTool(findDuplicatesTool(), s.handleFindDuplicates)
	s.mcp.AddTool(cacheStatsTool(), s.handleCacheStats)
	s.mcp.AddTool(sweepCacheTool(), s.handleSweepCache)
}
