// Package mcp exposes the analysis pipeline as Model Context Protocol tools
// so AI assistants can request repository overviews.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rohankatakam/gitfolio/internal/models"
)

const (
	serverName    = "gitfolio"
	serverVersion = "1.0.0"
)

// AnalysisRunner runs one complete analysis
type AnalysisRunner interface {
	RunAnalysis(ctx context.Context, req models.AnalysisRequest) (*models.Report, error)
}

// LastReader reads the most recent completed analysis
type LastReader interface {
	Last(ctx context.Context) (models.LastAnalysis, bool, error)
}

// ServerDeps holds the collaborators of the MCP server
type ServerDeps struct {
	Runner  AnalysisRunner
	Archive LastReader
	// DefaultCount applies when a call omits count
	DefaultCount int
	Logger       *slog.Logger
}

// Server wraps the SDK server with the GitFolio tools registered
type Server struct {
	inner        *mcpsdk.Server
	runner       AnalysisRunner
	archive      LastReader
	defaultCount int
	logger       *slog.Logger

	mu    sync.RWMutex
	tools []string
}

// NewServer creates a server with every tool registered
func NewServer(deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.DefaultCount <= 0 {
		deps.DefaultCount = 20
	}

	inner := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)

	s := &Server{
		inner:        inner,
		runner:       deps.Runner,
		archive:      deps.Archive,
		defaultCount: deps.DefaultCount,
		logger:       logger.With("component", "mcp"),
	}

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameAnalyze,
		Description: analyzeToolDescription,
	}, s.handleAnalyze)
	s.trackTool(ToolNameAnalyze)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameLast,
		Description: lastToolDescription,
	}, s.handleLast)
	s.trackTool(ToolNameLast)

	return s
}

// ListToolNames returns the sorted names of registered tools
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)
	return names
}

// Run serves over stdio until ctx is cancelled or the client disconnects
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport serves over transport
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	s.logger.Info("mcp server starting", "tools", s.ListToolNames())
	if err := s.inner.Run(ctx, transport); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

func (s *Server) trackTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools = append(s.tools, name)
}
