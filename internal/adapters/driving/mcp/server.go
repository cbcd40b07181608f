package mcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-pdf/internal/asyncbridge"
	"github.com/custodia-labs/sercha-pdf/internal/logger"
)

// Version is reported to MCP clients during initialisation.
const Version = "0.1.0"

// instructions tells the agent how the tools fit together.
const instructions = `Tools operate on one active PDF document at a time.
Call set_active_document first, or pass document_id explicitly.
hybrid_search is the best default; text_search needs every term to match.
Search results carry chunk ids: call get_chunks for the full text.
list_figures describes figures and captions; prepare_images returns file ids
for vision requests.`

const shutdownGrace = 5 * time.Second

// Server exposes retrieval over PDFs as MCP tools and resources.
type Server struct {
	ports  *Ports
	bridge *asyncbridge.Bridge
	server *mcp.Server
}

// NewServer registers every tool and resource. Without an injected bridge
// the server owns a private one.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}
	bridge := ports.Bridge
	if bridge == nil {
		bridge = asyncbridge.New()
	}

	s := &Server{
		ports:  ports,
		bridge: bridge,
		server: mcp.NewServer(
			&mcp.Implementation{Name: "sercha-pdf", Version: Version},
			&mcp.ServerOptions{Instructions: instructions},
		),
	}
	s.registerTools()
	s.registerResources()
	return s, nil
}

// Run serves JSON-RPC over stdio until ctx ends or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	defer s.startBridge(ctx)()
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler serves the streamable HTTP transport.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// RunHTTP serves the streamable HTTP transport on addr until ctx ends.
// ready, if set, receives the bound address once the listener is open.
func (s *Server) RunHTTP(ctx context.Context, addr string, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	if ready != nil {
		ready(ln.Addr())
	}
	defer s.startBridge(ctx)()

	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("mcp: http shutdown: %v", err)
		}
	}()

	if err := httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// startBridge runs the bridge loop for the lifetime of the server unless
// another owner already runs it. The returned func stops what was started.
func (s *Server) startBridge(ctx context.Context) func() {
	if s.bridge.Running() {
		return func() {}
	}
	go func() {
		if err := s.bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("mcp: bridge loop: %v", err)
		}
	}()
	return s.bridge.Stop
}
