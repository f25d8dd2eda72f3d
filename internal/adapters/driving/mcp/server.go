package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/guestmail/internal/logger"
)

// Version is reported to clients during initialisation.
const Version = "0.1.0"

const shutdownTimeout = 5 * time.Second

// Server exposes the inbox, and optionally sync, over MCP.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer builds a server with tools and resources for the given ports.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{ports: ports}
	s.server = mcp.NewServer(
		&mcp.Implementation{Name: "guestmail", Version: Version},
		&mcp.ServerOptions{Instructions: instructions(ports)},
	)

	s.registerTools()
	s.registerResources()

	return s, nil
}

// instructions tells the client which tools exist for this process.
func instructions(ports *Ports) string {
	text := "Hotel mailbox assistant. Browse categorised mail with list_messages, search_mail and " +
		"category_stats. summarize_message summarises one message. list_bookings and list_digests " +
		"return extracted reservations and daily reports."
	if ports.Sync != nil {
		text += " trigger_sync fetches new mail and sync_status reports progress. Only one sync runs at a time."
	}
	return text
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns the streamable HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// RunHTTP serves the streamable HTTP transport on addr until ctx is cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("mcp: listening on %s", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("mcp: shutdown: %v", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
