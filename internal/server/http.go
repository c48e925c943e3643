package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/moldin/gcp-budget-agent/internal/instrumentation"
)

// MCPEndpoint is the path the streamable HTTP transport is served on.
const MCPEndpoint = "/mcp"

// HTTPServer serves the MCP streamable HTTP transport together with the
// health endpoints.
type HTTPServer struct {
	mcpServer  *mcpserver.MCPServer
	health     *HealthChecker
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
	httpServer *http.Server
}

// NewHTTPServer creates an HTTPServer. health and metrics may be nil.
func NewHTTPServer(mcpServer *mcpserver.MCPServer, health *HealthChecker, metrics *instrumentation.Metrics, logger *slog.Logger) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPServer{
		mcpServer: mcpServer,
		health:    health,
		metrics:   metrics,
		logger:    logger,
	}
}

// Handler returns the routed handler.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	streamable := mcpserver.NewStreamableHTTPServer(s.mcpServer,
		mcpserver.WithEndpointPath(MCPEndpoint),
	)
	mux.Handle(MCPEndpoint, streamable)

	if s.health != nil {
		s.health.RegisterHealthEndpoints(mux)
	}

	return s.instrument(mux)
}

// Start listens on addr and blocks until the server stops.
func (s *HTTPServer) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("starting MCP HTTP server", slog.String("addr", addr), slog.String("endpoint", MCPEndpoint))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// instrument records one HTTP metric per request.
func (s *HTTPServer) instrument(next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
