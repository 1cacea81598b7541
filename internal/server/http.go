package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/teemow/attachdrop/internal/instrumentation"
)

const (
	// DefaultHTTPAddr is the default address of the MCP HTTP transport.
	DefaultHTTPAddr = ":8080"

	// MCPEndpoint is the path the MCP handler is mounted on.
	MCPEndpoint = "/mcp"

	defaultReadHeaderTimeout = 10 * time.Second
	defaultIdleTimeout       = 120 * time.Second
)

// HTTPServer serves the MCP endpoint next to the health probes.
type HTTPServer struct {
	httpServer *http.Server
	listener   net.Listener
	addr       string
	health     *HealthChecker
	logger     *slog.Logger
}

// NewHTTPServer mounts mcpHandler on MCPEndpoint and the probes of health
// on their usual paths. Every request is recorded in metrics, which may be
// nil.
func NewHTTPServer(addr string, mcpHandler http.Handler, health *HealthChecker, metrics *instrumentation.Metrics, logger *slog.Logger) *HTTPServer {
	if addr == "" {
		addr = DefaultHTTPAddr
	}
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle(MCPEndpoint, mcpHandler)
	if health != nil {
		health.RegisterHealthEndpoints(mux)
	}

	return &HTTPServer{
		addr:   addr,
		health: health,
		logger: logger,
		httpServer: &http.Server{
			Handler:           InstrumentHTTP(metrics, mux),
			ReadHeaderTimeout: defaultReadHeaderTimeout,
			IdleTimeout:       defaultIdleTimeout,
		},
	}
}

// Listen binds the configured address.
func (s *HTTPServer) Listen() error {
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.addr = ln.Addr().String()
	return nil
}

// Start serves until Shutdown. It returns nil after a graceful shutdown.
func (s *HTTPServer) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.logger.Info("starting HTTP server", slog.String("addr", s.addr), slog.String("endpoint", MCPEndpoint))
	if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown marks the server not ready and drains open connections.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.health != nil {
		s.health.SetReady(false)
	}
	if s.listener == nil {
		return nil
	}
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the listen address; after Listen it is the bound address.
func (s *HTTPServer) Addr() string {
	return s.addr
}

// InstrumentHTTP records method, path, status and duration of every
// request handled by next.
func InstrumentHTTP(metrics *instrumentation.Metrics, next http.Handler) http.Handler {
	if metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, rec.status, time.Since(start))
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
