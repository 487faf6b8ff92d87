package api

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/partydle/internal/service"
)

// DefaultRequestTimeout bounds every request.
const DefaultRequestTimeout = 60 * time.Second

// Options configures a Server.
type Options struct {
	Logger         *log.Logger
	SecurityOutput io.Writer
	RequestTimeout time.Duration
}

// Server handles HTTP requests
type Server struct {
	svc            *service.Service
	errorHandler   *ErrorHandler
	logger         *log.Logger
	securityLogger *SecurityLogger
	health         *HealthMonitor
	requestTimeout time.Duration

	httpServer *http.Server
	listener   net.Listener
}

// NewServer creates a new API server
func NewServer(svc *service.Service, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[API] ", log.LstdFlags|log.Lshortfile)
	}
	out := opts.SecurityOutput
	if out == nil {
		out = os.Stdout
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	securityLogger := NewSecurityLogger(out)

	return &Server{
		svc:            svc,
		errorHandler:   NewErrorHandler(logger, securityLogger),
		logger:         logger,
		securityLogger: securityLogger,
		health:         NewHealthMonitor(),
		requestTimeout: opts.RequestTimeout,
	}
}

// SecurityLogger returns the server's audit logger.
func (s *Server) SecurityLogger() *SecurityLogger { return s.securityLogger }

// Uptime returns how long the server has been running.
func (s *Server) Uptime() time.Duration { return s.health.Uptime() }

// Routes sets up the HTTP routes with proper middleware
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.SecurityLoggingMiddleware)
	r.Use(s.errorHandler.RecoveryHandler)
	r.Use(middleware.Timeout(s.requestTimeout))
	r.Use(s.CORSMiddleware)

	r.Get("/health", s.handleHealthCheck)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/version", s.handleVersion)

		r.Get("/games", s.handleListGames)
		r.Get("/games/{game}/pool", s.handlePool)
		r.Get("/games/{game}/entries", s.handleEntries)

		r.Post("/parties", s.handleGenerate)
		r.Get("/parties", s.handleListParties)
		r.Get("/parties/latest", s.handleLatestParty)
		r.Route("/parties/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetParty)
			r.Get("/guesses", s.handleListGuesses)
			r.Post("/guesses", s.handleGuess)
			r.Post("/reveal", s.handleReveal)
			r.Post("/verify", s.handleVerify)
		})

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)
	})

	return r
}

// writeJSON writes a JSON response with proper headers
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Printf("response_encode_failed status=%d error=%v", status, err)
	}
}

// decodeJSON reads a request body into dst, writing the error response on
// failure.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON: "+err.Error())
		return false
	}
	return true
}

// Start binds addr and serves in a goroutine. It returns once the socket is
// bound.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.requestTimeout + 5*time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.securityLogger.LogSystemStartup(ln.Addr().String(), map[string]interface{}{
		"games":           len(s.svc.Games()),
		"request_timeout": s.requestTimeout.String(),
	})

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("server_error error=%v", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context, reason string) error {
	if s.httpServer == nil {
		return nil
	}
	s.securityLogger.LogSystemShutdown(reason, s.Uptime())
	return s.httpServer.Shutdown(ctx)
}
