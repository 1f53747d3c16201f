package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"arenapanel/internal/config"
	"arenapanel/internal/metrics"
	"arenapanel/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxJSONBody = 1 << 20

// Deps are the collaborators behind the HTTP API.
type Deps struct {
	Auth     *service.AuthService
	Bookings *service.BookingService
	Spaces   *service.SpaceService
	Tickets  *service.TicketService
	Users    *service.UserService
	Uploads  *service.UploadService

	// UploadsDir is served under /uploads/ when the local file store is used.
	UploadsDir string
	// Ready backs /healthz.
	Ready func(ctx context.Context) error
}

// HTTPServer exposes the panel's JSON API under /api/v1.
type HTTPServer struct {
	cfg     config.APIConfig
	deps    Deps
	mux     *http.ServeMux
	server  *http.Server
	limiter *rateLimiter
	logger  zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, deps Deps, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:     cfg,
		deps:    deps,
		mux:     http.NewServeMux(),
		limiter: newRateLimiter(cfg.RateLimit),
		logger:  zerolog.Nop(),
	}
	if logger != nil {
		srv.logger = logger.With().Str("component", "http").Logger()
	}

	srv.routes()

	handler := srv.recoverMiddleware(srv.loggingMiddleware(srv.corsMiddleware(
		srv.rateLimitMiddleware(srv.sessionMiddleware(srv.mux)))))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return srv
}

func (s *HTTPServer) routes() {
	m := s.mux

	m.HandleFunc("GET /healthz", s.handleHealth)

	m.HandleFunc("POST /api/v1/auth/register", s.handleRegister)
	m.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	m.HandleFunc("POST /api/v1/auth/logout", s.handleLogout)
	m.HandleFunc("GET /api/v1/auth/session", s.handleSession)

	m.HandleFunc("GET /api/v1/bookings", s.handleListBookings)
	m.HandleFunc("POST /api/v1/bookings", s.handleCreateBooking)
	m.HandleFunc("GET /api/v1/bookings/{id}", s.handleGetBooking)
	m.HandleFunc("PUT /api/v1/bookings/{id}", s.handleUpdateBooking)
	m.HandleFunc("DELETE /api/v1/bookings/{id}", s.handleDeleteBooking)
	m.HandleFunc("POST /api/v1/bookings/{id}/status", s.handleBookingStatus)

	m.HandleFunc("GET /api/v1/spaces", s.handleListSpaces)
	m.HandleFunc("POST /api/v1/spaces", s.handleCreateSpace)
	m.HandleFunc("GET /api/v1/spaces/{id}", s.handleGetSpace)
	m.HandleFunc("PUT /api/v1/spaces/{id}", s.handleUpdateSpace)
	m.HandleFunc("DELETE /api/v1/spaces/{id}", s.handleDeleteSpace)
	m.HandleFunc("GET /api/v1/spaces/{id}/availability", s.handleSpaceAvailability)

	m.HandleFunc("GET /api/v1/tickets", s.handleListTickets)
	m.HandleFunc("POST /api/v1/tickets", s.handleCreateTicket)
	m.HandleFunc("GET /api/v1/tickets/{id}", s.handleGetTicket)
	m.HandleFunc("PUT /api/v1/tickets/{id}", s.handleUpdateTicket)
	m.HandleFunc("DELETE /api/v1/tickets/{id}", s.handleDeleteTicket)

	m.HandleFunc("GET /api/v1/users", s.handleListUsers)
	m.HandleFunc("POST /api/v1/users", s.handleCreateUser)
	m.HandleFunc("GET /api/v1/users/{id}", s.handleGetUser)
	m.HandleFunc("PUT /api/v1/users/{id}", s.handleUpdateUser)
	m.HandleFunc("DELETE /api/v1/users/{id}", s.handleDeleteUser)

	m.HandleFunc("POST /api/v1/uploads", s.handleUpload)
	m.HandleFunc("GET /api/v1/exports/bookings", s.handleExportBookings)

	if s.deps.UploadsDir != "" {
		m.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.deps.UploadsDir))))
	}
}

// Handler returns the fully wrapped handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		if err := s.deps.Ready(r.Context()); err != nil {
			s.logger.Warn().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		route := "unmatched"
		if _, pattern := s.mux.Handler(r); pattern != "" {
			route = pattern
		}

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		dur := time.Since(start)

		metrics.ObserveHTTP(route, strconv.Itoa(recorder.status), dur.Seconds())

		event := s.logger.Info()
		if recorder.status >= http.StatusInternalServerError {
			event = s.logger.Error()
		}
		event.
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", route).
			Int("status", recorder.status).
			Dur("duration", dur).
			Msg("http request")
	})
}

func (s *HTTPServer) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error().
					Interface("panic", rec).
					Str("path", r.URL.Path).
					Bytes("stack", debug.Stack()).
					Msg("http handler panic")
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(httpClientKey(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) corsMiddleware(next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(s.cfg.HTTP.AllowedOrigins))
	for _, o := range s.cfg.HTTP.AllowedOrigins {
		allowed[strings.TrimRight(o, "/")] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allowed["*"] || allowed[origin]) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := describeError(err)
	s.logError(r, status, err)
	writeJSON(w, status, body)
}

func (s *HTTPServer) logError(r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")
		return
	}
	s.logger.Debug().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request rejected")
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorBody{Error: message})
}

// decodeJSON reads a JSON body and answers 400 itself on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}
