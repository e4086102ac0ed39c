package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/jonwraymond/flatten/auth"
	"github.com/jonwraymond/flatten/flatten"
	"github.com/jonwraymond/flatten/health"
	"github.com/jonwraymond/flatten/observe"
	"github.com/jonwraymond/flatten/routes"
)

// FlushRole is the default role required by the flush endpoints.
const FlushRole = "cache:flush"

// maxBody bounds flush request bodies.
const maxBody = 64 << 10

var (
	// ErrNilFlusher is returned by NewServer without a Flusher.
	ErrNilFlusher = errors.New("admin: flusher is required")

	// ErrNoAuthenticator is returned by NewServer without an Authenticator
	// unless AllowAnonymous is set.
	ErrNoAuthenticator = errors.New("admin: authenticator is required")
)

// Config configures a Server.
type Config struct {
	Flusher *flatten.Flusher

	// Invalidator enables the route and action endpoints.
	Invalidator *flatten.Invalidator

	// Health enables the health endpoints.
	Health *health.Aggregator

	// Authenticator protects the flush endpoints.
	Authenticator auth.Authenticator

	// AllowAnonymous serves the flush endpoints without authentication.
	AllowAnonymous bool

	// Role is required of flush callers.
	// Default: FlushRole
	Role string

	// FlushRate and FlushBurst limit flush requests across all callers.
	// A zero FlushRate disables limiting.
	FlushRate  float64
	FlushBurst int

	// Metrics serves /metrics.
	// Default: promhttp.Handler()
	Metrics http.Handler

	Logger observe.Logger
}

// Server is the admin HTTP handler.
type Server struct {
	cfg     Config
	router  *mux.Router
	limiter *rate.Limiter
	logger  observe.Logger
}

// NewServer builds the admin router.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Flusher == nil {
		return nil, ErrNilFlusher
	}
	if cfg.Authenticator == nil && !cfg.AllowAnonymous {
		return nil, ErrNoAuthenticator
	}
	if cfg.Role == "" {
		cfg.Role = FlushRole
	}
	if cfg.Metrics == nil {
		cfg.Metrics = promhttp.Handler()
	}

	s := &Server{cfg: cfg, router: mux.NewRouter(), logger: cfg.Logger}
	if s.logger == nil {
		s.logger = observe.NopLogger()
	}
	if cfg.FlushRate > 0 {
		burst := max(cfg.FlushBurst, 1)
		s.limiter = rate.NewLimiter(rate.Limit(cfg.FlushRate), burst)
	}

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	if s.cfg.Health != nil {
		health.RegisterHandlers(s.router, s.cfg.Health)
	}
	s.router.Handle("/metrics", s.cfg.Metrics).Methods(http.MethodGet)

	s.router.Handle("/flush", s.protect(s.handleFlush)).Methods(http.MethodPost)
	s.router.Handle("/flush/routes/{name}", s.protect(s.handleFlushRoute)).Methods(http.MethodPost)
	s.router.Handle("/flush/actions/{name}", s.protect(s.handleFlushAction)).Methods(http.MethodPost)
}

// protect rate limits, then authenticates.
func (s *Server) protect(h http.HandlerFunc) http.Handler {
	var next http.Handler = h
	if !s.cfg.AllowAnonymous {
		next = auth.Require(s.cfg.Authenticator, s.cfg.Role)(next)
	}
	return s.limit(next)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router returns the admin router for mounting extra endpoints.
func (s *Server) Router() *mux.Router { return s.router }

func (s *Server) limit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := s.limiter.Reserve()
		if delay := res.Delay(); delay > 0 {
			res.Cancel()
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			writeError(w, http.StatusTooManyRequests, errors.New("admin: flush rate exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// FlushRequest is the JSON body of POST /flush.
type FlushRequest struct {
	Pattern string `json:"pattern"`
}

// InvalidateRequest is the JSON body of the route and action endpoints.
type InvalidateRequest struct {
	Params map[string]string `json:"params"`
}

// FlushResponse reports a flush.
type FlushResponse struct {
	Scope    string `json:"scope"`
	Target   string `json:"target,omitempty"`
	Removed  int    `json:"removed"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration"`
}

func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	var req FlushRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if p := r.URL.Query().Get("pattern"); p != "" {
		req.Pattern = p
	}

	scope := "pattern"
	if req.Pattern == "" {
		scope = "all"
	}
	start := time.Now()
	n, err := s.cfg.Flusher.Flush(r.Context(), req.Pattern)
	s.respond(w, r, FlushResponse{Scope: scope, Target: req.Pattern, Removed: n}, start, err)
}

func (s *Server) handleFlushRoute(w http.ResponseWriter, r *http.Request) {
	s.invalidate(w, r, "route", (*flatten.Invalidator).FlushRoute)
}

func (s *Server) handleFlushAction(w http.ResponseWriter, r *http.Request) {
	s.invalidate(w, r, "action", (*flatten.Invalidator).FlushAction)
}

type invalidateFunc func(*flatten.Invalidator, context.Context, string, map[string]string) (int, error)

func (s *Server) invalidate(w http.ResponseWriter, r *http.Request, scope string, fn invalidateFunc) {
	if s.cfg.Invalidator == nil {
		writeError(w, http.StatusNotImplemented, fmt.Errorf("admin: %s invalidation is not configured", scope))
		return
	}
	var req InvalidateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	name := mux.Vars(r)["name"]

	start := time.Now()
	n, err := fn(s.cfg.Invalidator, r.Context(), name, req.Params)
	s.respond(w, r, FlushResponse{Scope: scope, Target: name, Removed: n}, start, err)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, resp FlushResponse, start time.Time, err error) {
	resp.Duration = time.Since(start).String()
	code := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		code = statusFor(err)
	}

	fields := []observe.Field{
		{Key: "scope", Value: resp.Scope},
		{Key: "target", Value: resp.Target},
		{Key: "removed", Value: resp.Removed},
	}
	if id := auth.IdentityFromContext(r.Context()); id != nil {
		fields = append(fields, observe.Field{Key: "principal", Value: id.Principal})
	}
	if err != nil {
		s.logger.Warn(r.Context(), "admin flush failed", append(fields, observe.Field{Key: "error", Value: err})...)
	} else {
		s.logger.Info(r.Context(), "admin flush", fields...)
	}
	writeJSON(w, code, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, routes.ErrUnknownRoute):
		return http.StatusNotFound
	case errors.Is(err, flatten.ErrEmptyPattern):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// decode reads an optional JSON body into v.
func decode(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("admin: invalid body: %w", err)
	}
	return nil
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
