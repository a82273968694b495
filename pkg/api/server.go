package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/squidroute/pkg/crypto"
	"github.com/uhyunpark/squidroute/pkg/metrics"
	"github.com/uhyunpark/squidroute/pkg/pipeline"
	"github.com/uhyunpark/squidroute/pkg/squid"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
	maxBodyBytes        = 1 << 20
)

// Server handles the REST API
type Server struct {
	pipeline *pipeline.Pipeline
	router   *mux.Router
	logger   *zap.SugaredLogger
	metrics  *metrics.Metrics
	origins  []string
	http     *http.Server
}

type Option func(*Server)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Server) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithAllowedOrigins sets the CORS origins. Empty allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// NewServer creates a new API server
func NewServer(p *pipeline.Pipeline, opts ...Option) *Server {
	s := &Server{
		pipeline: p,
		router:   mux.NewRouter(),
		logger:   zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.instrument)

	// API v1 routes
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Address endpoints
	api.HandleFunc("/addresses/derive", s.handleDerive).Methods("POST")
	api.HandleFunc("/addresses/{address}/validate", s.handleValidate).Methods("GET")
	api.HandleFunc("/addresses/{address}/checksum", s.handleChecksum).Methods("GET")

	// Route endpoints
	api.HandleFunc("/routes", s.handleFetchRoute).Methods("POST")
	api.HandleFunc("/routes/{address}", s.handleRouteHistory).Methods("GET")

	// User operation endpoints
	api.HandleFunc("/userops", s.handleUserOp).Methods("POST")

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
}

// Handler returns the router wrapped in CORS.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(s.router)
}

// Start serves on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Infow("api_server_starting", "addr", addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleDerive(w http.ResponseWriter, r *http.Request) {
	var req DeriveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	addr, err := s.pipeline.DeriveAddress(req.PublicKey)
	if err != nil {
		s.respondErr(w, "invalid public key", err)
		return
	}
	respondJSON(w, AddressResponse{Address: addr})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	resp := ValidateResponse{Address: address, Valid: crypto.IsValidAddress(address)}
	if checksummed, err := crypto.ToChecksumAddress(address); err == nil {
		resp.Checksummed = checksummed
	}
	respondJSON(w, resp)
}

func (s *Server) handleChecksum(w http.ResponseWriter, r *http.Request) {
	checksummed, err := crypto.ToChecksumAddress(mux.Vars(r)["address"])
	if err != nil {
		s.respondErr(w, "invalid address", err)
		return
	}
	respondJSON(w, AddressResponse{Address: checksummed})
}

func (s *Server) handleFetchRoute(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	params, route, err := s.pipeline.FetchRoute(r.Context(), req.Params, req.PublicKey)
	if err != nil {
		s.respondErr(w, "route request failed", err)
		return
	}
	respondJSON(w, RouteResponse{Params: params, Route: route.Raw})
}

func (s *Server) handleRouteHistory(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	if !crypto.IsValidAddress(address) {
		respondError(w, http.StatusBadRequest, "invalid address", address)
		return
	}
	store := s.pipeline.Store()
	if store == nil {
		respondError(w, http.StatusServiceUnavailable, "route history disabled", "")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid limit", raw)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	recs, err := store.LoadRecentRoutes(address, limit)
	if err != nil {
		s.logger.Errorw("route_history_failed", "address", address, "err", err)
		respondError(w, http.StatusInternalServerError, "failed to load routes", "")
		return
	}
	respondJSON(w, newRouteHistory(address, recs))
}

func (s *Server) handleUserOp(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	op, err := s.pipeline.GenerateUserOp(r.Context(), req.Params, req.PublicKey)
	if err != nil {
		s.respondErr(w, "user operation failed", err)
		return
	}
	respondJSON(w, op)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, newHealth(s.pipeline.Store() != nil, s.pipeline.Builder() != nil))
}

// ==============================
// Helper Functions
// ==============================

// statusFor maps pipeline errors to HTTP statuses. Anything that is not a
// caller mistake failed upstream, at the routing API or the chain.
func statusFor(err error) int {
	switch {
	case errors.Is(err, crypto.ErrInvalidAddressFormat),
		errors.Is(err, crypto.ErrInvalidAddressLength),
		errors.Is(err, crypto.ErrInvalidHexEncoding),
		errors.Is(err, crypto.ErrInvalidPublicKey),
		errors.Is(err, squid.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrNoBuilder):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) respondErr(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warnw("api_request_failed", "error", msg, "err", err)
	}
	respondError(w, status, msg, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument counts requests by route template and status.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unknown"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tmpl, err := cur.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		s.metrics.APIRequest(route, rec.status)
	})
}
