// Package api exposes scoring and the watchlist over HTTP.
package api

import (
	"bufio"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"wallet-score/internal/domain"
	"wallet-score/internal/engine"
	"wallet-score/internal/notify"
	"wallet-score/internal/observability"
	"wallet-score/internal/watchlist"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Server routes HTTP requests to the scoring components.
type Server struct {
	scorer    *engine.Scorer
	watchlist *watchlist.Watchlist
	hub       *notify.Hub
	adminKey  string
	logger    *zap.Logger
	mux       *http.ServeMux
}

// NewServer creates the HTTP surface. An empty adminKey disables every
// administrative endpoint.
func NewServer(scorer *engine.Scorer, wl *watchlist.Watchlist, hub *notify.Hub, adminKey string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		scorer:    scorer,
		watchlist: wl,
		hub:       hub,
		adminKey:  adminKey,
		logger:    logger,
		mux:       http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /score/{id}", s.handleScore)
	s.mux.HandleFunc("POST /batch", s.handleBatch)
	s.mux.HandleFunc("GET /history/{id}", s.handleHistory)

	s.mux.HandleFunc("POST /watch", s.handleWatch)
	s.mux.HandleFunc("DELETE /watch/{id}", s.handleUnwatch)
	s.mux.HandleFunc("GET /watchlist", s.handleWatchlist)
	s.mux.HandleFunc("POST /rescore/{id}", s.handleRescore)
	s.mux.HandleFunc("POST /watchlist/rescore", s.handleBulkRescore)
	s.mux.HandleFunc("GET /report", s.handleReport)

	s.mux.HandleFunc("GET /alerts/preview", s.handleAlertPreview)
	s.mux.HandleFunc("POST /alerts/publish", s.requireAdmin(s.handleAlertPublish))
	if s.hub != nil {
		s.mux.Handle("GET /alerts/ws", s.hub)
	}

	s.mux.HandleFunc("POST /cache/clear", s.requireAdmin(s.handleCacheClear))
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", observability.Handler())
}

// Handler returns the routed handler wrapped with request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack supports WebSocket upgrades through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// requireAdmin rejects requests without a matching X-API-Key header.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		if s.adminKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.adminKey)) != 1 {
			s.writeError(w, domain.ErrUnauthorized)
			return
		}
		next(w, r)
	}
}

type errorResponse struct {
	Error  string `json:"error"`
	Wallet string `json:"wallet,omitempty"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidIdentifier),
		errors.Is(err, domain.ErrDomainResolutionFailed),
		errors.Is(err, domain.ErrBatchTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrNotWatched):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyWatched):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoActivity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUnreachable):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err error) errorResponse {
	resp := errorResponse{Error: err.Error()}
	var ae *domain.AccountError
	if errors.As(err, &ae) {
		resp.Wallet = ae.Account
		resp.Error = ae.Err.Error()
	}
	return resp
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", zap.Int("status", status), zap.Error(err))
	}
	s.writeJSON(w, status, errorBody(err))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("encode response", zap.Error(err))
	}
}

// decodeBody reads a JSON body into v. Malformed input is an invalid identifier
// error since every body carries identifiers.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed body: %w", domain.ErrInvalidIdentifier, err)
	}
	return nil
}
