// Package server exposes a ledger over HTTP.
//
// It serves a JSON API over the ledger and preferences, a rendered summary page,
// prometheus metrics and a websocket stream of the bitcoin price. The price is only
// tracked while at least one websocket viewer is connected.
package server

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/etnz/dca"
	"github.com/etnz/dca/market"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Server is the HTTP front of a ledger.
type Server struct {
	ledger   *dca.Ledger
	prefs    *dca.Preferences
	tracker  *market.Tracker
	gatherer prometheus.Gatherer
	router   *mux.Router
	upgrader websocket.Upgrader

	mu      sync.Mutex
	viewers int
	stop    context.CancelFunc // stops the tracking loop
	stopped chan struct{}      // closed when the tracking loop returned
}

// New returns a server over ledger and prefs, valuing the ledger at the tracker's price.
// Metrics are served from gatherer, if not nil.
func New(ledger *dca.Ledger, prefs *dca.Preferences, tracker *market.Tracker, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		ledger:   ledger,
		prefs:    prefs,
		tracker:  tracker,
		gatherer: gatherer,
		router:   mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)

	s.router.HandleFunc("/", s.handleSummaryPage).Methods(http.MethodGet)
	s.router.HandleFunc("/ws/price", s.handlePriceStream).Methods(http.MethodGet)
	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.jsonContentTypeMiddleware)
	api.HandleFunc("/entries", s.handleListEntries).Methods(http.MethodGet)
	api.HandleFunc("/entries", s.handleAddEntry).Methods(http.MethodPost)
	api.HandleFunc("/entries/{id}", s.handleGetEntry).Methods(http.MethodGet)
	api.HandleFunc("/entries/{id}", s.handleEditEntry).Methods(http.MethodPut)
	api.HandleFunc("/entries/{id}", s.handleDeleteEntry).Methods(http.MethodDelete)
	api.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/price", s.handlePrice).Methods(http.MethodGet)
	api.HandleFunc("/price/refresh", s.handleRefreshPrice).Methods(http.MethodPost)
	api.HandleFunc("/goal", s.handleGetGoal).Methods(http.MethodGet)
	api.HandleFunc("/goal", s.handleSetGoal).Methods(http.MethodPut)
	api.HandleFunc("/import", s.handleImport).Methods(http.MethodPost)
	api.HandleFunc("/export", s.handleExport).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, errors.New("not found"))
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Info().Str("addr", addr).Msg("HTTP server started")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down HTTP server")
	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdown)
	s.Close()
	return err
}

// Close stops price tracking, if running.
func (s *Server) Close() {
	s.mu.Lock()
	stop, stopped := s.stop, s.stopped
	s.stop, s.stopped = nil, nil
	s.mu.Unlock()
	if stop != nil {
		stop()
		<-stopped
	}
}

// Viewers returns the number of connected price stream viewers.
func (s *Server) Viewers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewers
}

// Tracking reports whether the price tracking loop is running.
func (s *Server) Tracking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

// addViewer starts the tracking loop for the first viewer.
func (s *Server) addViewer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewers++
	if s.stop != nil {
		return
	}
	ctx, stop := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	s.stop, s.stopped = stop, stopped
	go func() {
		defer close(stopped)
		s.tracker.Run(ctx)
	}()
}

// removeViewer stops the tracking loop when the last viewer leaves.
func (s *Server) removeViewer() {
	s.mu.Lock()
	s.viewers--
	var stop context.CancelFunc
	var stopped chan struct{}
	if s.viewers == 0 {
		stop, stopped = s.stop, s.stopped
		s.stop, s.stopped = nil, nil
	}
	s.mu.Unlock()
	if stop != nil {
		stop()
		<-stopped
	}
}

type ctxKey int

const requestIDKey ctxKey = iota

// requestIDMiddleware adds unique request ID to each request
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()[:8]
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLoggingMiddleware logs all requests with structured format
func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		requestID, _ := r.Context().Value(requestIDKey).(string)
		log.Debug().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("request")
	})
}

// jsonContentTypeMiddleware sets JSON content type for API responses
func (s *Server) jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// responseWrapper captures the status code of a response.
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWrapper) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades through the wrapper.
func (w *responseWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response does not support hijacking")
	}
	return h.Hijack()
}
