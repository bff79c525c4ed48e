// Package web provides an HTTP status server for the contact-sensor daemon.
package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/sweeney/contact-sensor/internal/history"
	"github.com/sweeney/contact-sensor/internal/status"
)

// HistorySource provides the recorded contact history.
type HistorySource interface {
	History() []history.Event
	InitialTime() (int64, bool)
}

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	history    HistorySource
	gatherer   prometheus.Gatherer
	log        zerolog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithHistory enables /history.json.
func WithHistory(h HistorySource) Option {
	return func(s *Server) { s.history = h }
}

// WithGatherer enables /metrics, serving the given gatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithLogger sets the logger used by the websocket handler.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker, opts ...Option) *Server {
	s := &Server{tracker: tracker, log: zerolog.Nop()}
	for _, o := range opts {
		o(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/ws", s.handleWS)
	if s.history != nil {
		mux.HandleFunc("/history.json", s.handleHistory)
	}
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(formatHistory(s.history))
}
