package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/speedrun-hq/speedrun-swapper/pkg/circuitbreaker"
	"github.com/speedrun-hq/speedrun-swapper/pkg/logger"
	"github.com/speedrun-hq/speedrun-swapper/pkg/quote"
	"github.com/speedrun-hq/speedrun-swapper/pkg/swap"
)

const maxEventBytes = 1 << 16

// Orchestrator is the part of the swap machine the server exposes
type Orchestrator interface {
	Snapshot() swap.Snapshot
	Send(ev swap.Event) error
}

// QuoteView exposes the live quotes of the poller
type QuoteView interface {
	Snapshot() quote.Snapshot
}

// Server represents a health check HTTP server
type Server struct {
	port            string
	machine         Orchestrator
	quotes          QuoteView
	circuitBreakers map[string]*circuitbreaker.CircuitBreaker
	apiKey          string
	logger          logger.Logger
	httpServer      *http.Server
}

// NewServer creates a new health check server
func NewServer(port, apiKey string, machine Orchestrator, quotes QuoteView, circuitBreakers map[string]*circuitbreaker.CircuitBreaker, log logger.Logger) *Server {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	s := &Server{
		port:            port,
		machine:         machine,
		quotes:          quotes,
		circuitBreakers: circuitBreakers,
		apiKey:          apiKey,
		logger:          log,
	}
	s.httpServer = &http.Server{
		Addr:              ":" + port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// authMiddleware is a middleware that checks for a valid API key
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth if no API key is configured
		if s.apiKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Missing Authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
			return
		}

		if parts[1] != s.apiKey {
			http.Error(w, "Invalid API key", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Handler returns the routes served by the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Ready once the machine left its initial state and no upstream circuit is open
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if s.machine.Snapshot().Value == swap.LoadingLoading {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("Swap machine not started"))
			return
		}
		for name, cb := range s.circuitBreakers {
			if cb.IsOpen() {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(fmt.Sprintf("Circuit for %s is open", name)))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Ready"))
	})

	mux.HandleFunc("/status", s.handleStatus)

	// Routes that drive the swap or expose metrics require the API key
	mux.Handle("/events", s.authMiddleware(http.HandlerFunc(s.handleEvent)))
	mux.Handle("/circuit/reset", s.authMiddleware(http.HandlerFunc(s.handleCircuitReset)))
	mux.Handle("/metrics", s.authMiddleware(promhttp.Handler()))
	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	circuits := make(map[string]string, len(s.circuitBreakers))
	for name, cb := range s.circuitBreakers {
		circuitStatus := "closed"
		if cb.IsOpen() {
			circuitStatus = "open"
		}
		circuits[name] = circuitStatus
	}

	status := map[string]interface{}{
		"swap":     s.machine.Snapshot(),
		"circuits": circuits,
	}
	if s.quotes != nil {
		status["live_quotes"] = s.quotes.Snapshot()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.ErrorWithComponent(logger.Host, "Error encoding status JSON: %v", err)
	}
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	ev, err := swap.DecodeEvent(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.machine.Send(ev); err != nil {
		if errors.Is(err, swap.ErrStopped) {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.logger.InfoWithComponent(logger.Host, "Accepted %s event", ev.Type())
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleCircuitReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	upstream := r.URL.Query().Get("upstream")
	if upstream == "" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("Missing upstream parameter"))
		return
	}

	cb, ok := s.circuitBreakers[upstream]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(fmt.Sprintf("No circuit breaker for %s", upstream)))
		return
	}

	cb.Reset()
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(fmt.Sprintf("Circuit breaker for %s reset", upstream)))
}

// Start serves until Shutdown is called
func (s *Server) Start() {
	s.logger.InfoWithComponent(logger.Host, "Starting health and metrics server on port %s", s.port)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.ErrorWithComponent(logger.Host, "Health server error: %v", err)
	}
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
