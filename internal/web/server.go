package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"zigbee-go-color/internal/automation"
	"zigbee-go-color/internal/bridge"
)

// ServerOption configures the web server.
type ServerOption func(*Server)

// WithAPIKey enables API key authentication.
func WithAPIKey(key string) ServerOption {
	return func(s *Server) {
		s.apiKey = key
	}
}

// WithAllowedOrigins sets allowed WebSocket origin patterns.
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// WithAutomation sets the automation engine and script manager.
func WithAutomation(engine *automation.Engine, mgr *automation.Manager) ServerOption {
	return func(s *Server) {
		s.autoEngine = engine
		s.scriptMgr = mgr
	}
}

// WithVersion sets the application version string.
func WithVersion(v string) ServerOption {
	return func(s *Server) {
		s.version = v
	}
}

// Server is the HTTP API of the bridge.
type Server struct {
	core           *bridge.Bridge
	wsHub          *WSHub
	logger         *slog.Logger
	mux            *http.ServeMux
	apiKey         string
	allowedOrigins []string
	scriptMgr      *automation.Manager
	autoEngine     *automation.Engine
	version        string
	wg             sync.WaitGroup
	unsubEvents    func()
}

// NewServer creates a new web server and starts streaming bridge events to
// WebSocket clients.
func NewServer(core *bridge.Bridge, logger *slog.Logger, opts ...ServerOption) *Server {
	s := &Server{
		core:   core,
		logger: logger.With("component", "web"),
		mux:    http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.wsHub = NewWSHub(s.logger)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.wsHub.Run()
	}()

	events, unsub := core.Events().Subscribe(256)
	s.unsubEvents = unsub
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for event := range events {
			s.wsHub.Broadcast(event)
		}
	}()

	s.routes()
	return s
}

// Stop gracefully shuts down the WebSocket hub and waits for goroutines.
func (s *Server) Stop() {
	if s.unsubEvents != nil {
		s.unsubEvents()
	}
	s.wsHub.Stop()
	s.wg.Wait()
}

func (s *Server) routes() {
	// Devices
	s.mux.HandleFunc("GET /api/devices", s.handleAPIListDevices)
	s.mux.HandleFunc("POST /api/devices", s.handleAPIAddDevice)
	s.mux.HandleFunc("GET /api/devices/{ieee}", s.handleAPIGetDevice)
	s.mux.HandleFunc("PATCH /api/devices/{ieee}", s.handleAPIRenameDevice)
	s.mux.HandleFunc("DELETE /api/devices/{ieee}", s.handleAPIDeleteDevice)
	s.mux.HandleFunc("POST /api/devices/{ieee}/set", s.handleAPISetDevice)
	s.mux.HandleFunc("POST /api/devices/{ieee}/get", s.handleAPIGetState)

	// Color tools
	s.mux.HandleFunc("POST /api/color/convert", s.handleAPIColorConvert)
	s.mux.HandleFunc("POST /api/gradient/encode", s.handleAPIGradientEncode)
	s.mux.HandleFunc("POST /api/gradient/decode", s.handleAPIGradientDecode)
	s.mux.HandleFunc("GET /api/gradient/scenes", s.handleAPIGradientScenes)

	// Automations
	s.mux.HandleFunc("GET /api/automations", s.handleAPIListAutomations)
	s.mux.HandleFunc("GET /api/automations/{id}", s.handleAPIGetAutomation)
	s.mux.HandleFunc("POST /api/automations", s.handleAPICreateAutomation)
	s.mux.HandleFunc("PUT /api/automations/{id}", s.handleAPIUpdateAutomation)
	s.mux.HandleFunc("DELETE /api/automations/{id}", s.handleAPIDeleteAutomation)
	s.mux.HandleFunc("POST /api/automations/{id}/toggle", s.handleAPIToggleAutomation)
	s.mux.HandleFunc("POST /api/automations/{id}/run", s.handleAPIRunAutomation)

	s.mux.HandleFunc("GET /api/version", s.handleAPIVersion)

	// WebSocket
	s.mux.HandleFunc("GET /ws", s.handleWS)
}

// ServeHTTP implements http.Handler, applying auth and CORS middleware.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// CORS: check Origin on mutating requests to prevent CSRF.
	if len(s.allowedOrigins) > 0 {
		origin := r.Header.Get("Origin")
		if origin != "" {
			if r.Method == http.MethodOptions {
				if s.isOriginAllowed(origin) {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, PUT, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
					w.Header().Set("Access-Control-Max-Age", "3600")
					w.WriteHeader(http.StatusNoContent)
					return
				}
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			if r.Method != http.MethodGet {
				if !s.isOriginAllowed(origin) {
					http.Error(w, "Forbidden", http.StatusForbidden)
					return
				}
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}
		}
	}

	if s.apiKey != "" {
		// The WebSocket upgrade is not protected: browsers cannot set
		// custom headers on it.
		if strings.HasPrefix(r.URL.Path, "/api/") {
			key := r.Header.Get("X-API-Key")
			if subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) != 1 {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}
	}
	s.mux.ServeHTTP(w, r)
}

// isOriginAllowed checks if the origin matches any allowed origin pattern.
func (s *Server) isOriginAllowed(origin string) bool {
	for _, allowed := range s.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (s *Server) handleAPIVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("writeJSON encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// decodeBody decodes a JSON request body of at most 1 MB.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	return json.NewDecoder(r.Body).Decode(v)
}

func withTimeout(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}
