// Package fakeserver is an in-memory stand-in for the LLM Council backend.
// It serves the Copilot auth, provider, model and council config endpoints so
// councildeck can be developed and tested without GitHub.
package fakeserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultMaxWait = 2 * time.Minute
	defaultCodeTTL = 15 * time.Minute
	pollInterval   = 5
)

var copilotModels = []string{
	"copilot/gpt-4o",
	"copilot/gpt-4o-mini",
	"copilot/gpt-4.1",
	"copilot/o3-mini",
	"copilot/o4-mini",
	"copilot/claude-sonnet-4",
	"copilot/claude-3.7-sonnet",
	"copilot/gemini-2.5-pro",
}

var openRouterModels = []string{
	"openai/gpt-4o",
	"openai/gpt-4o-mini",
	"anthropic/claude-3.5-sonnet",
	"google/gemini-2.0-flash-exp",
	"x-ai/grok-2",
}

var councilModels = []string{
	"copilot/gpt-4o",
	"copilot/claude-sonnet-4",
	"copilot/gemini-2.5-pro",
	"copilot/o4-mini",
}

const chairmanModel = "copilot/gpt-4o"

// Options configures a Server.
type Options struct {
	// AutoApprove approves every device flow this long after it was started. Zero disables it.
	AutoApprove time.Duration
	// MaxWait bounds how long the token endpoint holds a request open. Defaults to 2 minutes.
	MaxWait time.Duration
	// CodeTTL is how long a device code stays valid. Defaults to 15 minutes.
	CodeTTL time.Duration
	// OpenRouter marks the OpenRouter provider as configured.
	OpenRouter bool
	// AllowedOrigins for CORS. Defaults to the council frontend dev servers.
	AllowedOrigins []string
	Logger         zerolog.Logger
}

type pendingFlow struct {
	userCode  string
	expiresAt time.Time
	approved  chan struct{}
	once      sync.Once
}

func (p *pendingFlow) expired(now time.Time) bool {
	return !now.Before(p.expiresAt)
}

func (p *pendingFlow) approve() {
	p.once.Do(func() { close(p.approved) })
}

// Server holds the fake backend state.
type Server struct {
	opts Options
	log  zerolog.Logger

	mu            sync.Mutex
	authenticated bool
	flows         map[string]*pendingFlow // by device code
}

// New creates a Server with no stored credentials.
func New(opts Options) *Server {
	if opts.MaxWait <= 0 {
		opts.MaxWait = defaultMaxWait
	}
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = defaultCodeTTL
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	return &Server{
		opts:  opts,
		log:   opts.Logger,
		flows: make(map[string]*pendingFlow),
	}
}

// Authenticated reports whether a device flow has completed since the last logout.
func (s *Server) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// Approve authorizes the pending flow with the given user code.
// It returns false when no such flow exists or its code has expired.
func (s *Server) Approve(userCode string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked(time.Now())
	for _, f := range s.flows {
		if strings.EqualFold(f.userCode, userCode) {
			f.approve()
			return true
		}
	}
	return false
}

// PendingFlows reports how many device codes are waiting for approval.
func (s *Server) PendingFlows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked(time.Now())
	return len(s.flows)
}

func (s *Server) evictExpiredLocked(now time.Time) {
	for code, f := range s.flows {
		if f.expired(now) {
			delete(s.flows, code)
		}
	}
}

// Handler returns the HTTP handler serving the backend API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))
	r.Use(s.requestLogger)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": "LLM Council API"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/copilot/status", s.handleStatus)
		r.Post("/copilot/auth", s.handleStartAuth)
		r.Post("/copilot/token", s.handleToken)
		r.Post("/copilot/logout", s.handleLogout)
		r.Get("/providers", s.handleProviders)
		r.Get("/models", s.handleModels)
		r.Get("/council/config", s.handleCouncilConfig)
	})

	r.Get("/login/device", s.handleDevicePage)
	r.Post("/login/device/{userCode}", s.handleApprove)
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("dur", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	authed := s.Authenticated()
	models := []string{}
	if authed {
		models = copilotModels
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated":    authed,
		"available_models": models,
	})
}

func (s *Server) handleStartAuth(w http.ResponseWriter, r *http.Request) {
	deviceCode := uuid.NewString()
	userCode := newUserCode()
	now := time.Now()
	flow := &pendingFlow{
		userCode:  userCode,
		expiresAt: now.Add(s.opts.CodeTTL),
		approved:  make(chan struct{}),
	}

	s.mu.Lock()
	s.evictExpiredLocked(now)
	s.flows[deviceCode] = flow
	s.mu.Unlock()

	if s.opts.AutoApprove > 0 {
		time.AfterFunc(s.opts.AutoApprove, flow.approve)
	}
	s.log.Info().Str("user_code", userCode).Msg("device flow started")

	writeJSON(w, http.StatusOK, map[string]any{
		"device_code":      deviceCode,
		"user_code":        userCode,
		"verification_uri": verificationURI(r),
		"expires_in":       int(s.opts.CodeTTL.Seconds()),
		"interval":         pollInterval,
	})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceCode string `json:"device_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DeviceCode == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": "device_code is required"})
		return
	}

	s.mu.Lock()
	s.evictExpiredLocked(time.Now())
	flow, ok := s.flows[req.DeviceCode]
	s.mu.Unlock()
	if !ok {
		writeFailed(w)
		return
	}

	wait := s.opts.MaxWait
	if left := time.Until(flow.expiresAt); left < wait {
		wait = left
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-flow.approved:
	case <-timer.C:
		if flow.expired(time.Now()) {
			s.mu.Lock()
			delete(s.flows, req.DeviceCode)
			s.mu.Unlock()
		}
		writeFailed(w)
		return
	case <-r.Context().Done():
		return
	}

	s.mu.Lock()
	_, live := s.flows[req.DeviceCode]
	delete(s.flows, req.DeviceCode)
	if live {
		s.authenticated = true
	}
	s.mu.Unlock()
	if !live {
		// approved, but another poll already redeemed the code
		writeFailed(w)
		return
	}
	s.log.Info().Str("user_code", flow.userCode).Msg("device flow authorized")
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Authentication successful"})
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.authenticated = false
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Logged out successfully"})
}

type providerEntry struct {
	name      string
	available bool
	models    []string
}

func (s *Server) providers() []providerEntry {
	return []providerEntry{
		{name: "openrouter", available: s.opts.OpenRouter, models: openRouterModels},
		{name: "copilot", available: s.Authenticated(), models: copilotModels},
	}
}

func (s *Server) handleProviders(w http.ResponseWriter, _ *http.Request) {
	out := []map[string]any{}
	for _, p := range s.providers() {
		models := []string{}
		if p.available {
			models = p.models
		}
		out = append(out, map[string]any{"name": p.name, "available": p.available, "models": models})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleModels(w http.ResponseWriter, _ *http.Request) {
	out := []map[string]any{}
	for _, p := range s.providers() {
		if !p.available {
			continue
		}
		for _, id := range p.models {
			name := strings.TrimPrefix(id, p.name+"/")
			out = append(out, map[string]any{"id": id, "provider": p.name, "name": name})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCouncilConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"council_models":    councilModels,
		"copilot_models":    copilotModels,
		"openrouter_models": openRouterModels,
		"chairman_model":    chairmanModel,
	})
}

func (s *Server) handleDevicePage(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("user_code")
	if code == "" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Append ?user_code=XXXX-XXXX to this URL to authorize a device.\n"))
		return
	}
	if !s.Approve(code) {
		http.Error(w, "unknown user code", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Device authorized. You can return to your terminal.\n"))
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	if !s.Approve(chi.URLParam(r, "userCode")) {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "unknown user code"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func verificationURI(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/login/device"
}

// newUserCode returns an 8-character code formatted like GitHub's, e.g. "A1B2-C3D4".
func newUserCode() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return raw[:4] + "-" + raw[4:8]
}

func writeFailed(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Authentication failed or expired"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
