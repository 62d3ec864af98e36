// Package gateway is the edge between the browser and the PixelVault
// backend API: stateless handlers that forward auth requests, translate
// backend envelopes into HTTP responses, and own the session cookie
// lifecycle. Handlers share no mutable state, so any number of them can run
// concurrently without coordination.
package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pixelvault/admin/pkg/api"
)

// serviceUnavailableMessage is what the browser sees for any
// transport-level failure reaching the backend.
const serviceUnavailableMessage = "service unavailable, please try again"

// Config configures a Gateway.
type Config struct {
	// Cookie controls the session cookie. Zero values pick the
	// auth_token / 30-day defaults.
	Cookie CookieConfig

	// Redirects decides post-login destinations. Defaults to the
	// dashboard for every role.
	Redirects RedirectPolicy

	// Registry receives the gateway metrics. Defaults to the global
	// Prometheus registerer.
	Registry prometheus.Registerer

	Logger *slog.Logger
}

// Gateway translates browser-facing auth calls into backend API calls.
type Gateway struct {
	backend   *api.Client
	cookies   *CookiePolicy
	redirects RedirectPolicy
	metrics   *Metrics
	logger    *slog.Logger
}

// New creates a gateway in front of the given backend client.
func New(backend *api.Client, cfg Config) *Gateway {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Cookie.Logger == nil {
		cfg.Cookie.Logger = logger
	}
	redirects := cfg.Redirects
	if redirects == nil {
		redirects = DefaultRedirectPolicy()
	}

	return &Gateway{
		backend:   backend,
		cookies:   NewCookiePolicy(cfg.Cookie),
		redirects: redirects,
		metrics:   NewMetrics(cfg.Registry),
		logger:    logger,
	}
}

// CookiePolicy exposes the gateway's cookie policy for wiring (the live
// channel reads the session token off its upgrade request with it).
func (g *Gateway) CookiePolicy() *CookiePolicy {
	return g.cookies
}

// Routes returns the gateway's HTTP surface on its own chi router.
func (g *Gateway) Routes() chi.Router {
	r := chi.NewRouter()
	g.Mount(r)
	return r
}

// Mount registers the gateway's HTTP surface on an existing router.
func (g *Gateway) Mount(r chi.Router) {
	r.Post("/api/auth/login", g.handleLogin)
	r.Post("/api/auth/register", g.handleRegister)
	r.Post("/api/auth/logout", g.handleLogout)
	r.Get("/api/auth/me", g.handleMe)

	// Everything under /api/users is a stateless pass-through.
	r.HandleFunc("/api/users", g.handleProxy)
	r.HandleFunc("/api/users/*", g.handleProxy)
}

// writeEnvelope writes an envelope body with the given HTTP status.
func writeEnvelope(w http.ResponseWriter, status int, env api.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// unavailableEnvelope is the uniform answer for backend-unreachable.
func unavailableEnvelope() api.Envelope {
	return api.Envelope{
		Error:   true,
		Code:    http.StatusInternalServerError,
		Message: serviceUnavailableMessage,
	}
}

// statusFromCode maps a backend envelope code onto an HTTP status,
// falling back to 500 for codes that are not valid HTTP statuses.
func statusFromCode(code int) int {
	if code >= 100 && code <= 599 {
		return code
	}
	return http.StatusInternalServerError
}
