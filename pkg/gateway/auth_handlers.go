package gateway

import (
	"errors"
	"net/http"

	"github.com/pixelvault/admin/pkg/api"
)

// handleLogin forwards the login body to the backend. On success it issues
// the session cookie and augments the echoed envelope with a redirect hint
// derived from the user's role.
func (g *Gateway) handleLogin(w http.ResponseWriter, r *http.Request) {
	env, err := g.backend.Login(r.Context(), r.Body)
	if err != nil {
		g.backendDown(w, "login", err)
		return
	}

	payload, ok := env.Result().Ok()
	if !ok {
		g.metrics.RecordAuthRequest("login", "rejected")
		writeEnvelope(w, statusFromCode(env.Code), env)
		return
	}

	if payload.Token != "" {
		cookie, err := g.cookies.SessionCookie(r, payload.Token)
		if err != nil {
			// Deployment problem, not a user problem: secure cookies
			// demanded on an insecure channel.
			g.logger.Error("cannot issue session cookie", "error", err)
			g.metrics.RecordAuthRequest("login", "error")
			writeEnvelope(w, http.StatusInternalServerError, unavailableEnvelope())
			return
		}
		http.SetCookie(w, cookie)
	}

	role := ""
	if payload.User != nil {
		role = payload.User.Role
	}
	env.Redirect = g.redirects.Destination(role)

	g.metrics.RecordAuthRequest("login", "success")
	writeEnvelope(w, http.StatusOK, env)
}

// handleRegister forwards the registration body. A token in the response
// means the backend auto-logged the new account in, so the cookie is set;
// without one the response is a plain 201.
func (g *Gateway) handleRegister(w http.ResponseWriter, r *http.Request) {
	env, err := g.backend.Register(r.Context(), r.Body)
	if err != nil {
		g.backendDown(w, "register", err)
		return
	}

	payload, ok := env.Result().Ok()
	if !ok {
		g.metrics.RecordAuthRequest("register", "rejected")
		writeEnvelope(w, statusFromCode(env.Code), env)
		return
	}

	if payload.Token != "" {
		cookie, err := g.cookies.SessionCookie(r, payload.Token)
		if err != nil {
			g.logger.Error("cannot issue session cookie", "error", err)
			g.metrics.RecordAuthRequest("register", "error")
			writeEnvelope(w, http.StatusInternalServerError, unavailableEnvelope())
			return
		}
		http.SetCookie(w, cookie)
	}

	g.metrics.RecordAuthRequest("register", "success")
	writeEnvelope(w, http.StatusCreated, env)
}

// handleLogout deletes the session cookie no matter what the backend says.
// Cookie deletion is the authoritative definition of "logged out" at this
// edge; a backend failure is masked from the browser but recorded on the
// logout_backend_failures_total counter and in the log.
func (g *Gateway) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, _ := g.cookies.Token(r)

	env, err := g.backend.Logout(r.Context(), token)
	switch {
	case err != nil:
		g.metrics.RecordLogoutBackendFailure()
		g.logger.Warn("backend logout failed, cookie cleared anyway", "error", err)
	case env.Error:
		g.metrics.RecordLogoutBackendFailure()
		g.logger.Warn("backend rejected logout, cookie cleared anyway",
			"code", env.Code,
			"message", env.Message,
		)
	}

	http.SetCookie(w, g.cookies.DeleteCookie(r))
	g.metrics.RecordAuthRequest("logout", "success")
	writeEnvelope(w, http.StatusOK, api.Envelope{
		Code:    http.StatusOK,
		Message: "logged out",
	})
}

// handleMe passes the identity check through. Success is echoed unchanged
// with 200; a backend rejection is echoed with 401 regardless of its own
// declared code, because any failure here means "not authenticated".
func (g *Gateway) handleMe(w http.ResponseWriter, r *http.Request) {
	token, _ := g.cookies.Token(r)

	env, err := g.backend.Me(r.Context(), token)
	if err != nil {
		g.backendDown(w, "me", err)
		return
	}

	if env.Error {
		g.metrics.RecordAuthRequest("me", "rejected")
		writeEnvelope(w, http.StatusUnauthorized, env)
		return
	}

	g.metrics.RecordAuthRequest("me", "success")
	writeEnvelope(w, http.StatusOK, env)
}

// backendDown converts a transport failure into the uniform 500 envelope.
// It never propagates as an unhandled fault to the browser.
func (g *Gateway) backendDown(w http.ResponseWriter, endpoint string, err error) {
	g.metrics.RecordBackendUnreachable(endpoint)
	g.metrics.RecordAuthRequest(endpoint, "error")

	level := g.logger.Warn
	if !errors.Is(err, api.ErrUnreachable) {
		level = g.logger.Error
	}
	level("backend call failed", "endpoint", endpoint, "error", err)

	writeEnvelope(w, http.StatusInternalServerError, unavailableEnvelope())
}
