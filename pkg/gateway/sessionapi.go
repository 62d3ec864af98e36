package gateway

import (
	"context"
	"errors"

	"github.com/pixelvault/admin/pkg/authstate"
)

// ErrNotAuthenticated is returned by identity fetches the backend rejects.
var ErrNotAuthenticated = errors.New("gateway: not authenticated")

// SessionAPI returns the per-page session API the client session controller
// consumes, bound to the session token a page arrived with. A page that
// arrived without a cookie gets an empty token and the backend rejects the
// identity fetch, which is exactly the unauthenticated outcome.
func (g *Gateway) SessionAPI(token string) authstate.SessionAPI {
	return &sessionAPI{gateway: g, token: token}
}

type sessionAPI struct {
	gateway *Gateway
	token   string
}

// FetchIdentity confirms the session with the backend. The identity fetch
// round-trip is the only trusted source of authentication truth; the token
// alone proves nothing.
func (s *sessionAPI) FetchIdentity(ctx context.Context) (authstate.Identity, error) {
	g := s.gateway

	env, err := g.backend.Me(ctx, s.token)
	if err != nil {
		g.metrics.RecordBackendUnreachable("me")
		return authstate.Identity{}, err
	}

	payload, ok := env.Result().Ok()
	if !ok || payload.User == nil {
		return authstate.Identity{}, ErrNotAuthenticated
	}

	user := payload.User
	return authstate.Identity{
		ID:        user.ID,
		Role:      user.Role,
		Email:     user.Email,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
	}, nil
}

// Logout notifies the backend and masks any failure, mirroring the HTTP
// logout handler: logout is client-authoritative, and the failure stays
// visible on the metrics counter rather than in the caller's face.
func (s *sessionAPI) Logout(ctx context.Context) error {
	g := s.gateway

	env, err := g.backend.Logout(ctx, s.token)
	switch {
	case err != nil:
		g.metrics.RecordLogoutBackendFailure()
		g.logger.Warn("backend logout failed during live session logout", "error", err)
	case env.Error:
		g.metrics.RecordLogoutBackendFailure()
		g.logger.Warn("backend rejected live session logout",
			"code", env.Code,
			"message", env.Message,
		)
	}
	return nil
}
