package gateway

import "github.com/pixelvault/admin/pkg/api"

// DefaultDashboardPath is where successful logins land.
const DefaultDashboardPath = "/dashboard"

// RedirectPolicy decides the post-login destination for a role. It is
// pluggable so per-role destinations can diverge without touching the
// login handler.
type RedirectPolicy interface {
	Destination(role string) string
}

// RoleRedirects maps roles to destinations, with a fallback.
type RoleRedirects struct {
	ByRole  map[string]string
	Default string
}

// Destination returns the destination for the role, or the default.
func (p RoleRedirects) Destination(role string) string {
	if dest, ok := p.ByRole[role]; ok {
		return dest
	}
	return p.Default
}

// DefaultRedirectPolicy sends every role to the dashboard. Admin and
// regular members deliberately resolve to the same destination today; the
// split is pending a product decision, which is why this is a policy and
// not a constant in the handler.
func DefaultRedirectPolicy() RedirectPolicy {
	return RoleRedirects{
		ByRole: map[string]string{
			api.RoleAdmin: DefaultDashboardPath,
		},
		Default: DefaultDashboardPath,
	}
}
