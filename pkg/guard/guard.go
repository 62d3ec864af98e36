// Package guard gates rendering of protected views on the session status
// held by an authstate.Controller.
package guard

import (
	"context"
	"sync/atomic"

	"github.com/pixelvault/admin/pkg/authstate"
)

// Config describes how a route is protected.
type Config struct {
	// RequireAuth gates the route on an authenticated session.
	RequireAuth bool

	// RedirectTo is where unauthenticated visitors are sent.
	RedirectTo string
}

// Decision is the derived view of session status a protected view consumes.
// It is recomputed from status, never stored.
type Decision struct {
	IsLoading    bool
	IsAuthorized bool
}

// Decide computes the guard decision for a status.
//
// Until the status is hydrated and the identity fetch has settled, the
// decision is loading: protected content is never rendered and no redirect
// happens, so an eventual redirect cannot flash before the real state is
// known.
func Decide(status authstate.Status, cfg Config) Decision {
	if !status.Hydrated || status.State == authstate.StateUnknown {
		return Decision{IsLoading: true}
	}
	if cfg.RequireAuth && status.State != authstate.StateAuthenticated {
		return Decision{}
	}
	return Decision{IsAuthorized: true}
}

// Navigator performs a client-side navigation without a page reload.
type Navigator interface {
	Navigate(path string)
}

// View is a renderable page subtree with a stable identity for tracing.
type View interface {
	Name() string
	Render(ctx context.Context) (string, error)
}

type namedView struct {
	name   string
	render func(ctx context.Context) (string, error)
}

func (v namedView) Name() string { return v.name }

func (v namedView) Render(ctx context.Context) (string, error) { return v.render(ctx) }

// NamedView builds a View from a name and a render function.
func NamedView(name string, render func(ctx context.Context) (string, error)) View {
	return namedView{name: name, render: render}
}

// DefaultPlaceholder is rendered while the session status is still loading.
const DefaultPlaceholder = `<div class="auth-checking">Checking session…</div>`

// Guard gates one mounted route on the controller's session status.
// Construct a new Guard per route mount; a route change means a new mount.
type Guard struct {
	ctrl        *authstate.Controller
	nav         Navigator
	cfg         Config
	placeholder string

	// redirected dedupes navigations for one denied transition so a
	// burst of status updates issues a single redirect.
	redirected atomic.Bool
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithPlaceholder overrides the loading placeholder markup.
func WithPlaceholder(markup string) GuardOption {
	return func(g *Guard) {
		g.placeholder = markup
	}
}

// New creates a guard for one route mount.
func New(ctrl *authstate.Controller, nav Navigator, cfg Config, opts ...GuardOption) *Guard {
	g := &Guard{
		ctrl:        ctrl,
		nav:         nav,
		cfg:         cfg,
		placeholder: DefaultPlaceholder,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Decision returns the current decision for this route.
func (g *Guard) Decision() Decision {
	return Decide(g.ctrl.Status(), g.cfg)
}

// Render renders the view according to the current decision: the neutral
// placeholder while loading, nothing plus a redirect when denied, the view
// itself when authorized.
func (g *Guard) Render(ctx context.Context, view View) (string, error) {
	d := g.Decision()
	switch {
	case d.IsLoading:
		return g.placeholder, nil
	case !d.IsAuthorized:
		g.redirect()
		return "", nil
	default:
		return view.Render(ctx)
	}
}

// Mount subscribes the guard to status changes so a session that becomes
// unauthenticated while the view is mounted (a logout, for instance)
// redirects within one state-update cycle, without a page reload.
//
// The returned unmount function removes the subscription.
func (g *Guard) Mount() (unmount func()) {
	return g.ctrl.StatusSignal().Subscribe(func(status authstate.Status) {
		d := Decide(status, g.cfg)
		switch {
		case d.IsLoading:
			// Indeterminate: never redirect yet.
		case !d.IsAuthorized:
			g.redirect()
		default:
			g.redirected.Store(false)
		}
	})
}

// Enforce applies the current decision immediately, redirecting when the
// session is already settled and unauthorized. Mount only reacts to status
// changes, so a guard attached after hydration (a client-side route change
// onto a protected route, say) calls Enforce to catch up.
func (g *Guard) Enforce() Decision {
	d := g.Decision()
	if !d.IsLoading && !d.IsAuthorized {
		g.redirect()
	}
	return d
}

// Protect wraps a view so that rendering it enforces this guard's contract.
// The wrapper's identity derives from the wrapped view's own name; beyond
// the name there is no behavioral difference from calling Render directly.
func (g *Guard) Protect(view View) View {
	return namedView{
		name: "Protected(" + view.Name() + ")",
		render: func(ctx context.Context) (string, error) {
			return g.Render(ctx, view)
		},
	}
}

func (g *Guard) redirect() {
	if g.nav == nil || g.cfg.RedirectTo == "" {
		return
	}
	if g.redirected.CompareAndSwap(false, true) {
		g.nav.Navigate(g.cfg.RedirectTo)
	}
}
