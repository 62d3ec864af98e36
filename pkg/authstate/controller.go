// Package authstate holds the client-side source of truth for "do we
// believe the user is authenticated" over the lifetime of one loaded page.
//
// The controller is an explicitly-owned object: create one per page load,
// inject it where it is needed, and let it die with the page. There is no
// package-level singleton, so tests can instantiate isolated instances.
package authstate

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pixelvault/admin/pkg/reactive"
)

// Controller tracks hydration and authentication status for one page
// lifetime.
//
// Lifecycle: Uninitialized → Hydrating → Hydrated{Unknown} → exactly one
// identity fetch → Hydrated{Authenticated} or Hydrated{Unauthenticated}.
// There is no path back to Hydrating; a full page reload constructs a new
// controller.
type Controller struct {
	api    SessionAPI
	logger *slog.Logger

	// serverSide marks a controller constructed during server-side
	// rendering, where no client state or identity fetch is available.
	// Initialize is a no-op on such an instance.
	serverSide bool

	status *reactive.Signal[Status]

	mu          sync.Mutex
	initialized bool
	identity    *Identity
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithServerRendered marks the controller as running during server-side
// rendering. Hydration never starts on such an instance; its status stays
// indeterminate.
func WithServerRendered() ControllerOption {
	return func(c *Controller) {
		c.serverSide = true
	}
}

// NewController creates a controller in the Uninitialized state.
func NewController(api SessionAPI, opts ...ControllerOption) *Controller {
	c := &Controller{
		api:    api,
		logger: slog.Default(),
		status: reactive.NewSignal(Status{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status returns the current session status.
func (c *Controller) Status() Status {
	return c.status.Get()
}

// StatusSignal exposes the status for subscription. Consumers such as the
// route guard re-evaluate on every change.
func (c *Controller) StatusSignal() *reactive.Signal[Status] {
	return c.status
}

// Identity returns the identity snapshot when authenticated.
func (c *Controller) Identity() (Identity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identity == nil {
		return Identity{}, false
	}
	return *c.identity, true
}

// Initialize starts the hydration cycle: it marks the status hydrated and
// issues the single identity fetch for this page lifetime.
//
// Calling it again, from any goroutine, while hydrating or beyond is a
// no-op; at most one identity fetch is ever in flight. During server-side
// rendering it does nothing at all.
//
// The fetch runs in the calling goroutine; a failure (including 401)
// surfaces only as the Unauthenticated terminal state, never as an error.
func (c *Controller) Initialize(ctx context.Context) {
	if c.serverSide {
		return
	}

	c.mu.Lock()
	if c.initialized {
		c.mu.Unlock()
		return
	}
	c.initialized = true
	c.mu.Unlock()

	// Hydration itself is immediate: persisted client state, if any, is
	// reconciled before authentication truth is known.
	c.status.Set(Status{Hydrated: true, State: StateUnknown})

	identity, err := c.api.FetchIdentity(ctx)
	if err != nil {
		c.logger.Debug("identity fetch failed, treating as unauthenticated", "error", err)
		c.status.Set(Status{Hydrated: true, State: StateUnauthenticated})
		return
	}

	c.mu.Lock()
	c.identity = &identity
	c.mu.Unlock()
	c.status.Set(Status{Hydrated: true, State: StateAuthenticated})
}

// Logout clears the identity snapshot and flips to Unauthenticated
// immediately, then notifies the gateway in the background. The gateway
// deletes the session cookie whether or not its backend call succeeds, so a
// failed notification never resurrects the session.
//
// Logging out while already unauthenticated is harmless.
func (c *Controller) Logout(ctx context.Context) {
	c.mu.Lock()
	c.identity = nil
	c.mu.Unlock()
	c.status.Set(Status{Hydrated: true, State: StateUnauthenticated})

	go func(ctx context.Context) {
		if err := c.api.Logout(ctx); err != nil {
			c.logger.Warn("gateway logout call failed", "error", err)
		}
	}(context.WithoutCancel(ctx))
}
