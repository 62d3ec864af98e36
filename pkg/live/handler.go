package live

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pixelvault/admin/pkg/authstate"
	"github.com/pixelvault/admin/pkg/guard"
)

const defaultReadTimeout = 60 * time.Second

// Config wires a Handler to the rest of the application.
type Config struct {
	// SessionAPI builds the session backend for one connecting page,
	// typically from the auth cookie on the upgrade request.
	SessionAPI func(r *http.Request) authstate.SessionAPI

	// GuardConfig resolves the guard configuration for an active route.
	// Called once at connect time for the initial route, then again for
	// every route frame the client sends.
	GuardConfig func(path string) guard.Config

	// CheckOrigin overrides the upgrader's origin check. Nil keeps the
	// gorilla default (same-origin only).
	CheckOrigin func(r *http.Request) bool

	// ReadTimeout bounds how long the connection may stay silent.
	// Zero means 60 seconds.
	ReadTimeout time.Duration

	Logger *slog.Logger
}

// Handler upgrades page connections and runs one session per connection:
// a Controller hydrates against the session backend, a Guard watches the
// resulting status for the active route, and decisions travel back to the
// page as frames on the Channel.
type Handler struct {
	cfg      Config
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler builds a live channel endpoint. SessionAPI and GuardConfig
// are required.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	return &Handler{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     cfg.CheckOrigin,
		},
		logger: logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.logger.Warn("upgrade failed", "error", err)
		return
	}

	ch := newChannel(conn, h.logger)
	defer ch.Close()

	ctrl := authstate.NewController(h.cfg.SessionAPI(r), authstate.WithLogger(h.logger))

	cancelPush := ctrl.StatusSignal().Subscribe(func(s authstate.Status) {
		ch.PushFrame(AuthStateFrame(s))
	})
	defer cancelPush()

	route := r.URL.Query().Get("path")
	if route == "" {
		route = "/"
	}
	g := guard.New(ctrl, ch, h.cfg.GuardConfig(route))
	unmount := g.Mount()

	ctrl.Initialize(r.Context())

	h.readLoop(r.Context(), conn, ch, ctrl, func(path string) {
		unmount()
		g = guard.New(ctrl, ch, h.cfg.GuardConfig(path))
		unmount = g.Mount()
		g.Enforce()
	})
	unmount()
}

// readLoop consumes client frames until the connection drops. Route
// frames re-guard for the new active route; logout frames end the
// session, which flips the status signal and lets the guard redirect.
func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, ch *Channel, ctrl *authstate.Controller, reroute func(path string)) {
	for {
		conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))

		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				h.logger.Warn("read error", "error", err)
			}
			return
		}

		switch f.Type {
		case FrameLogout:
			ctrl.Logout(ctx)

		case FrameRoute:
			if f.Path != "" {
				reroute(f.Path)
			}

		default:
			h.logger.Warn("unknown frame type", "type", f.Type)
		}
	}
}

var _ guard.Navigator = (*Channel)(nil)
