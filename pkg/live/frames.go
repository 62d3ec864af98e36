package live

import "github.com/pixelvault/admin/pkg/authstate"

// Frame types exchanged with the page runtime.
const (
	// FrameAuthState announces a session status change (server → client).
	FrameAuthState = "auth_state"

	// FrameNavigate instructs a client-side navigation (server → client).
	FrameNavigate = "navigate"

	// FrameLogout asks the server to end the session (client → server).
	FrameLogout = "logout"

	// FrameRoute announces a client-side route change (client → server),
	// so guarding follows the active route.
	FrameRoute = "route"
)

// Frame is one JSON message on the live channel.
type Frame struct {
	Type string `json:"type"`

	// Path carries the destination for navigate frames and the new
	// active route for route frames.
	Path string `json:"path,omitempty"`

	// Hydrated and State mirror the session status on auth_state frames.
	Hydrated bool   `json:"hydrated,omitempty"`
	State    string `json:"state,omitempty"`
}

// NavigateFrame builds a navigation instruction.
func NavigateFrame(path string) Frame {
	return Frame{Type: FrameNavigate, Path: path}
}

// AuthStateFrame mirrors a session status onto the wire.
func AuthStateFrame(status authstate.Status) Frame {
	return Frame{
		Type:     FrameAuthState,
		Hydrated: status.Hydrated,
		State:    status.State.String(),
	}
}
