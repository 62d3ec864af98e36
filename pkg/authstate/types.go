package authstate

import "context"

// State is what the controller currently believes about authentication.
type State int

const (
	// StateUnknown means no identity fetch has completed yet.
	StateUnknown State = iota

	// StateAuthenticated means the last identity fetch succeeded.
	StateAuthenticated

	// StateUnauthenticated means the last identity fetch failed or the
	// user explicitly logged out.
	StateUnauthenticated
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Status is the controller's externally visible session status.
//
// State must not be trusted until Hydrated is true: an unhydrated status is
// indeterminate, not unauthenticated.
type Status struct {
	Hydrated bool
	State    State
}

// Identity is the authenticated user's profile snapshot, replaced wholesale
// by a successful identity fetch and cleared on logout. It is never updated
// field-by-field.
type Identity struct {
	ID        string
	Role      string
	Email     string
	Name      string
	AvatarURL string
}

// SessionAPI is what the controller needs from the edge gateway: a way to
// confirm identity and a way to end the session. The session cookie rides
// along implicitly; the controller never sees the raw token.
type SessionAPI interface {
	// FetchIdentity confirms the current session with the gateway.
	// Any failure, including 401, means "not authenticated".
	FetchIdentity(ctx context.Context) (Identity, error)

	// Logout ends the session at the gateway. The gateway deletes the
	// session cookie whether or not the backend acknowledges.
	Logout(ctx context.Context) error
}
