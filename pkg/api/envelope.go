package api

import (
	"encoding/json"
	"fmt"
)

// Envelope is the uniform response wrapper the PixelVault backend uses for
// every endpoint: {error, code, message, data}.
//
// Data is kept raw so pass-through endpoints can echo the backend body
// without re-shaping it. Use Result to get a validated, tagged view.
type Envelope struct {
	Error   bool            `json:"error"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`

	// Redirect is never set by the backend. The gateway adds it to
	// successful login responses as a navigation hint for the client.
	Redirect string `json:"redirect,omitempty"`
}

// Payload is the decoded shape of Envelope.Data for auth endpoints.
type Payload struct {
	Token string `json:"token,omitempty"`
	User  *User  `json:"user,omitempty"`
}

// User is the identity profile the backend returns from login and /me.
type User struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// RoleAdmin is the only role with special meaning at the edge; everything
// else is treated as a regular member.
const RoleAdmin = "admin"

// DecodeEnvelope parses a backend response body into an Envelope.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}
	return e, nil
}

// Payload decodes the data field. A missing data field yields an empty
// payload, not an error: the backend omits data on several success paths
// (register without auto-login, logout).
func (e Envelope) Payload() (Payload, error) {
	if len(e.Data) == 0 {
		return Payload{}, nil
	}
	var p Payload
	if err := json.Unmarshal(e.Data, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: data: %v", ErrBadEnvelope, err)
	}
	return p, nil
}

// Result converts the envelope into its tagged form, validated once at the
// boundary so downstream code pattern-matches instead of probing fields.
func (e Envelope) Result() Result {
	if e.Error {
		return Err(e.Code, e.Message)
	}
	p, err := e.Payload()
	if err != nil {
		return Err(500, "malformed backend payload")
	}
	return Ok(p)
}

// Result is a tagged success-or-failure view of a backend envelope.
// Exactly one of Ok / Err holds.
type Result struct {
	ok      bool
	payload Payload
	code    int
	message string
}

// Ok builds a success result carrying the decoded payload.
func Ok(p Payload) Result {
	return Result{ok: true, payload: p}
}

// Err builds a failure result carrying the backend's code and message.
func Err(code int, message string) Result {
	return Result{code: code, message: message}
}

// Ok returns the payload when the result is a success.
func (r Result) Ok() (Payload, bool) {
	return r.payload, r.ok
}

// Err returns the code and message when the result is a failure.
func (r Result) Err() (code int, message string, failed bool) {
	if r.ok {
		return 0, "", false
	}
	return r.code, r.message, true
}

// IsOk reports whether the result is a success.
func (r Result) IsOk() bool {
	return r.ok
}
