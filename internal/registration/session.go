// Package registration drives the per-session enrollment conversation:
// start, phone, name, code. Each session progresses independently through a
// small state machine; the durable identity work is delegated to the
// identity service.
package registration

// State is a session's position in the enrollment dialogue.
type State string

const (
	StateIdle          State = "idle"
	StateAwaitingPhone State = "awaiting_phone"
	StateAwaitingName  State = "awaiting_name"
)

// Session is the transient conversation state for one end user. PendingPhone
// holds the canonical phone collected in AwaitingPhone until the name
// arrives; it is discarded on cancel.
type Session struct {
	SessionID    string `json:"session_id"`
	State        State  `json:"state"`
	PendingPhone string `json:"pending_phone,omitempty"`
}
