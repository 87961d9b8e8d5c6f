package registration

import "context"

// SessionStore holds conversation sessions keyed by session id. Get returns
// (nil, nil) when no session exists. A missing session is equivalent to an
// Idle one; Delete on an absent session is a no-op.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, sessionID string) error
}
