package registration

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"

	"employee-access-service/internal/identity/domain"
	"employee-access-service/internal/phone"
)

var tracer = otel.Tracer("employee-access-service/registration")

// IdentityService is the slice of the identity service the machine uses.
type IdentityService interface {
	Find(ctx context.Context, rawPhone string) (*domain.Identity, error)
	Enroll(ctx context.Context, rawPhone, rawName string) (*domain.Identity, bool, error)
}

// Machine applies conversation events to sessions. It is stateless itself;
// all per-user state lives in the SessionStore, so one Machine serves every
// session concurrently.
type Machine struct {
	sessions   SessionStore
	identities IdentityService
}

func NewMachine(sessions SessionStore, identities IdentityService) *Machine {
	return &Machine{sessions: sessions, identities: identities}
}

// Handle applies one event and returns the result the transport should
// render. Recoverable input problems come back as ResultValidationFailed
// with the session unchanged; only infrastructure failures return a non-nil
// error, and those never advance the session past the failed step.
func (m *Machine) Handle(ctx context.Context, ev Event) (*Result, error) {
	ctx, span := tracer.Start(ctx, "registration.Handle")
	defer span.End()

	sid := ev.Session()
	if sid == "" {
		return nil, errors.New("registration: empty session id")
	}
	sess, err := m.sessions.Get(ctx, sid)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		sess = &Session{SessionID: sid, State: StateIdle}
	}

	switch e := ev.(type) {
	case StartRequested:
		return m.start(ctx, sess)
	case PhoneSubmitted:
		return m.phoneSubmitted(ctx, sess, e.RawPhone)
	case NameSubmitted:
		return m.nameSubmitted(ctx, sess, e.RawName)
	case CancelRequested:
		return m.cancel(ctx, sess)
	default:
		return nil, fmt.Errorf("registration: unknown event %T", ev)
	}
}

func (m *Machine) start(ctx context.Context, sess *Session) (*Result, error) {
	sess.State = StateAwaitingPhone
	sess.PendingPhone = ""
	if err := m.sessions.Put(ctx, sess); err != nil {
		return nil, err
	}
	return &Result{SessionID: sess.SessionID, Kind: ResultPromptPhone}, nil
}

// phoneSubmitted accepts a phone from AwaitingPhone, and also from Idle so a
// user can skip the explicit start step. A known phone ends the conversation
// with the existing code; an unknown one moves on to collect the name.
func (m *Machine) phoneSubmitted(ctx context.Context, sess *Session, raw string) (*Result, error) {
	if sess.State == StateAwaitingName {
		return &Result{
			SessionID: sess.SessionID,
			Kind:      ResultValidationFailed,
			Reason:    "expected a name, not a phone number",
		}, nil
	}

	id, err := m.identities.Find(ctx, raw)
	if errors.Is(err, phone.ErrInvalidPhone) {
		if sess.State != StateAwaitingPhone {
			if perr := m.putState(ctx, sess, StateAwaitingPhone, ""); perr != nil {
				return nil, perr
			}
		}
		return &Result{
			SessionID: sess.SessionID,
			Kind:      ResultValidationFailed,
			Reason:    "phone must contain 11 digits and start with 7 or 8",
		}, nil
	}
	if err != nil {
		return nil, err
	}

	if id != nil {
		if err := m.sessions.Delete(ctx, sess.SessionID); err != nil {
			return nil, err
		}
		return &Result{SessionID: sess.SessionID, Kind: ResultCodeRetrieved, Identity: id}, nil
	}

	if err := m.putState(ctx, sess, StateAwaitingName, canonicalPhone(raw)); err != nil {
		return nil, err
	}
	return &Result{SessionID: sess.SessionID, Kind: ResultPromptName}, nil
}

func (m *Machine) nameSubmitted(ctx context.Context, sess *Session, raw string) (*Result, error) {
	if sess.State != StateAwaitingName || sess.PendingPhone == "" {
		return &Result{
			SessionID: sess.SessionID,
			Kind:      ResultValidationFailed,
			Reason:    "no registration in progress",
		}, nil
	}

	id, created, err := m.identities.Enroll(ctx, sess.PendingPhone, raw)
	if errors.Is(err, domain.ErrInvalidName) {
		return &Result{
			SessionID: sess.SessionID,
			Kind:      ResultValidationFailed,
			Reason:    "name must be at least two words of two or more characters",
		}, nil
	}
	if err != nil {
		// Persistence failed. The session stays in AwaitingName so the user
		// can resubmit; no code has been committed, so none is reported.
		return nil, err
	}

	if err := m.sessions.Delete(ctx, sess.SessionID); err != nil {
		return nil, err
	}
	kind := ResultCodeIssued
	if !created {
		kind = ResultCodeRetrieved
	}
	return &Result{SessionID: sess.SessionID, Kind: kind, Identity: id}, nil
}

func (m *Machine) cancel(ctx context.Context, sess *Session) (*Result, error) {
	if err := m.sessions.Delete(ctx, sess.SessionID); err != nil {
		return nil, err
	}
	return &Result{SessionID: sess.SessionID, Kind: ResultCancelled}, nil
}

func (m *Machine) putState(ctx context.Context, sess *Session, st State, pending string) error {
	sess.State = st
	sess.PendingPhone = pending
	return m.sessions.Put(ctx, sess)
}

// canonicalPhone re-normalizes the raw phone for storage in the session.
// Find has already proven it valid, so the error cannot occur here.
func canonicalPhone(raw string) string {
	canonical, _ := phone.Normalize(raw)
	return canonical
}
