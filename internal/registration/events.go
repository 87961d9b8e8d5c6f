package registration

import "employee-access-service/internal/identity/domain"

// Event is an inbound conversation event. The transport maps raw user input
// onto one of the concrete event types; the machine never sees free-form
// command text.
type Event interface {
	Session() string
}

type StartRequested struct {
	SessionID string
}

type PhoneSubmitted struct {
	SessionID string
	RawPhone  string
}

type NameSubmitted struct {
	SessionID string
	RawName   string
}

type CancelRequested struct {
	SessionID string
}

func (e StartRequested) Session() string  { return e.SessionID }
func (e PhoneSubmitted) Session() string  { return e.SessionID }
func (e NameSubmitted) Session() string   { return e.SessionID }
func (e CancelRequested) Session() string { return e.SessionID }

// ResultKind classifies the outcome the transport should render.
type ResultKind string

const (
	// ResultCodeIssued reports a freshly registered identity and its code.
	ResultCodeIssued ResultKind = "code_issued"
	// ResultCodeRetrieved reports an already-registered identity's code.
	ResultCodeRetrieved ResultKind = "code_retrieved"
	// ResultValidationFailed asks the user to resubmit; the session state is
	// unchanged.
	ResultValidationFailed ResultKind = "validation_failed"
	// ResultPromptPhone and ResultPromptName ask for the next input.
	ResultPromptPhone ResultKind = "prompt_phone"
	ResultPromptName  ResultKind = "prompt_name"
	// ResultCancelled acknowledges a cancel; pending data is discarded.
	ResultCancelled ResultKind = "cancelled"
)

// Result is the machine's reply to one event.
type Result struct {
	SessionID string
	Kind      ResultKind
	Identity  *domain.Identity // set for code_issued / code_retrieved
	Reason    string           // set for validation_failed
}
