package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ais-clarity/internal/resilience"
)

// Kind classifies a reconciliation failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindEntryNotFound
	KindAlreadyInFlight
	KindCollaboratorUnavailable
	KindInvalidVerdictStatus
	KindInvalidVerdict
	KindInvalidConfidence
	KindStaleResult
	// KindPersist means the verdict was merged in memory but the write
	// through to durable storage failed.
	KindPersist
)

var kindNames = map[Kind]string{
	KindUnknown:                 "Unknown",
	KindEntryNotFound:           "EntryNotFound",
	KindAlreadyInFlight:         "AlreadyInFlight",
	KindCollaboratorUnavailable: "CollaboratorUnavailable",
	KindInvalidVerdictStatus:    "InvalidVerdictStatus",
	KindInvalidVerdict:          "InvalidVerdict",
	KindInvalidConfidence:       "InvalidConfidence",
	KindStaleResult:             "StaleResult",
	KindPersist:                 "Persist",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[KindUnknown]
}

// Sentinels for errors.Is matching. A *Error matches the sentinel of its Kind.
var (
	ErrEntryNotFound           = eris.New("entry not found")
	ErrAlreadyInFlight         = eris.New("reconciliation already in flight")
	ErrCollaboratorUnavailable = eris.New("analysis collaborator unavailable")
	ErrInvalidVerdictStatus    = eris.New("invalid verdict status")
	ErrInvalidVerdict          = eris.New("invalid verdict")
	ErrInvalidConfidence       = eris.New("invalid confidence score")
	ErrStaleResult             = eris.New("stale reconciliation result")
	ErrPersist                 = eris.New("persist reconciled entry")
)

var sentinels = map[Kind]error{
	KindEntryNotFound:           ErrEntryNotFound,
	KindAlreadyInFlight:         ErrAlreadyInFlight,
	KindCollaboratorUnavailable: ErrCollaboratorUnavailable,
	KindInvalidVerdictStatus:    ErrInvalidVerdictStatus,
	KindInvalidVerdict:          ErrInvalidVerdict,
	KindInvalidConfidence:       ErrInvalidConfidence,
	KindStaleResult:             ErrStaleResult,
	KindPersist:                 ErrPersist,
}

// Error is returned by every failed reconciliation.
type Error struct {
	Kind     Kind
	ClientID string
	EntryID  string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("reconcile %s/%s: %s", e.ClientID, e.EntryID, sentinels[e.Kind])
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

func newError(kind Kind, clientID, entryID string, cause error) *Error {
	return &Error{Kind: kind, ClientID: clientID, EntryID: entryID, Err: cause}
}

// KindOf returns the Kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindUnknown
}

// IsDataContract reports whether err is a response that reached us but
// failed validation, as opposed to a transport failure.
func IsDataContract(err error) bool {
	switch KindOf(err) {
	case KindInvalidVerdictStatus, KindInvalidVerdict, KindInvalidConfidence:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether another attempt could succeed: the analyst
// was unreachable for a transient reason and the caller did not give up.
func IsRetryable(err error) bool {
	if KindOf(err) != KindCollaboratorUnavailable {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, resilience.ErrCircuitOpen) {
		return false
	}
	return resilience.IsTransient(err) || errors.Is(err, context.DeadlineExceeded)
}
