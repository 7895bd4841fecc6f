package game

import (
	"fmt"

	"github.com/pkg/errors"
)

// Reasons an intent is rejected. A rejected intent never changes the state.
var (
	ErrWrongPhase       = errors.New("wrong phase")
	ErrWrongTurn        = errors.New("not your turn")
	ErrNotSeated        = errors.New("not seated")
	ErrAlreadySeated    = errors.New("already seated")
	ErrCardNotInHand    = errors.New("card not in hand")
	ErrInvalidCard      = errors.New("invalid card")
	ErrInvalidBid       = errors.New("invalid bid")
	ErrNameTaken        = errors.New("name taken")
	ErrInvalidName      = errors.New("invalid name")
	ErrTableFull        = errors.New("table full")
	ErrNotTableHead     = errors.New("only the first seat can do this")
	ErrBeloteNotAllowed = errors.New("belote not allowed")
	ErrTrickSettling    = errors.New("trick settling")
	ErrStaleEvent       = errors.New("stale event")
	ErrUnknownIntent    = errors.New("unknown intent")
	ErrMalformedIntent  = errors.New("malformed intent")
)

var rejectionReasons = []error{
	ErrWrongPhase,
	ErrWrongTurn,
	ErrNotSeated,
	ErrAlreadySeated,
	ErrCardNotInHand,
	ErrInvalidCard,
	ErrInvalidBid,
	ErrNameTaken,
	ErrInvalidName,
	ErrTableFull,
	ErrNotTableHead,
	ErrBeloteNotAllowed,
	ErrTrickSettling,
	ErrStaleEvent,
	ErrUnknownIntent,
	ErrMalformedIntent,
}

// RejectionError carries the intent that was refused and why.
type RejectionError struct {
	Intent IntentKind
	Err    error
}

func (e RejectionError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Intent, e.Err)
}

func (e RejectionError) Unwrap() error {
	return e.Err
}

// Reason returns the short label of the rejection, used for metrics and
// acknowledgments to the caller.
func (e RejectionError) Reason() string {
	for _, reason := range rejectionReasons {
		if errors.Is(e.Err, reason) {
			return reason.Error()
		}
	}
	return "internal"
}

func IsRejection(err error) bool {
	var rejection RejectionError
	return errors.As(err, &rejection)
}

// InvariantError means the state no longer holds and the table must be reset.
type InvariantError struct {
	Msg string
}

func (e InvariantError) Error() string {
	return e.Msg
}
