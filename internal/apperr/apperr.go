// Package apperr defines the error taxonomy shared across the room
// coordination engine: validation, not-found, reservation, phase,
// rate-limit, conflict, and internal errors. Handlers map a Kind
// directly onto an outbound error frame or HTTP status.
package apperr

import "errors"

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindReservation
	KindPhase
	KindRateLimit
	KindConflict
)

// Error wraps a message with a Kind so callers can switch on it without
// string matching.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind of err, defaulting to KindInternal for
// errors that were never tagged.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Validation(msg string) error { return New(KindValidation, msg) }
func NotFound(msg string) error   { return New(KindNotFound, msg) }
func Reservation(msg string) error { return New(KindReservation, msg) }
func Phase(msg string) error      { return New(KindPhase, msg) }
func Conflict(msg string) error   { return New(KindConflict, msg) }
func Internal(msg string, err error) error { return Wrap(KindInternal, msg, err) }
