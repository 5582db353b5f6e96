package casting

import "connectrpc.com/connect"

// Error is a domain error carrying the Connect code it maps to.
type Error struct {
	msg  string
	code connect.Code
}

func (e *Error) Error() string { return e.msg }

// ConnectCode implements errors.ConnectCoder.
func (e *Error) ConnectCode() connect.Code { return e.code }

var (
	// ErrNotFound is returned when an actor, movie or performance does not exist.
	ErrNotFound = &Error{msg: "resource not found", code: connect.CodeNotFound}

	// ErrInvalid is returned for input that fails domain validation.
	ErrInvalid = &Error{msg: "invalid input", code: connect.CodeInvalidArgument}

	// ErrPageOutOfRange is returned when a page beyond the last one is requested.
	ErrPageOutOfRange = &Error{msg: "page out of range", code: connect.CodeNotFound}
)
