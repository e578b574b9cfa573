// Package errs holds the two error kinds raised by the scripting core.
//
// InvalidState means an operation was attempted against storage or a mapping in
// an illegal state (double map, destroy of a destroyed object, handle overflow).
// InvalidParameters means the caller supplied data that is malformed or refers
// to something that does not exist (unknown symbol, class or waypoint).
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidState      = errors.New("invalid state")
	ErrInvalidParameters = errors.New("invalid parameters")
)

// Error carries one of the sentinel kinds plus a message.
type Error struct {
	Kind    error
	Message string
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is lets errors.Is match the sentinel kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func InvalidState(format string, args ...any) error {
	return &Error{Kind: ErrInvalidState, Message: fmt.Sprintf(format, args...)}
}

func InvalidParameters(format string, args ...any) error {
	return &Error{Kind: ErrInvalidParameters, Message: fmt.Sprintf(format, args...)}
}
