package types

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Match them with errors.Is.
var (
	ErrMissingInput           = errors.New("missing input")
	ErrInvalidHostID          = errors.New("invalid host id")
	ErrInvalidHostTag         = errors.New("invalid host tag")
	ErrInvalidToken           = errors.New("invalid token")
	ErrFileNotFound           = errors.New("file not found")
	ErrIsADirectory           = errors.New("is a directory")
	ErrIsAbsolute             = errors.New("is absolute")
	ErrNotLocal               = errors.New("not local")
	ErrCommandExecutionFailed = errors.New("command execution failed")
	ErrOther                  = errors.New("other")
)

// Error is the typed failure returned by validation, inventory loading and
// task preparation.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Kind.Error()
	if e.Msg != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Is reports whether target is the kind of e or matches the wrapped cause.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an *Error of the given kind.
func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrapf builds an *Error of the given kind around cause.
func Wrapf(kind error, cause error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}
