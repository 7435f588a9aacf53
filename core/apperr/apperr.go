// Package apperr separates errors a chat user can act on from system failures.
//
// Handlers and parsers return plain Go errors. The router inspects them once:
// anything satisfying UserFacing is replied verbatim, everything else is a
// system error that the user never sees.
package apperr

import (
	"errors"
	"fmt"
)

// ErrNotFound marks lookups that matched no row.
var ErrNotFound = errors.New("not found")

// UserFacing is implemented by errors whose message is safe to show in chat.
type UserFacing interface {
	error
	UserMessage() string
}

// UserError is a validation failure caused by user input.
type UserError struct {
	msg string
	err error
}

// User returns a user-facing error with the given chat text.
func User(msg string) error {
	return &UserError{msg: msg}
}

// Userf formats a user-facing error.
func Userf(format string, args ...any) error {
	return &UserError{msg: fmt.Sprintf(format, args...)}
}

// WrapUser attaches chat text to an underlying cause.
func WrapUser(msg string, cause error) error {
	return &UserError{msg: msg, err: cause}
}

func (e *UserError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

// UserMessage returns the text shown to the user.
func (e *UserError) UserMessage() string { return e.msg }

// ErrorCode identifies the error class in handler summaries.
func (e *UserError) ErrorCode() string { return "user_input" }

func (e *UserError) Unwrap() error { return e.err }

// UserMessage reports the chat text for user-facing errors anywhere in the chain.
// An empty UserMessage marks the error as a system failure.
func UserMessage(err error) (string, bool) {
	var uf UserFacing
	if errors.As(err, &uf) {
		if msg := uf.UserMessage(); msg != "" {
			return msg, true
		}
	}
	return "", false
}

// IsUser reports whether err should be surfaced to the user verbatim.
func IsUser(err error) bool {
	_, ok := UserMessage(err)
	return ok
}
