package domain

import (
	"errors"
	"fmt"
)

// Kind is the closed set of error categories surfaced to clients.
type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindConflict
	KindGone
	KindUpstream
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func WrapError(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf classifies any error; unknown errors count as upstream
// failures so handlers never leak internals as a 4xx.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}

// UserMessage is what a client sees. Upstream details stay in logs.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindUpstream {
		return e.Msg
	}
	return "something went wrong, please try again"
}
