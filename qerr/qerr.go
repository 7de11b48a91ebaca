// Package qerr carries the library's single error value: a kind discriminant
// plus a short context string, wrapping the underlying cause when there is
// one.
package qerr

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
)

// Kind classifies an Error.
type Kind int

// Recognised error kinds.
const (
	// KindSerialization is a JSON encode/decode failure.
	KindSerialization Kind = iota + 1
	// KindIO is a network or websocket stream failure.
	KindIO
	// KindHTTP is a transport-level HTTP failure.
	KindHTTP
	// KindAPIFail is a structured failure envelope from the platform.
	KindAPIFail
	// KindAuditTimeout means an audit hook expired before pass/reject arrived.
	KindAuditTimeout
	// KindStateConflict means a connection operation ran in the wrong state.
	KindStateConflict
	// KindAuthFailed means the gateway rejected Identify or Resume.
	KindAuthFailed
	// KindMissingHello means the first gateway frame was not Hello.
	KindMissingHello
	// KindCannotReconnect means the supervisor has no path back to Connected.
	KindCannotReconnect
	// KindWSClosed means the websocket closed under us.
	KindWSClosed
	// KindUnexpected is an invariant violation.
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindSerialization:
		return "serialization"
	case KindIO:
		return "io"
	case KindHTTP:
		return "http"
	case KindAPIFail:
		return "api fail"
	case KindAuditTimeout:
		return "audit timeout"
	case KindStateConflict:
		return "state conflict"
	case KindAuthFailed:
		return "auth failed"
	case KindMissingHello:
		return "missing hello"
	case KindCannotReconnect:
		return "cannot reconnect"
	case KindWSClosed:
		return "websocket closed"
	case KindUnexpected:
		return "unexpected"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the library's error value.
type Error struct {
	Kind    Kind
	Context string
	Err     error

	// Populated for KindAPIFail.
	Code    uint32
	Message string
	Data    json.RawMessage

	// Populated for KindStateConflict.
	Current  string
	Expected string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindAPIFail:
		return fmt.Sprintf("%s: %s: [%d] %s", e.Context, e.Kind, e.Code, e.Message)
	case KindStateConflict:
		return fmt.Sprintf("%s: %s: in state %s, expected %s", e.Context, e.Kind, e.Current, e.Expected)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Context, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Context, e.Kind)
}

// Unwrap exposes the cause for errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.Err }

// Is matches two qerr errors by kind, so sentinel comparisons like
// errors.Is(err, &Error{Kind: KindAuditTimeout}) work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// New builds an Error with a kind and context.
func New(kind Kind, context string) *Error {
	return &Error{Kind: kind, Context: context}
}

// Wrap builds an Error around a cause.
func Wrap(kind Kind, context string, err error) *Error {
	return &Error{Kind: kind, Context: context, Err: err}
}

// APIFail builds a KindAPIFail error from a platform failure envelope.
func APIFail(context string, code uint32, message string, data json.RawMessage) *Error {
	return &Error{Kind: KindAPIFail, Context: context, Code: code, Message: message, Data: data}
}

// StateConflict builds a KindStateConflict error.
func StateConflict(context, current, expected string) *Error {
	return &Error{Kind: KindStateConflict, Context: context, Current: current, Expected: expected}
}

// Unexpected builds a KindUnexpected error.
func Unexpected(context string) *Error {
	return New(KindUnexpected, context)
}

// KindOf extracts the Kind from err, or 0 when err is not a qerr Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsKind reports whether err is a qerr Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
