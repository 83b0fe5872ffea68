package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a rejection so clients can tell failures apart without parsing messages.
type Kind string

const (
	KindUnauthorized         Kind = "Unauthorized"
	KindInvalidRole          Kind = "InvalidRole"
	KindWorkflowGateDenied   Kind = "WorkflowGateDenied"
	KindNoPendingSession     Kind = "NoPendingSession"
	KindInvalidOrExpiredCode Kind = "InvalidOrExpiredCode"
	KindNotFound             Kind = "NotFound"
	KindConflict             Kind = "Conflict"
	KindInvalid              Kind = "Invalid"
)

// Error is a terminal, caller-facing rejection.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return string(e.Kind)
	}
	return e.Reason
}

// Is matches any *Error with the same Kind, so errors.Is(err, apperr.ErrNotFound) works
// regardless of the reason text.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrUnauthorized         = &Error{Kind: KindUnauthorized}
	ErrInvalidRole          = &Error{Kind: KindInvalidRole}
	ErrWorkflowGateDenied   = &Error{Kind: KindWorkflowGateDenied}
	ErrNoPendingSession     = &Error{Kind: KindNoPendingSession}
	ErrInvalidOrExpiredCode = &Error{Kind: KindInvalidOrExpiredCode}
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrConflict             = &Error{Kind: KindConflict}
	ErrInvalid              = &Error{Kind: KindInvalid}
)

// New builds an Error of the given kind with a formatted reason.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind carried by err, or "" for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// HTTPStatus maps a Kind to the status code handlers respond with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindUnauthorized, KindInvalidRole, KindWorkflowGateDenied:
		return http.StatusForbidden
	case KindNoPendingSession, KindInvalidOrExpiredCode:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
