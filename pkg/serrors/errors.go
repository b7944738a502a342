package serrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindNotFound           Kind = "NOT_FOUND"
	KindInvalidState       Kind = "INVALID_STATE"
	KindPreconditionFailed Kind = "PRECONDITION_FAILED"
	KindConflict           Kind = "CONFLICT"
	KindUpstreamFailure    Kind = "UPSTREAM_FAILURE"
	KindExhausted          Kind = "EXHAUSTED"
)

// Status is the HTTP status a kind is rendered with.
func (k Kind) Status() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidState:
		return http.StatusBadRequest
	case KindPreconditionFailed:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	case KindUpstreamFailure:
		return http.StatusFailedDependency
	case KindExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ServiceError is returned by services for every caller-visible failure.
type ServiceError struct {
	Kind    Kind
	Status  int
	Code    string
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *ServiceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches sentinels of the same kind, so errors.Is(err, serrors.ErrNotFound) works
// for every not-found error regardless of its code.
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	if !ok || e == nil {
		return false
	}
	if t.Code != "" && t.Code != e.Code {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNotFound           = &ServiceError{Kind: KindNotFound}
	ErrInvalidState       = &ServiceError{Kind: KindInvalidState}
	ErrPreconditionFailed = &ServiceError{Kind: KindPreconditionFailed}
	ErrConflict           = &ServiceError{Kind: KindConflict}
	ErrUpstreamFailure    = &ServiceError{Kind: KindUpstreamFailure}
	ErrExhausted          = &ServiceError{Kind: KindExhausted}
)

func New(kind Kind, code, message string, cause error) *ServiceError {
	return &ServiceError{
		Kind:    kind,
		Status:  kind.Status(),
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func NotFound(code, entity string, id fmt.Stringer) *ServiceError {
	return New(KindNotFound, code, fmt.Sprintf("%s %s not found", entity, id), nil)
}

// InvalidState names both the status the operation requires and the one it found.
func InvalidState(code, entity string, id fmt.Stringer, required, actual string) *ServiceError {
	return New(KindInvalidState, code, fmt.Sprintf("%s %s must be %s, got %s", entity, id, required, actual), nil)
}

func PreconditionFailed(code, message string) *ServiceError {
	return New(KindPreconditionFailed, code, message, nil)
}

func Conflict(code, message string, cause error) *ServiceError {
	return New(KindConflict, code, message, cause)
}

func Upstream(code, message string, cause error) *ServiceError {
	return New(KindUpstreamFailure, code, message, cause)
}

func Exhausted(code, message string) *ServiceError {
	return New(KindExhausted, code, message, nil)
}

// KindOf returns the kind of the first ServiceError in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return ""
}
