package domain

import (
	"fmt"
	"time"
)

// ErrorKind clasifica los errores del núcleo; la capa HTTP lo traduce a status.
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindNotFound    ErrorKind = "not_found"
	KindConflict    ErrorKind = "conflict"
	KindAuth        ErrorKind = "auth"
	KindInternal    ErrorKind = "internal"
	KindUnavailable ErrorKind = "unavailable"
)

// Error es el error tipado que devuelven los servicios.
// errors.Is compara por Code cuando el objetivo lo define y por Kind en otro caso.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
	// RetryAfter es la espera sugerida antes de reintentar; cero si no aplica.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != "" {
		return e.Code == t.Code
	}
	return e.Kind == t.Kind
}

// With devuelve una copia del error con la causa adjunta.
func (e *Error) With(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

// Withf devuelve una copia del error con un mensaje más específico.
func (e *Error) Withf(format string, args ...any) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// WithRetryAfter devuelve una copia del error con la espera sugerida.
func (e *Error) WithRetryAfter(d time.Duration) *Error {
	cp := *e
	cp.RetryAfter = d
	return &cp
}

// Sentinels por categoría.
var (
	ErrValidation  = &Error{Kind: KindValidation}
	ErrNotFound    = &Error{Kind: KindNotFound}
	ErrConflict    = &Error{Kind: KindConflict}
	ErrAuth        = &Error{Kind: KindAuth}
	ErrInternal    = &Error{Kind: KindInternal}
	ErrUnavailable = &Error{Kind: KindUnavailable}
)

// Fallos concretos.
var (
	ErrInvalidInput       = &Error{Kind: KindValidation, Code: "invalid_input", Message: "invalid input"}
	ErrInvalidOperation   = &Error{Kind: KindValidation, Code: "invalid_operation", Message: "invalid operation"}
	ErrSelfSubscription   = &Error{Kind: KindConflict, Code: "invalid_operation", Message: "cannot subscribe to own channel"}
	ErrRateLimited        = &Error{Kind: KindValidation, Code: "rate_limited", Message: "too many requests"}
	ErrTargetNotFound     = &Error{Kind: KindNotFound, Code: "target_not_found", Message: "target not found"}
	ErrUserNotFound       = &Error{Kind: KindNotFound, Code: "user_not_found", Message: "user not found"}
	ErrToggleConflict     = &Error{Kind: KindConflict, Code: "toggle_conflict", Message: "concurrent toggle not resolved"}
	ErrExpiredToken       = &Error{Kind: KindAuth, Code: "expired_token", Message: "token expired"}
	ErrMalformedToken     = &Error{Kind: KindAuth, Code: "malformed_token", Message: "token malformed"}
	ErrSignatureMismatch  = &Error{Kind: KindAuth, Code: "signature_mismatch", Message: "token signature mismatch"}
	ErrTokenReuse         = &Error{Kind: KindAuth, Code: "token_reuse_detected", Message: "refresh token reuse detected"}
	ErrBadCredentials     = &Error{Kind: KindAuth, Code: "invalid_credentials", Message: "invalid credentials"}
	ErrStore              = &Error{Kind: KindInternal, Code: "store_failure", Message: "store failure"}
	ErrAggregationTimeout = &Error{Kind: KindUnavailable, Code: "aggregation_timeout", Message: "aggregation timed out"}
)
