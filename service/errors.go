package service

import (
	"errors"
	"net/http"
)

// Kind classifies a service failure so the transport layer can pick a status
// code and decide whether a client may retry.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConfiguration
	KindTransport
	KindTimeout
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConfiguration:
		return "configuration"
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// StatusCode maps a kind to the HTTP status reported to callers.
func (k Kind) StatusCode() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether a client may try the same request again later.
func (k Kind) Retryable() bool {
	return k == KindTransport || k == KindTimeout
}

// Error is the error type returned by the form services.
type Error struct {
	Kind Kind
	Op   string
	// Msg is a caller-facing message used when there is no underlying cause
	// (validation) or as the headline for configuration errors.
	Msg string
	// Fields lists the offending request fields of a validation error.
	Fields []string
	Err    error
}

// Error returns the cause's text when there is one, so responses can surface
// the relay's own rejection message.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message returns the caller-facing message of err's *Error, or fallback.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return fallback
}

func validationError(op, msg string, fields ...string) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: msg, Fields: fields}
}

// StatusCode is the HTTP status for err.
func StatusCode(err error) int {
	return KindOf(err).StatusCode()
}
