package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies HTTP client errors.
type ErrorCode int

const (
	ErrCodeTimeout ErrorCode = iota
	ErrCodeConnection
	// ErrCodeAuth covers 401 and 403; for the chat APIs this usually means
	// the access token was revoked or lacks a scope.
	ErrCodeAuth
	ErrCodeNotFound
	ErrCodeRateLimit
	ErrCodeValidation
	ErrCodeServer
)

var codeNames = map[ErrorCode]string{
	ErrCodeTimeout:    "timeout",
	ErrCodeConnection: "connection",
	ErrCodeAuth:       "auth",
	ErrCodeNotFound:   "not_found",
	ErrCodeRateLimit:  "rate_limit",
	ErrCodeValidation: "validation",
	ErrCodeServer:     "server",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "unknown"
}

// Error is a classified failure of a provider API call.
type Error struct {
	// StatusCode is zero for transport-level failures.
	StatusCode int
	Code       ErrorCode
	Message    string
	Retryable  bool
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("httpclient: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("httpclient: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) withCause(err error) *Error {
	e.Err = err
	e.Message = err.Error()
	return e
}

func transportError(code ErrorCode, err error) *Error {
	return &Error{Code: code, Message: err.Error(), Retryable: true, Err: err}
}

func statusError(code ErrorCode, status int, body []byte, retryable bool) *Error {
	return &Error{
		StatusCode: status,
		Code:       code,
		Message:    http.StatusText(status),
		Retryable:  retryable,
		Body:       body,
	}
}

// NewTimeoutError wraps a transport timeout.
func NewTimeoutError(err error) *Error { return transportError(ErrCodeTimeout, err) }

// NewConnectionError wraps a dial or read failure.
func NewConnectionError(err error) *Error { return transportError(ErrCodeConnection, err) }

// NewAuthError is returned for 401/403 responses and token source failures.
func NewAuthError(status int, body []byte) *Error {
	return statusError(ErrCodeAuth, status, body, false)
}

// NewNotFoundError is returned for 404 responses.
func NewNotFoundError(body []byte) *Error {
	return statusError(ErrCodeNotFound, http.StatusNotFound, body, false)
}

// NewValidationError reports a request that could not be built.
func NewValidationError(msg string) *Error {
	return &Error{Code: ErrCodeValidation, Message: msg}
}

// NewServerError is returned for 5xx responses.
func NewServerError(status int, body []byte) *Error {
	return statusError(ErrCodeServer, status, body, true)
}

// ClassifyStatusCode maps a response status to an *Error, nil for 2xx.
func ClassifyStatusCode(status int, body []byte) *Error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewAuthError(status, body)
	case status == http.StatusNotFound:
		return NewNotFoundError(body)
	case status == http.StatusTooManyRequests:
		return statusError(ErrCodeRateLimit, status, body, true)
	case status >= 400 && status < 500:
		return statusError(ErrCodeValidation, status, body, false)
	case status >= 500:
		return NewServerError(status, body)
	default:
		return statusError(ErrCodeServer, status, body, false)
	}
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

func IsTimeout(err error) bool     { return hasCode(err, ErrCodeTimeout) }
func IsConnection(err error) bool  { return hasCode(err, ErrCodeConnection) }
func IsAuth(err error) bool        { return hasCode(err, ErrCodeAuth) }
func IsNotFound(err error) bool    { return hasCode(err, ErrCodeNotFound) }
func IsRateLimit(err error) bool   { return hasCode(err, ErrCodeRateLimit) }
func IsServerError(err error) bool { return hasCode(err, ErrCodeServer) }

// IsRetryable reports whether a request failing with err may be sent again.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}
