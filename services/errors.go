// services/errors.go
package services

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies failures surfaced to callers of the session protocol.
type ErrorKind int

const (
	KindServerError ErrorKind = iota
	KindAuthenticationRequired
	KindNotFound
	KindForbidden
	KindBadRequest
	KindConflict
	KindRateLimited
)

// Machine-readable codes returned in the "error" field of responses.
const (
	CodeAuthenticationRequired = "authentication_required"
	CodeGatewayUnauthorized    = "gateway_unauthorized"
	CodeGameNotFound           = "game_not_found"
	CodeNotFound               = "not_found"
	CodeForbidden              = "forbidden"
	CodeBadRequest             = "bad_request"
	CodeInvalidDuration        = "invalid_duration"
	CodeInvalidScore           = "invalid_score"
	CodeInvalidScoreRate       = "invalid_score_rate"
	CodeClientOutdated         = "client_outdated"
	CodeConflict               = "conflict"
	CodeRateLimited            = "rate_limited"
	CodeServerError            = "server_error"
)

// ServiceError is the single error type the HTTP layer maps to a status.
type ServiceError struct {
	Kind       ErrorKind
	Code       string
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

func newError(kind ErrorKind, code, msg string) *ServiceError {
	return &ServiceError{Kind: kind, Code: code, Message: msg}
}

func errNotFound(code, msg string) *ServiceError   { return newError(KindNotFound, code, msg) }
func errBadRequest(code, msg string) *ServiceError { return newError(KindBadRequest, code, msg) }

func errForbidden(msg string) *ServiceError {
	return newError(KindForbidden, CodeForbidden, msg)
}

func errConflict(msg string) *ServiceError {
	return newError(KindConflict, CodeConflict, msg)
}

func errServer(msg string, err error) *ServiceError {
	return &ServiceError{Kind: KindServerError, Code: CodeServerError, Message: msg, Err: err}
}

// ErrRateLimited builds the error returned when a limiter rejects a request.
func ErrRateLimited(retryAfter time.Duration) *ServiceError {
	return &ServiceError{
		Kind:       KindRateLimited,
		Code:       CodeRateLimited,
		Message:    "too many requests",
		RetryAfter: retryAfter,
	}
}

// ErrAuthenticationRequired is returned when no user identity accompanies a request.
func ErrAuthenticationRequired() *ServiceError {
	return newError(KindAuthenticationRequired, CodeAuthenticationRequired, "user identity required")
}

// ErrGatewayUnauthorized is returned when a request does not carry the gateway's service token.
func ErrGatewayUnauthorized(msg string) *ServiceError {
	return newError(KindAuthenticationRequired, CodeGatewayUnauthorized, msg)
}

// ErrMalformedRequest wraps a request decoding/validation failure.
func ErrMalformedRequest(msg string) *ServiceError {
	return errBadRequest(CodeBadRequest, msg)
}

// ErrorCode returns the ServiceError code of err, or CodeServerError.
func ErrorCode(err error) string {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeServerError
}
