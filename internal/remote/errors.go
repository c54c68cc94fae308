package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Kind is the failure class of a remote call.
type Kind string

const (
	RateLimited        Kind = "rate_limited"
	ServiceOverloaded  Kind = "service_overloaded"
	InvalidCredentials Kind = "invalid_credentials"
	TimedOut           Kind = "timed_out"
	Unknown            Kind = "unknown"
)

// ErrEmptyResponse marks a reply that was blank after trimming.
var ErrEmptyResponse = errors.New("empty response from remote service")

// StatusError is returned by adapters that know the HTTP status of a failed call.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// CallError is the terminal failure after every attempt has been used.
type CallError struct {
	Purpose  string
	Kind     Kind
	Attempts int
	Err      error
}

func (e *CallError) Error() string {
	return Message(e.Kind, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// Message is the human-readable text for a failure kind.
func Message(kind Kind, cause error) string {
	switch kind {
	case RateLimited:
		return "API limit exceeded. Your daily quota may be exhausted. Try again later or upgrade your plan."
	case ServiceOverloaded:
		return "The model is currently overloaded. Please try again in a few minutes."
	case InvalidCredentials:
		return "Invalid API key. Please check the service credentials."
	case TimedOut:
		return "The request timed out. Please try again."
	}
	if cause == nil {
		return "Remote service error"
	}
	return "Remote service error: " + cause.Error()
}

// KindOf returns the kind carried by a CallError, or classifies err directly.
func KindOf(err error) Kind {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return Classify(err)
}

// Classify inspects status codes first and falls back to message markers.
func Classify(err error) Kind {
	if err == nil {
		return Unknown
	}

	var se *StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusTooManyRequests:
			return RateLimited
		case http.StatusServiceUnavailable, http.StatusBadGateway:
			return ServiceOverloaded
		case http.StatusUnauthorized, http.StatusForbidden:
			return InvalidCredentials
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return TimedOut
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return TimedOut
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return TimedOut
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "429", "resource_exhausted", "quota", "rate limit", "too many requests"):
		return RateLimited
	case containsAny(msg, "503", "overloaded", "unavailable"):
		return ServiceOverloaded
	case containsAny(msg, "invalid", "api_key", "api key", "unauthorized", "permission_denied"):
		return InvalidCredentials
	case containsAny(msg, "timeout", "timed out", "deadline exceeded"):
		return TimedOut
	}
	return Unknown
}

func containsAny(s string, markers ...string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
