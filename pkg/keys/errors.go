package keys

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched by the typed errors below via errors.Is.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrValidation    = errors.New("validation error")
	ErrTransport     = errors.New("transport error")
)

// ConfigurationError reports that a route could not be bound to an endpoint.
// It is returned while the client is being composed and is fatal to it.
type ConfigurationError struct {
	Route   string
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	msg := "configuration error"
	if e.Route != "" {
		msg += fmt.Sprintf(" for route %q", e.Route)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// ValidationError reports caller input rejected before any request was made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// TransportError is an opaque failure of the underlying HTTP call. It covers
// both network failures (Err set) and non-2xx responses (StatusCode set).
type TransportError struct {
	Route      string
	Method     string
	StatusCode int
	// Errors holds the messages from Vault's {"errors": [...]} envelope.
	Errors []string
	Err    error
}

func (e *TransportError) Error() string {
	msg := "transport error"
	if e.Method != "" || e.Route != "" {
		msg += fmt.Sprintf(" (%s %s)", e.Method, e.Route)
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": vault returned status %d", e.StatusCode)
		if len(e.Errors) > 0 {
			msg += ": " + strings.Join(e.Errors, "; ")
		}
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }
