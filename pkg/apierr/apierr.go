// Package apierr defines the error taxonomy shared across Orbit's Store,
// Business Manager and Control Plane API. Callers deep in the stack
// return a wrapped sentinel; the API boundary is the only place that
// translates an error into an HTTP status and message.
package apierr

import (
	"errors"
	"fmt"
)

// Sentinel errors. Wrap with fmt.Errorf("...: %w", ErrX) and unwrap with
// errors.Is at the API boundary.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrTransient  = errors.New("transient transport error")
	ErrExecution  = errors.New("execution error")
)

// NotFound wraps ErrNotFound with the entity kind and ID that could not
// be located.
func NotFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// Validation wraps ErrValidation with a human-readable reason.
func Validation(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrValidation)
}

// Conflict wraps ErrConflict with a human-readable reason.
func Conflict(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrConflict)
}

// Transient marks err as a transient transport failure, keeping its
// message in the chain.
func Transient(err error) error {
	return fmt.Errorf("%v: %w", err, ErrTransient)
}

// Execution marks err as a workload execution failure (image pull,
// binary download, start), keeping its message in the chain.
func Execution(err error) error {
	return fmt.Errorf("%v: %w", err, ErrExecution)
}

// StatusCode maps an apierr sentinel to the HTTP status the Control Plane
// API should respond with. Unrecognized errors map to 500.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return 404
	case errors.Is(err, ErrValidation):
		return 400
	case errors.Is(err, ErrConflict):
		return 409
	case errors.Is(err, ErrTransient):
		return 502
	default:
		return 500
	}
}
