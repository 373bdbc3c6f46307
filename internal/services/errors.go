// Package services defines the complaint lifecycle and triage use-cases.
// This file centralizes the service-level error values so that they can be
// consistently returned by service methods and checked by callers with
// errors.Is.
//
// Services wrap these sentinels with context and never log or retry;
// translation into user-facing messages and HTTP status codes is performed at
// the handler layer.
package services

import "errors"

var (
	// ErrValidation is returned for malformed input: blank text or submitter,
	// text over the configured limit, or an unknown enum value.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTransition is returned when the complaint is already Resolved
	// or the target status is not a legal transition target.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNotFound indicates that the referenced complaint does not exist.
	ErrNotFound = errors.New("complaint not found")

	// ErrGatewayFailure is returned when classification fails or yields a
	// label outside the category set. Nothing is persisted.
	ErrGatewayFailure = errors.New("classification failed")

	// ErrTransport wraps store connectivity failures. Callers may retry.
	ErrTransport = errors.New("store unavailable")

	// ErrForbidden is returned when a viewer requests a complaint they do not
	// own and is not an admin.
	ErrForbidden = errors.New("forbidden")
)
