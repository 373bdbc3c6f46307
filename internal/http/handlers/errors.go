// Package handlers defines the HTTP error codes used across all API endpoints
// and the mapping from service errors onto them.
//
// Codes are lowercase snake_case and stable; clients branch on them rather
// than on messages. Every error response carries both an HTTP status and one
// of these codes.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "invalid_transition",
//	  "message": "invalid status transition: complaint 7 is Resolved"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-complaints-backend/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"

	// Domain-specific:
	ErrCodeInvalidTransition = "invalid_transition"
	ErrCodeGatewayFailure    = "gateway_failure"
	ErrCodeTransportFailure  = "transport_failure"
)

// retryAfterSeconds is advertised on transport failures.
const retryAfterSeconds = "1"

// serviceError translates a service error into the matching HTTP response.
// Transport failures are retryable and carry Retry-After.
func serviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidTransition):
		fail(c, http.StatusConflict, ErrCodeInvalidTransition, err.Error())
	case errors.Is(err, services.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "complaint not found")
	case errors.Is(err, services.ErrForbidden):
		fail(c, http.StatusForbidden, ErrCodeForbidden, "not your complaint")
	case errors.Is(err, services.ErrGatewayFailure):
		fail(c, http.StatusBadGateway, ErrCodeGatewayFailure, "could not classify complaint")
	case errors.Is(err, services.ErrTransport):
		c.Header("Retry-After", retryAfterSeconds)
		fail(c, http.StatusServiceUnavailable, ErrCodeTransportFailure, "complaint store unavailable, retry later")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
	if c.Writer.Status() >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
}
