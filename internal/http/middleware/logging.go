// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the correlation and recovery pieces of the logging chain.
// The router installs them as RequestID, RedactingLogger, Recovery so every
// log line and error envelope carries the request id.
package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// requestIDKey holds the correlation id in the Gin context.
	requestIDKey = "requestID"
	// requestIDHeader carries the correlation id in both directions.
	requestIDHeader = "X-Request-ID"
	// maxQueryLogLength caps the logged query string, in bytes.
	maxQueryLogLength = 2048
)

// RequestID assigns every request a correlation id.
//
// Behavior:
//   - A non-empty X-Request-ID from the client is kept as-is.
//   - Otherwise a UUIDv4 is generated.
//   - The id is stored in the Gin context (read it with RequestIDFrom) and
//     set on the response header before the handler runs, so it survives
//     aborts and panics.
//
// Install it first; the access logger, Recovery and the error envelopes
// all read the id it sets.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// RequestIDFrom returns the correlation id set by RequestID.
func RequestIDFrom(c *gin.Context) string {
	v, _ := c.Get(requestIDKey)
	return asString(v)
}

// Recovery converts a handler panic into a 500.
//
// Behavior:
//   - Logs the panic value and stack at error level with the request id.
//   - When nothing has been written yet, responds with the standard envelope:
//     { "request_id": "...", "code": "internal_error", "message": "internal server error" }
//     and echoes X-Request-ID.
//   - When the handler already started the response, only aborts with 500;
//     the partial body is left alone.
//
// Install it after RedactingLogger so the access line still records the
// 500 for a recovered request.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rid := RequestIDFrom(c)
			log.Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("request_id", rid).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.Header(requestIDHeader, rid)
			abortJSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger attached by RedactingLogger.
//
// The scoped logger carries request_id and path. Outside that
// middleware (tests, background work) a copy of the global logger is
// returned instead, so callers never need a nil check.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get("logger"); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// truncate caps s at n bytes, appending an ellipsis. n <= 0 disables it.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
