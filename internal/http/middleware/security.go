// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file adds response hardening headers for the JSON API. HSTS is
// opt-in and only sent on HTTPS requests. No CSP is set since the service
// serves no HTML apart from the optional Swagger UI.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityOptions configures SecurityHeaders.
type SecurityOptions struct {
	EnableHSTS   bool          // only when traffic is HTTPS end-to-end
	HSTSMaxAge   time.Duration // defaults to 180 days when <= 0
	NoStore      bool          // Cache-Control: no-store plus legacy Pragma/Expires
	EnablePolicy bool          // Permissions-Policy and X-Permitted-Cross-Domain-Policies
}

// SecurityHeaders adds response hardening headers to every request.
//
// Behavior:
//   - Always:
//     X-Content-Type-Options: nosniff
//     X-Frame-Options: DENY
//     Referrer-Policy: no-referrer
//   - With EnablePolicy:
//     Permissions-Policy: geolocation=(), microphone=(), camera=(), payment=()
//     X-Permitted-Cross-Domain-Policies: none
//   - With NoStore:
//     Cache-Control: no-store, plus Pragma: no-cache and Expires: 0 for old
//     proxies. Leave it off where list ETags should be revalidated by caches.
//   - With EnableHSTS, on HTTPS requests only (TLS or X-Forwarded-Proto):
//     Strict-Transport-Security: max-age=<HSTSMaxAge>; includeSubDomains; preload
//   - When RequestID already ran, X-Request-ID is appended once to
//     Access-Control-Expose-Headers so browser clients can quote it.
//
// Headers are set before the handler runs, so they also appear on error
// envelopes and 304 responses.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int(opt.HSTSMaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int((180 * 24 * time.Hour).Seconds())
	}
	hsts := "max-age=" + strconv.Itoa(maxAge) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}
		if opt.NoStore {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}

		if h.Get(requestIDHeader) != "" {
			h.Set(exposeHeaders, appendToken(h.Get(exposeHeaders), requestIDHeader))
		}

		c.Next()
	}
}

const exposeHeaders = "Access-Control-Expose-Headers"

// appendToken adds tok to a comma-separated header value unless it is
// already listed.
func appendToken(list, tok string) string {
	if list == "" {
		return tok
	}
	for _, p := range strings.Split(list, ",") {
		if strings.EqualFold(strings.TrimSpace(p), tok) {
			return list
		}
	}
	return list + ", " + tok
}

// isHTTPS reports whether the request arrived over TLS, directly or through
// a proxy that set X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
