// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the caller identity. With a JWT secret configured the
// identity comes from an HS256 bearer token; without one the demo headers
// X-User-ID and X-User-Role are trusted as-is. Websocket handshakes may pass
// the token as the access_token query parameter. Downstream code reads the
// result through UserID and IsAdmin and passes it to the services as
// explicit arguments.
package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Demo identity headers, honoured only when no JWT secret is configured.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

const (
	ctxKeyUserID = "userID"
	ctxKeyRole   = "role"
)

// Role is the caller's access level.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps a raw role claim or header to a Role. Empty means user.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(RoleUser):
		return RoleUser, true
	case string(RoleAdmin):
		return RoleAdmin, true
	}
	return "", false
}

// Claims is the token payload. The subject may be carried either in the
// registered "sub" claim or in "user_id".
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) subject() string {
	if s := strings.TrimSpace(c.UserID); s != "" {
		return s
	}
	return strings.TrimSpace(c.Subject)
}

var errNoIdentity = errors.New("missing identity")

// IssueToken signs an HS256 token for userID with the given role.
func IssueToken(secret []byte, userID string, role Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Auth resolves the caller identity and stores it in the Gin context.
// Requests without a usable identity are rejected with 401.
func Auth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			uid  string
			role Role
			err  error
		)
		if len(secret) > 0 {
			hdr := c.GetHeader("Authorization")
			if hdr == "" && isWebsocket(c.Request) {
				// Browsers cannot set headers on a websocket handshake.
				if tok := c.Query("access_token"); tok != "" {
					hdr = "Bearer " + tok
				}
			}
			uid, role, err = fromBearer(hdr, secret)
		} else {
			uid, role, err = fromHeaders(c)
		}
		if err != nil {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}
		c.Set(ctxKeyUserID, uid)
		c.Set(ctxKeyRole, role)
		c.Next()
	}
}

// AdminOnly rejects non-admin callers with 403. Install after Auth.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			abortJSON(c, http.StatusForbidden, "forbidden", "admin role required")
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated caller id, or "" when Auth did not run.
func UserID(c *gin.Context) string {
	return userIDFromCtx(c)
}

// IsAdmin reports whether the authenticated caller holds the admin role.
func IsAdmin(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRole)
	if !ok {
		return false
	}
	r, _ := v.(Role)
	return r == RoleAdmin
}

func fromBearer(header string, secret []byte) (string, Role, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return "", "", errors.New("authorization header required (Bearer <token>)")
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return "", "", errors.New("invalid or expired token")
	}
	uid := claims.subject()
	if uid == "" {
		return "", "", errNoIdentity
	}
	role, ok := ParseRole(claims.Role)
	if !ok {
		return "", "", errors.New("unknown role")
	}
	return uid, role, nil
}

func isWebsocket(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

func fromHeaders(c *gin.Context) (string, Role, error) {
	uid := strings.TrimSpace(c.GetHeader(HeaderUserID))
	if uid == "" {
		return "", "", errNoIdentity
	}
	role, ok := ParseRole(c.GetHeader(HeaderUserRole))
	if !ok {
		return "", "", errors.New("unknown role")
	}
	return uid, role, nil
}

// abortJSON writes the standard error envelope and stops the chain.
func abortJSON(c *gin.Context, status int, code, msg string) {
	rid, _ := c.Get(requestIDKey)
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": asString(rid),
		"code":       code,
		"message":    msg,
	})
}
