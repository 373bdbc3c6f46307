package main

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/tbourn/go-complaints-backend/internal/http/middleware"
)

// runTokenCmd implements `server token`, which mints a bearer token signed
// with JWT_SECRET for local testing.
//
// Exit codes:
//
//	0 = token printed
//	2 = usage or signing error
func runTokenCmd(args []string, secret string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("token", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		user string
		role string
		ttl  time.Duration
	)
	cmd.StringVar(&user, "user", "", "User ID placed in the sub claim (REQUIRED)")
	cmd.StringVar(&role, "role", string(middleware.RoleUser), "user or admin")
	cmd.DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if secret == "" {
		_, _ = fmt.Fprintln(stderr, "Error: JWT_SECRET is not set")
		return 2
	}
	if user == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --user is required")
		return 2
	}
	r, ok := middleware.ParseRole(role)
	if !ok {
		_, _ = fmt.Fprintf(stderr, "Error: unknown role %q\n", role)
		return 2
	}
	if ttl <= 0 {
		_, _ = fmt.Fprintln(stderr, "Error: --ttl must be positive")
		return 2
	}

	tok, err := middleware.IssueToken([]byte(secret), user, r, ttl)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	_, _ = fmt.Fprintln(stdout, tok)
	return 0
}
