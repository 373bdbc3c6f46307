package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tbourn/go-complaints-backend/internal/http/middleware"
)

func TestRunTokenCmd_MintsVerifiableToken(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := runTokenCmd([]string{"-user", "admin-1", "-role", "admin", "-ttl", "5m"}, "s3cret", &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit=%d stderr=%s", code, stderr.String())
	}

	claims := &middleware.Claims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(stdout.String()), claims,
		func(*jwt.Token) (any, error) { return []byte("s3cret"), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "admin-1" || claims.Role != string(middleware.RoleAdmin) {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestRunTokenCmd_Usage(t *testing.T) {
	cases := []struct {
		name   string
		args   []string
		secret string
		want   string
	}{
		{"no secret", []string{"-user", "u1"}, "", "JWT_SECRET"},
		{"no user", nil, "s", "--user"},
		{"bad role", []string{"-user", "u1", "-role", "root"}, "s", "unknown role"},
		{"bad ttl", []string{"-user", "u1", "-ttl", "0s"}, "s", "--ttl"},
		{"bad flag", []string{"-nope"}, "s", "nope"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := runTokenCmd(tc.args, tc.secret, &stdout, &stderr); code != 2 {
				t.Fatalf("exit=%d; want 2", code)
			}
			if stdout.Len() != 0 || !strings.Contains(stderr.String(), tc.want) {
				t.Fatalf("stdout=%q stderr=%q", stdout.String(), stderr.String())
			}
		})
	}
}
