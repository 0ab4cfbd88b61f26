// Package middleware provides HTTP middleware for the ingest API.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/vingest/vingest/pkg/api/handlers"
)

// extractBearerToken extracts the token from a Bearer Authorization header.
// Returns the token string and true if successful, or empty string and false if not.
func extractBearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	return parts[1], true
}

// BearerAuth is a middleware that checks the Bearer token in the Authorization
// header against a static allowlist. Requests with a missing, malformed, or
// unknown token are rejected with 401 before the body is read.
//
// Tokens are compared in constant time.
func BearerAuth(tokens []string) func(http.Handler) http.Handler {
	allowed := make([][]byte, len(tokens))
	for i, t := range tokens {
		allowed[i] = []byte(t)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := extractBearerToken(r)
			if !ok {
				handlers.Unauthorized(w)
				return
			}

			candidate := []byte(token)
			for _, want := range allowed {
				if subtle.ConstantTimeCompare(candidate, want) == 1 {
					next.ServeHTTP(w, r)
					return
				}
			}

			handlers.Unauthorized(w)
		})
	}
}
