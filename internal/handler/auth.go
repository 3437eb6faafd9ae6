package handler

import (
	"net/http"
	"strings"
)

// RequireAPIKey gates a handler behind the Receiver's external API key,
// adapted from security/auth.py's require_api_key decorator: accepts
// either a bare key or an "Authorization: Bearer <key>" header.
func RequireAPIKey(expectedKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "API key missing"})
				return
			}

			apiKey := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			if apiKey != expectedKey {
				writeJSON(w, http.StatusForbidden, map[string]string{"error": "invalid API key"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
