package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/kubo-market/pix-charge-platform/internal/audit"
)

// Logging wraps an http.Handler with structured request logging, attaching
// a request-scoped zerolog logger that downstream handlers can pull via
// audit.FromContext.
func Logging(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, rid := audit.WithRequestID(r.Context(), base, r.Header.Get(audit.RequestIDHeader))
			w.Header().Set(audit.RequestIDHeader, rid)

			sw := &statusWriter{ResponseWriter: w, status: 200}
			next.ServeHTTP(sw, r.WithContext(ctx))

			audit.FromContext(ctx).Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sw.status).
				Dur("duration", time.Since(start)).
				Msg("request handled")
		})
	}
}

// Recovery recovers from panics and returns 500.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				audit.FromContext(r.Context()).Error().Interface("panic", err).Msg("recovered from panic")
				http.Error(w, fmt.Sprintf(`{"error":"internal server error"}"`), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
