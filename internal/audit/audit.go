// Package audit provides structured request-scoped logging, adapted from
// the original audit/logger.py and audit/request_context.py: every log line
// carries the request's X-Request-Id so a single request can be traced
// across the pipeline, here done with zerolog's context logger instead of
// a LoggerAdapter plus a Flask g-object.
package audit

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RequestIDHeader is the header carrying (or receiving) the request id.
const RequestIDHeader = "X-Request-Id"

type ctxKey struct{}

// NewLogger builds the base audit logger, writing structured JSON to stdout.
func NewLogger(service string) zerolog.Logger {
	return zerolog.New(os.Stdout).With().Timestamp().Str("service", service).Logger()
}

// WithRequestID returns a context carrying a logger bound to requestID, and
// the requestID itself (generated via uuid if incoming was empty, mirroring
// init_request_id's fallback to a fresh uuid4).
func WithRequestID(ctx context.Context, base zerolog.Logger, incoming string) (context.Context, string) {
	rid := incoming
	if rid == "" {
		rid = uuid.NewString()
	}
	logger := base.With().Str("request_id", rid).Logger()
	return context.WithValue(ctx, ctxKey{}, logger), rid
}

// FromContext returns the request-scoped logger, or a disabled logger if
// none was attached (mirroring get_request_id's "unknown" fallback).
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}
