package handler

import (
	"context"
	"net/http"

	"github.com/kubo-market/pix-charge-platform/internal/monitor"
)

// Pinger checks connectivity to the Postgres charge store (C4).
type Pinger interface {
	Ping() error
}

// RedisPinger checks connectivity to the Redis instance backing the
// idempotency store (C2) and expiration oracle (C3) — the webhook pipeline
// cannot ingest a single event without it, so it is reported alongside the
// charge store rather than folded into a generic "database" check.
type RedisPinger func(ctx context.Context) error

// HealthHandler handles health check and metrics endpoints.
type HealthHandler struct {
	charges Pinger
	redis   RedisPinger
	metrics *monitor.Metrics
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(charges Pinger, redis RedisPinger, metrics *monitor.Metrics) *HealthHandler {
	return &HealthHandler{charges: charges, redis: redis, metrics: metrics}
}

// Health handles GET /health, reporting both collaborators the webhook
// pipeline depends on: the charge store (C4) and the Redis instance backing
// C2/C3.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	chargeStoreOK := h.charges.Ping() == nil
	redisOK := h.redis(r.Context()) == nil

	status := "healthy"
	code := http.StatusOK
	if !chargeStoreOK || !redisOK {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]string{
		"status":       status,
		"charge_store": connState(chargeStoreOK),
		"redis":        connState(redisOK),
	})
}

func connState(ok bool) string {
	if ok {
		return "connected"
	}
	return "disconnected"
}

// Metrics handles GET /v1/metrics
func (h *HealthHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, h.metrics.Snapshot())
}
