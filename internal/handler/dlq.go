package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/kubo-market/pix-charge-platform/internal/dispatcher"
	"github.com/kubo-market/pix-charge-platform/internal/dlq"
)

// DLQHandler implements the Issuer's dead-letter-queue admin surface
// (GET /bank/dlq, POST /bank/dlq/replay), grounded on
// fake-bank-service/routes/dlq.py.
type DLQHandler struct {
	store *dlq.Store
	d     *dispatcher.Dispatcher
}

// NewDLQHandler builds a DLQHandler.
func NewDLQHandler(store *dlq.Store, d *dispatcher.Dispatcher) *DLQHandler {
	return &DLQHandler{store: store, d: d}
}

// List handles GET /bank/dlq?limit=N.
func (h *DLQHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	items := h.store.List(limit)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(items),
		"items": items,
	})
}

type replayRequest struct {
	EventID string `json:"event_id"`
}

// Replay handles POST /bank/dlq/replay: it re-attempts delivery of a
// previously dead-lettered event and marks it replayed on success.
func (h *DLQHandler) Replay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req replayRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.EventID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "event_id is required"})
		return
	}

	record, ok := h.store.GetByEventID(req.EventID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event_id not found in DLQ"})
		return
	}

	res := h.d.Deliver(r.Context(), record.URL, record.Payload)
	if !res.Delivered {
		writeJSON(w, http.StatusBadGateway, map[string]string{"message": "replay_failed", "event_id": req.EventID})
		return
	}

	if err := h.store.MarkReplayed(req.EventID, time.Now().UTC()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not mark replayed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "replayed", "event_id": req.EventID})
}
