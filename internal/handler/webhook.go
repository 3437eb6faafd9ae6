package handler

import (
	"io"
	"net/http"

	"github.com/kubo-market/pix-charge-platform/internal/webhook"
)

// WebhookHandler wires POST /webhooks/pix to the C6 ingestor pipeline.
type WebhookHandler struct {
	ingestor *webhook.Ingestor
}

// NewWebhookHandler builds a WebhookHandler around an already-constructed
// Ingestor.
func NewWebhookHandler(ingestor *webhook.Ingestor) *WebhookHandler {
	return &WebhookHandler{ingestor: ingestor}
}

// HandlePixWebhook handles POST /webhooks/pix.
func (h *WebhookHandler) HandlePixWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "could not read body"})
		return
	}

	out := h.ingestor.Ingest(
		r.Context(),
		body,
		r.Header.Get("X-Signature"),
		r.Header.Get("X-Timestamp"),
		r.Header.Get("Idempotency-Key"),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(out.StatusCode)
	w.Write(out.Body)
}
