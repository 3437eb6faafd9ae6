package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kubo-market/pix-charge-platform/internal/bank"
	"github.com/kubo-market/pix-charge-platform/internal/dispatcher"
	"github.com/kubo-market/pix-charge-platform/internal/dlq"
	"github.com/kubo-market/pix-charge-platform/internal/domain"
)

// BankHandler implements the Issuer's fake-bank surface (POST /bank/pix/charges,
// POST /bank/pix/pay), grounded on fake-bank-service/routes/pix.py: charges
// are registered in-memory, and paying one dispatches a signed webhook back
// to the merchant with retry/backoff (synchronously, or via the outbox when
// one is wired), falling through to the dead letter queue on exhaustion.
type BankHandler struct {
	registry *bank.Registry
	d        *dispatcher.Dispatcher
	outbox   *dispatcher.Outbox
	dlqStore *dlq.Store
}

// NewBankHandler builds a BankHandler. outbox may be nil, in which case
// payment dispatch runs synchronously on the request goroutine.
func NewBankHandler(registry *bank.Registry, d *dispatcher.Dispatcher, outbox *dispatcher.Outbox, dlqStore *dlq.Store) *BankHandler {
	return &BankHandler{registry: registry, d: d, outbox: outbox, dlqStore: dlqStore}
}

type registerChargeRequest struct {
	ExternalID string `json:"external_id"`
	Value      string `json:"value"`
	WebhookURL string `json:"webhook_url"`
}

// RegisterCharge handles POST /bank/pix/charges.
func (h *BankHandler) RegisterCharge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req registerChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	value, err := decimal.NewFromString(req.Value)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	if _, err := h.registry.Register(req.ExternalID, value, req.WebhookURL); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message":     "Charge registered in bank",
		"external_id": req.ExternalID,
	})
}

type payChargeRequest struct {
	ExternalID string `json:"external_id"`
}

// Pay handles POST /bank/pix/pay: it flips the charge to PAID and dispatches
// the PAID webhook, synchronously or onto the outbox depending on wiring.
func (h *BankHandler) Pay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req payChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ExternalID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	charge, wasAlreadyPaid, err := h.registry.MarkPaid(req.ExternalID)
	if errors.Is(err, bank.ErrChargeNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "charge not found"})
		return
	}

	eventID := "evt_" + req.ExternalID + "_" + time.Now().UTC().Format("20060102150405")
	event := domain.WebhookEvent{
		EventID:    eventID,
		ExternalID: charge.ExternalID,
		Value:      charge.Value,
		Status:     domain.WebhookStatusPaid,
	}

	if !wasAlreadyPaid {
		if h.outbox != nil {
			h.outbox.Enqueue(dispatcher.Job{URL: charge.WebhookURL, Event: event})
		} else {
			res := h.d.Deliver(r.Context(), charge.WebhookURL, event)
			if !res.Delivered {
				_ = h.dlqStore.Enqueue(dlq.Record{
					TsUTC:          time.Now().UTC(),
					EventID:        event.EventID,
					ExternalID:     event.ExternalID,
					URL:            charge.WebhookURL,
					Payload:        event,
					Headers:        dispatcher.StripSignatureHeader(res.Headers),
					LastStatusCode: res.LastStatusCode,
					LastError:      res.LastError,
				})
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":  "PIX processed by bank",
		"event_id": eventID,
	})
}
