package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kubo-market/pix-charge-platform/internal/domain"
	"github.com/kubo-market/pix-charge-platform/internal/oracle"
	"github.com/kubo-market/pix-charge-platform/internal/storage"
)

// ChargeHandler implements the Receiver's public charge-creation and
// charge-read surface (§6), grounded on routes/charges.py: POST arms the
// expiration oracle alongside the Postgres insert, GET re-checks the
// oracle at read time and forces a lazy PENDING->EXPIRED transition if the
// TTL key is gone before ever returning a charge as still payable.
type ChargeHandler struct {
	charges storage.Repository
	oracle  *oracle.Oracle
	ttl     time.Duration
}

// NewChargeHandler builds a ChargeHandler with the receiver's default TTL
// for newly created charges.
func NewChargeHandler(charges storage.Repository, oracleStore *oracle.Oracle, ttl time.Duration) *ChargeHandler {
	return &ChargeHandler{charges: charges, oracle: oracleStore, ttl: ttl}
}

type createChargeRequest struct {
	Value string `json:"value"`
}

// CreateCharge handles POST /payment/charges.
func (h *ChargeHandler) CreateCharge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req createChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Value == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "value is required"})
		return
	}

	value, err := decimal.NewFromString(req.Value)
	if err != nil || !value.IsPositive() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid value"})
		return
	}

	now := time.Now().UTC()
	externalID := generateExternalID()
	charge := domain.NewCharge(externalID, value, now, h.ttl)

	if err := h.charges.Insert(r.Context(), charge); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not create charge"})
		return
	}

	if err := h.oracle.Arm(r.Context(), externalID, h.ttl); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not arm expiration"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":          charge.ID,
		"external_id": charge.ExternalID,
		"status":      charge.Status,
	})
}

// GetCharge handles GET /payment/charges/{id}.
func (h *ChargeHandler) GetCharge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id, ok := chargeIDFromPath(r.URL.Path)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid charge id"})
		return
	}

	charge, err := h.charges.FindByID(r.Context(), id)
	if errors.Is(err, domain.ErrChargeNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "charge not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "persistence failure"})
		return
	}

	// Read-time half of the lazy expiration model (§2): a PENDING charge
	// whose TTL key has already fallen out of the oracle is forced to
	// EXPIRED before it is ever reported back as still payable.
	if charge.Status == domain.StatusPending {
		armed, err := h.oracle.IsArmed(r.Context(), charge.ExternalID)
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "expiration oracle unavailable"})
			return
		}
		if !armed {
			updated, err := h.charges.UpdateStatus(r.Context(), charge.ExternalID, domain.StatusExpired, nil)
			if err == nil {
				charge = updated
			} else if !errors.Is(err, domain.ErrInvalidTransition) {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "persistence failure"})
				return
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":         charge.ID,
		"value":      charge.Value.String(),
		"status":     charge.Status,
		"created_at": charge.CreatedAt,
		"expires_at": charge.ExpiresAt,
	})
}

func chargeIDFromPath(path string) (int64, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 3 {
		return 0, false
	}
	id, err := strconv.ParseInt(parts[len(parts)-1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
