// Package bank simulates the bank side of a PIX charge: the Issuer process
// registers charges on behalf of a merchant and, on payment, fires a signed
// webhook back to the merchant's receiver. It mirrors the fake-bank-service
// reference implementation's BANK_CHARGES in-memory registry, generalized
// to Go's concurrency-safe idioms instead of a bare dict.
package bank

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPayload = errors.New("invalid payload")
	ErrChargeNotFound = errors.New("charge not found")
)

// Status mirrors the registry's two states; the bank has no concept of
// expiry, only PENDING and PAID.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"
)

// Charge is a bank-side record of a merchant's PIX charge registration.
type Charge struct {
	ExternalID string
	Value      decimal.Decimal
	WebhookURL string
	Status     Status
}

// Registry is the Issuer's in-memory charge book, keyed by external_id. A
// sync.Mutex guards it rather than sync.Map because reads and the
// read-modify-write in MarkPaid both need a consistent view of a single
// entry, which sync.Map's independent atomic ops don't give you for free.
type Registry struct {
	mu      sync.Mutex
	charges map[string]*Charge
}

// NewRegistry returns an empty charge book.
func NewRegistry() *Registry {
	return &Registry{charges: make(map[string]*Charge)}
}

// Register records a new charge the bank will later be told to pay.
func (r *Registry) Register(externalID string, value decimal.Decimal, webhookURL string) (*Charge, error) {
	if externalID == "" || webhookURL == "" || value.IsZero() || value.IsNegative() {
		return nil, ErrInvalidPayload
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c := &Charge{ExternalID: externalID, Value: value, WebhookURL: webhookURL, Status: StatusPending}
	r.charges[externalID] = c
	return c, nil
}

// Get returns a copy of the registered charge, or ErrChargeNotFound.
func (r *Registry) Get(externalID string) (Charge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.charges[externalID]
	if !ok {
		return Charge{}, ErrChargeNotFound
	}
	return *c, nil
}

// MarkPaid flips a registered charge to PAID and returns the charge as it
// stood at the moment of the flip, so the caller can build the webhook
// payload from a single consistent snapshot. Paying an already-PAID charge
// is idempotent: it succeeds and returns the unchanged charge rather than
// re-triggering a webhook, since that dispatch is the caller's job.
func (r *Registry) MarkPaid(externalID string) (Charge, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.charges[externalID]
	if !ok {
		return Charge{}, false, ErrChargeNotFound
	}
	wasAlreadyPaid := c.Status == StatusPaid
	c.Status = StatusPaid
	return *c, wasAlreadyPaid, nil
}
