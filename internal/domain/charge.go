// Package domain holds the types and pure business rules shared by the
// Receiver and Issuer processes: the Charge entity, its state machine, and
// the webhook/DLQ wire types. Nothing in this package touches I/O.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a Charge. The wire and storage
// representation is always the string value; Status is an internal
// convenience type only (see spec note on ChargeStatus comparisons).
type Status string

const (
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"
	StatusExpired Status = "EXPIRED"
)

// allowedTransitions mirrors the original ALLOWED_TRANSITIONS map: PENDING
// may move to PAID or EXPIRED; both of those are terminal.
var allowedTransitions = map[Status]map[Status]struct{}{
	StatusPending: {StatusPaid: {}, StatusExpired: {}},
	StatusPaid:    {},
	StatusExpired: {},
}

// IsTerminal reports whether s admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusPaid || s == StatusExpired
}

// Charge is the Receiver's durable record of a payment request.
type Charge struct {
	ID         int64
	ExternalID string
	Value      decimal.Decimal
	Status     Status
	CreatedAt  time.Time
	ExpiresAt  time.Time
	PaidAt     *time.Time
}

// NewCharge builds a PENDING charge for externalID whose expiry is ttl after
// now. The caller supplies both the external id and the ttl.
func NewCharge(externalID string, value decimal.Decimal, now time.Time, ttl time.Duration) *Charge {
	return &Charge{
		ExternalID: externalID,
		Value:      value,
		Status:     StatusPending,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
}

// ValueEquals compares amounts with exact decimal semantics. Never compare
// Charge.Value with == or as float64; the spec mandates exact equality.
func (c *Charge) ValueEquals(other decimal.Decimal) bool {
	return c.Value.Equal(other)
}
