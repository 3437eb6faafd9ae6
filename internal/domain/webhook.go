package domain

import "github.com/shopspring/decimal"

// WebhookEvent is the payload an Issuer dispatches to a Receiver's
// /webhooks/pix endpoint, and the payload a DLQ record replays verbatim.
type WebhookEvent struct {
	EventID    string          `json:"event_id"`
	ExternalID string          `json:"external_id"`
	Value      decimal.Decimal `json:"value"`
	Status     string          `json:"status"`
}

// WebhookStatusPaid is the only status value the ingestor currently acts
// on; anything else is acknowledged and ignored per §4.6 step 4.
const WebhookStatusPaid = "PAID"
