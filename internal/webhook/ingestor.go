// Package webhook implements the Receiver's webhook ingestor (C6): the
// request pipeline behind POST /webhooks/pix, wiring together the signed
// payload codec (C1), idempotency store (C2), expiration oracle (C3),
// charge store (C4) and state machine (C5) exactly as specified in §4.6.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kubo-market/pix-charge-platform/internal/audit"
	"github.com/kubo-market/pix-charge-platform/internal/domain"
	"github.com/kubo-market/pix-charge-platform/internal/idempotency"
	"github.com/kubo-market/pix-charge-platform/internal/oracle"
	"github.com/kubo-market/pix-charge-platform/internal/signing"
	"github.com/kubo-market/pix-charge-platform/internal/storage"
)

// FreshnessWindow is the X-Timestamp tolerance from §4.1.
const FreshnessWindow = 300 * time.Second

// IdempotencyTTL is the TTL a committed idempotency response is cached for.
const IdempotencyTTL = 300 * time.Second

// Outcome is the result of processing one inbound webhook request: the HTTP
// status to return, the JSON body to write, and whether the idempotency
// store should record this outcome (per §9, 2xx always commits; certain
// infra/validation failures deliberately do not so a corrected retry can
// still succeed).
type Outcome struct {
	StatusCode        int
	Body              []byte
	CommitIdempotency bool
}

// Metrics receives outcome counters for each processed webhook. Satisfied by
// *monitor.Metrics; left unset (nil) it is simply skipped.
type Metrics interface {
	RecordConfirmed()
	RecordDuplicateReplay()
	RecordValueMismatch()
	RecordExpiredIgnored()
	RecordAlreadyProcessed()
}

// Ingestor drives the ten-step pipeline of §4.6.
type Ingestor struct {
	secret  []byte
	idem    *idempotency.Store
	oracle  *oracle.Oracle
	charges storage.Repository
	metrics Metrics
	clock   func() time.Time
}

// New builds an Ingestor with the given signing secret and collaborators.
func New(secret []byte, idem *idempotency.Store, oracleStore *oracle.Oracle, charges storage.Repository) *Ingestor {
	return &Ingestor{secret: secret, idem: idem, oracle: oracleStore, charges: charges, clock: time.Now}
}

// WithMetrics attaches an outcome-counter recorder and returns the same
// Ingestor for chaining.
func (ig *Ingestor) WithMetrics(m Metrics) *Ingestor {
	ig.metrics = m
	return ig
}

func (ig *Ingestor) record(fn func(Metrics)) {
	if ig.metrics != nil {
		fn(ig.metrics)
	}
}

// audit emits one structured log line per decision point, carrying
// whatever request_id the access-log middleware already attached to ctx
// (audit.FromContext is a no-op logger when none was attached, e.g. in
// tests that call Ingest directly). Grounded on
// original_source/payment-charges-api/audit/logger.py's per-event audit
// trail.
func (ig *Ingestor) audit(ctx context.Context, externalID string, chargeID int64, outcome string) {
	audit.FromContext(ctx).Info().
		Str("external_id", externalID).
		Int64("charge_id", chargeID).
		Str("outcome", outcome).
		Msg("webhook decision")
}

type inboundPayload struct {
	EventID    string      `json:"event_id"`
	ExternalID string      `json:"external_id"`
	Value      json.Number `json:"value"`
	Status     string      `json:"status"`
}

// Ingest runs the full pipeline against a raw, already-received request: the
// exact body bytes (for signature verification), the signature/timestamp
// headers, and the client's idempotency key.
func (ig *Ingestor) Ingest(ctx context.Context, body []byte, sigHeader, tsHeader, idempotencyKey string) Outcome {
	// Step 1: signature check.
	if err := signing.Verify(ig.secret, body, sigHeader); err != nil {
		ig.audit(ctx, "", 0, "invalid signature")
		return errOutcome(401, "invalid webhook signature")
	}
	if err := signing.CheckFreshness(tsHeader, ig.clock(), FreshnessWindow); err != nil {
		ig.audit(ctx, "", 0, "stale timestamp")
		return errOutcome(401, "stale timestamp")
	}

	// Step 2: idempotency begin.
	if idempotencyKey == "" {
		ig.audit(ctx, "", 0, "idempotency-key missing")
		return errOutcome(400, "idempotency-key missing")
	}
	fresh, cached, err := ig.idem.TryBegin(ctx, idempotencyKey)
	if err != nil {
		ig.audit(ctx, "", 0, "idempotency store unavailable")
		return errOutcome(503, "idempotency store unavailable")
	}
	if !fresh {
		ig.record(func(m Metrics) { m.RecordDuplicateReplay() })
		ig.audit(ctx, "", 0, "duplicate replay")
		return Outcome{StatusCode: 200, Body: cached, CommitIdempotency: false}
	}

	// Step 3: body schema.
	var payload inboundPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		ig.audit(ctx, "", 0, "malformed payload")
		return errOutcome(400, "malformed payload")
	}
	if payload.ExternalID == "" || payload.Value == "" || payload.Status == "" {
		ig.audit(ctx, payload.ExternalID, 0, "missing required fields")
		return errOutcome(400, "missing required fields")
	}

	return ig.commitOrRun(ctx, idempotencyKey, func() Outcome {
		return ig.process(ctx, payload)
	})
}

// process runs steps 4-10 of the pipeline once the envelope has been
// validated and idempotency has begun.
func (ig *Ingestor) process(ctx context.Context, payload inboundPayload) Outcome {
	// Step 4: status filter.
	if payload.Status != domain.WebhookStatusPaid {
		ig.audit(ctx, payload.ExternalID, 0, "ignored: non-paid status")
		return Outcome{StatusCode: 200, Body: jsonMsg("Ignored"), CommitIdempotency: true}
	}

	// Step 5: lookup.
	charge, err := ig.charges.FindByExternalID(ctx, payload.ExternalID)
	if errors.Is(err, domain.ErrChargeNotFound) {
		ig.audit(ctx, payload.ExternalID, 0, "charge not found")
		return errOutcome(404, "charge not found")
	}
	if err != nil {
		ig.audit(ctx, payload.ExternalID, 0, "persistence failure on lookup")
		return errOutcome(500, "persistence failure")
	}

	// Step 6: terminal-state short-circuit.
	if charge.Status.IsTerminal() {
		ig.record(func(m Metrics) { m.RecordAlreadyProcessed() })
		ig.audit(ctx, charge.ExternalID, charge.ID, "already processed")
		return Outcome{StatusCode: 200, Body: jsonMsg("Charge already processed"), CommitIdempotency: true}
	}

	// Step 7: expiration oracle.
	armed, err := ig.oracle.IsArmed(ctx, payload.ExternalID)
	if err != nil {
		ig.audit(ctx, charge.ExternalID, charge.ID, "expiration oracle unavailable")
		return Outcome{StatusCode: 503, Body: jsonErr("Service unavailable"), CommitIdempotency: false}
	}
	if !armed {
		// domain.Transition enforces the §4.5 "not armed" guard for EXPIRED on
		// the copy read in step 5. A race to a terminal state since step 6 is
		// reported by UpdateStatus as ErrInvalidTransition and treated as
		// already handled.
		if err := domain.Transition(charge, domain.StatusExpired, armed, decimal.Decimal{}, ig.clock()); err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
			ig.audit(ctx, charge.ExternalID, charge.ID, "persistence failure on expire")
			return errOutcome(500, "persistence failure")
		}
		if _, err := ig.charges.UpdateStatus(ctx, payload.ExternalID, domain.StatusExpired, nil); err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
			ig.audit(ctx, charge.ExternalID, charge.ID, "persistence failure on expire")
			return errOutcome(500, "persistence failure")
		}
		ig.record(func(m Metrics) { m.RecordExpiredIgnored() })
		ig.audit(ctx, charge.ExternalID, charge.ID, "expired ignored")
		return Outcome{StatusCode: 200, Body: jsonMsg("Expired charge ignored"), CommitIdempotency: true}
	}

	// Step 8: value equality, enforced through the C5 state machine so the
	// armed-and-value-matches guard lives in one place instead of being
	// duplicated ad hoc here.
	value, convErr := decimal.NewFromString(payload.Value.String())
	if convErr != nil {
		ig.record(func(m Metrics) { m.RecordValueMismatch() })
		ig.audit(ctx, charge.ExternalID, charge.ID, "invalid value")
		return Outcome{StatusCode: 400, Body: jsonErr("Invalid value"), CommitIdempotency: false}
	}
	paidAt := ig.clock()
	if err := domain.Transition(charge, domain.StatusPaid, armed, value, paidAt); err != nil {
		ig.record(func(m Metrics) { m.RecordValueMismatch() })
		ig.audit(ctx, charge.ExternalID, charge.ID, "value mismatch")
		return Outcome{StatusCode: 400, Body: jsonErr("Invalid value"), CommitIdempotency: false}
	}

	// Step 9: commit payment.
	_, err = ig.charges.UpdateStatus(ctx, payload.ExternalID, domain.StatusPaid, charge.PaidAt)
	if errors.Is(err, domain.ErrInvalidTransition) {
		// Raced with another confirmed payment/expiry: already processed.
		ig.record(func(m Metrics) { m.RecordAlreadyProcessed() })
		ig.audit(ctx, charge.ExternalID, charge.ID, "already processed (race)")
		return Outcome{StatusCode: 200, Body: jsonMsg("Charge already processed"), CommitIdempotency: true}
	}
	if err != nil {
		ig.audit(ctx, charge.ExternalID, charge.ID, "persistence failure on commit")
		return Outcome{StatusCode: 500, Body: jsonErr("Internal server error"), CommitIdempotency: false}
	}

	// Best-effort disarm happens after the C4 commit above; a crash here is
	// tolerable per §4.5 ordering (the charge already reads back as PAID).
	_ = ig.oracle.Disarm(ctx, payload.ExternalID)
	ig.record(func(m Metrics) { m.RecordConfirmed() })
	ig.audit(ctx, charge.ExternalID, charge.ID, "payment confirmed")

	// Step 10: success.
	return Outcome{StatusCode: 200, Body: jsonMsg("Payment confirmed"), CommitIdempotency: true}
}

// commitOrRun executes fn, then commits its outcome to the idempotency
// store iff the outcome says to.
func (ig *Ingestor) commitOrRun(ctx context.Context, key string, fn func() Outcome) Outcome {
	out := fn()
	if out.CommitIdempotency {
		_ = ig.idem.Commit(ctx, key, out.Body, IdempotencyTTL)
	}
	return out
}

func errOutcome(status int, msg string) Outcome {
	return Outcome{StatusCode: status, Body: jsonErr(msg), CommitIdempotency: false}
}

func jsonMsg(msg string) []byte {
	b, _ := json.Marshal(map[string]string{"message": msg})
	return b
}

func jsonErr(msg string) []byte {
	b, _ := json.Marshal(map[string]string{"error": msg})
	return b
}
