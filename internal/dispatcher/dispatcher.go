// Package dispatcher implements the Issuer's reliable webhook delivery
// (C7): build a signed event, POST it with bounded retries and
// exponential backoff plus jitter, and route permanent failures to the
// DLQ (C8). Directly adapted from the original fake-bank-service's
// send_webhook, keeping its defaults and its backoff formula.
package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kubo-market/pix-charge-platform/internal/domain"
	"github.com/kubo-market/pix-charge-platform/internal/signing"
)

// Config holds the retry/backoff knobs from §4.7. All but JitterRatio are
// settable via the Issuer's environment variables; cmd/issuer fixes
// JitterRatio at 0.20.
type Config struct {
	MaxRetries        int
	InitialDelay      time.Duration
	BackoffMultiplier float64
	MaxDelay          time.Duration
	JitterRatio       float64
	Timeout           time.Duration
}

// DefaultConfig matches the spec's defaults: 5 retries, 1s initial delay,
// 2x multiplier, 30s cap, 20% jitter, 5s per-attempt timeout.
func DefaultConfig() Config {
	return Config{
		MaxRetries:        5,
		InitialDelay:      time.Second,
		BackoffMultiplier: 2,
		MaxDelay:          30 * time.Second,
		JitterRatio:       0.20,
		Timeout:           5 * time.Second,
	}
}

// freshnessWindow is the receiver's X-Timestamp tolerance (§4.1); the
// dispatcher must re-sign once an in-flight retry run crosses it.
const freshnessWindow = 300 * time.Second

// Result summarizes the outcome of a Deliver call.
type Result struct {
	Delivered      bool
	Attempts       int
	LastStatusCode int
	LastError      string
	LastBody       []byte // truncated to 1KiB
	Headers        map[string]string
	Body           []byte
}

// Dispatcher delivers signed webhook events over HTTP.
type Dispatcher struct {
	secret []byte
	client *http.Client
	cfg    Config
	log    zerolog.Logger
	clock  func() time.Time
	sleep  func(time.Duration)
	rand   func() float64
}

// New builds a Dispatcher with the given signing secret and config.
func New(secret []byte, cfg Config, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		secret: secret,
		client: &http.Client{},
		cfg:    cfg,
		log:    log,
		clock:  time.Now,
		sleep:  time.Sleep,
		rand:   rand.Float64,
	}
}

// Deliver sends event to url, retrying on network errors and non-2xx
// responses until MaxRetries attempts have been made or a 2xx is observed.
func (d *Dispatcher) Deliver(ctx context.Context, url string, event domain.WebhookEvent) Result {
	body, err := json.Marshal(event)
	if err != nil {
		return Result{LastError: fmt.Sprintf("marshal event: %v", err)}
	}

	firstAttemptAt := d.clock()
	delay := d.cfg.InitialDelay
	requestID := uuid.NewString()

	var res Result
	for attempt := 1; attempt <= d.cfg.MaxRetries; attempt++ {
		// Re-sign if this attempt's clock has drifted past the receiver's
		// freshness window since the body/timestamp were first produced.
		if d.clock().Sub(firstAttemptAt) > freshnessWindow {
			firstAttemptAt = d.clock()
		}
		headers := d.buildHeaders(body, event.EventID, firstAttemptAt)
		headers["X-Request-Id"] = requestID

		status, respBody, err := d.attempt(ctx, url, body, headers)
		res.Attempts = attempt
		res.Headers = headers
		res.Body = body

		if err != nil {
			res.LastError = err.Error()
			res.LastStatusCode = 0
			d.log.Warn().
				Int("attempt", attempt).
				Str("event_id", event.EventID).
				Str("request_id", requestID).
				Err(err).
				Msg("webhook delivery error")
		} else {
			res.LastStatusCode = status
			res.LastBody = truncate(respBody, 1024)
			d.log.Info().
				Int("attempt", attempt).
				Str("event_id", event.EventID).
				Str("request_id", requestID).
				Int("status", status).
				Msg("webhook delivery attempt")

			if status >= 200 && status < 300 {
				res.Delivered = true
				return res
			}
			res.LastError = fmt.Sprintf("non-2xx status %d", status)
		}

		if attempt == d.cfg.MaxRetries {
			break
		}
		d.sleep(d.jittered(delay))
		delay = minDuration(time.Duration(float64(delay)*d.cfg.BackoffMultiplier), d.cfg.MaxDelay)
	}

	return res
}

func (d *Dispatcher) buildHeaders(body []byte, eventID string, signedAt time.Time) map[string]string {
	return map[string]string{
		"Content-Type":    "application/json",
		"X-Signature":     signing.Sign(d.secret, body),
		"X-Timestamp":     fmt.Sprintf("%d", signedAt.Unix()),
		"X-Event-Id":      eventID,
		"Idempotency-Key": eventID,
	}
}

func (d *Dispatcher) attempt(ctx context.Context, url string, body []byte, headers map[string]string) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return resp.StatusCode, respBody, nil
}

// jittered samples uniformly from [-ratio*delay, +ratio*delay] around delay,
// floored at zero, matching the original's _sleep_with_jitter.
func (d *Dispatcher) jittered(delay time.Duration) time.Duration {
	jitter := float64(delay) * d.cfg.JitterRatio
	offset := (d.rand()*2 - 1) * jitter
	out := time.Duration(float64(delay) + offset)
	if out < 0 {
		return 0
	}
	return out
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}

// StripSignatureHeader returns a copy of headers without X-Signature, for
// durable storage (§3 credential-hygiene invariant).
func StripSignatureHeader(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if k == "X-Signature" {
			continue
		}
		out[k] = v
	}
	return out
}
