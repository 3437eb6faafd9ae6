// Package monitor tracks in-memory counters over the webhook ingestor's
// outcomes, generalizing the idempotency service's duplicate-rate counters
// to the charge pipeline's own decision tree (§4.6): confirmed payments,
// idempotent replays, value mismatches, and expired-charge rejections.
package monitor

import (
	"sync"
	"time"
)

// Metrics tracks in-memory counters for the webhook ingestor.
type Metrics struct {
	mu sync.RWMutex

	TotalWebhooks     int64 `json:"total_webhooks"`
	PaymentsConfirmed int64 `json:"payments_confirmed"`
	DuplicateReplays  int64 `json:"duplicate_replays"`
	ValueMismatches   int64 `json:"value_mismatches"`
	ExpiredIgnored    int64 `json:"expired_ignored"`
	AlreadyProcessed  int64 `json:"already_processed"`

	// Sliding window over anomalous outcomes (every outcome except a
	// confirmed payment: replays, mismatches, expired-ignored and
	// already-processed), the same shape the idempotency service used for
	// its duplicate-rate gauge.
	window []windowEntry
}

type windowEntry struct {
	ts          time.Time
	isAnomalous bool
}

const windowDuration = 5 * time.Minute

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	TotalWebhooks     int64   `json:"total_webhooks"`
	PaymentsConfirmed int64   `json:"payments_confirmed"`
	DuplicateReplays  int64   `json:"duplicate_replays"`
	ValueMismatches   int64   `json:"value_mismatches"`
	ExpiredIgnored    int64   `json:"expired_ignored"`
	AlreadyProcessed  int64   `json:"already_processed"`
	WindowRequests    int     `json:"window_requests_5m"`
	WindowAnomalous   int     `json:"window_anomalous_5m"`
	WindowAnomalyRate float64 `json:"window_anomaly_rate_5m"`
	AnomalyDetected   bool    `json:"anomaly_detected"`
	AnomalyThreshold  float64 `json:"anomaly_threshold"`
}

// NewMetrics creates a new Metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordConfirmed records a successful payment confirmation.
func (m *Metrics) RecordConfirmed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalWebhooks++
	m.PaymentsConfirmed++
	m.addWindow(false)
}

// RecordDuplicateReplay records a webhook that was resolved from the
// idempotency cache rather than reprocessed.
func (m *Metrics) RecordDuplicateReplay() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalWebhooks++
	m.DuplicateReplays++
	m.addWindow(true)
}

// RecordValueMismatch records a webhook rejected for a value that didn't
// match the charge on file.
func (m *Metrics) RecordValueMismatch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalWebhooks++
	m.ValueMismatches++
	m.addWindow(true)
}

// RecordExpiredIgnored records a webhook for a charge the oracle had
// already let expire.
func (m *Metrics) RecordExpiredIgnored() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalWebhooks++
	m.ExpiredIgnored++
	m.addWindow(true)
}

// RecordAlreadyProcessed records a webhook for a charge already terminal.
func (m *Metrics) RecordAlreadyProcessed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalWebhooks++
	m.AlreadyProcessed++
	m.addWindow(true)
}

func (m *Metrics) addWindow(isAnomalous bool) {
	now := time.Now()
	m.window = append(m.window, windowEntry{ts: now, isAnomalous: isAnomalous})
	m.pruneWindow(now)
}

func (m *Metrics) pruneWindow(now time.Time) {
	cutoff := now.Add(-windowDuration)
	i := 0
	for i < len(m.window) && m.window[i].ts.Before(cutoff) {
		i++
	}
	m.window = m.window[i:]
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	cutoff := now.Add(-windowDuration)
	var windowReqs, windowAnomalous int
	for _, e := range m.window {
		if e.ts.After(cutoff) {
			windowReqs++
			if e.isAnomalous {
				windowAnomalous++
			}
		}
	}

	var rate float64
	if windowReqs > 0 {
		rate = float64(windowAnomalous) / float64(windowReqs) * 100
	}

	return MetricsSnapshot{
		TotalWebhooks:     m.TotalWebhooks,
		PaymentsConfirmed: m.PaymentsConfirmed,
		DuplicateReplays:  m.DuplicateReplays,
		ValueMismatches:   m.ValueMismatches,
		ExpiredIgnored:    m.ExpiredIgnored,
		AlreadyProcessed:  m.AlreadyProcessed,
		WindowRequests:    windowReqs,
		WindowAnomalous:   windowAnomalous,
		WindowAnomalyRate: rate,
		AnomalyDetected:   rate > 20.0,
		AnomalyThreshold:  20.0,
	}
}
