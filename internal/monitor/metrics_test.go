package monitor

import (
	"sync"
	"testing"
)

func TestMetrics_RecordConfirmed(t *testing.T) {
	m := NewMetrics()
	m.RecordConfirmed()
	m.RecordConfirmed()
	m.RecordConfirmed()

	snap := m.Snapshot()
	if snap.TotalWebhooks != 3 {
		t.Errorf("expected 3 total, got %d", snap.TotalWebhooks)
	}
	if snap.PaymentsConfirmed != 3 {
		t.Errorf("expected 3 confirmed, got %d", snap.PaymentsConfirmed)
	}
}

func TestMetrics_RecordDuplicateReplay(t *testing.T) {
	m := NewMetrics()
	m.RecordDuplicateReplay()

	snap := m.Snapshot()
	if snap.DuplicateReplays != 1 {
		t.Errorf("expected 1 replay, got %d", snap.DuplicateReplays)
	}
	if snap.TotalWebhooks != 1 {
		t.Errorf("expected 1 total, got %d", snap.TotalWebhooks)
	}
}

func TestMetrics_RecordValueMismatch(t *testing.T) {
	m := NewMetrics()
	m.RecordValueMismatch()

	snap := m.Snapshot()
	if snap.ValueMismatches != 1 {
		t.Errorf("expected 1 mismatch, got %d", snap.ValueMismatches)
	}
}

func TestMetrics_RecordExpiredIgnored(t *testing.T) {
	m := NewMetrics()
	m.RecordExpiredIgnored()

	snap := m.Snapshot()
	if snap.ExpiredIgnored != 1 {
		t.Errorf("expected 1 expired, got %d", snap.ExpiredIgnored)
	}
}

func TestMetrics_RecordAlreadyProcessed(t *testing.T) {
	m := NewMetrics()
	m.RecordAlreadyProcessed()

	snap := m.Snapshot()
	if snap.AlreadyProcessed != 1 {
		t.Errorf("expected 1 already-processed, got %d", snap.AlreadyProcessed)
	}
}

func TestMetrics_SlidingWindowAnomalyRate(t *testing.T) {
	m := NewMetrics()

	// 8 confirmed + 2 replays = 20% rate
	for i := 0; i < 8; i++ {
		m.RecordConfirmed()
	}
	m.RecordDuplicateReplay()
	m.RecordDuplicateReplay()

	snap := m.Snapshot()
	if snap.WindowRequests != 10 {
		t.Errorf("expected 10 window requests, got %d", snap.WindowRequests)
	}
	if snap.WindowAnomalous != 2 {
		t.Errorf("expected 2 window anomalous, got %d", snap.WindowAnomalous)
	}
	// 2/10 = 20%
	if snap.WindowAnomalyRate < 19.9 || snap.WindowAnomalyRate > 20.1 {
		t.Errorf("expected ~20%% rate, got %.2f%%", snap.WindowAnomalyRate)
	}
	if snap.AnomalyDetected {
		t.Error("20% should not trigger anomaly (threshold is >20%)")
	}
}

func TestMetrics_AnomalyDetection(t *testing.T) {
	m := NewMetrics()

	// 5 confirmed + 5 replays = 50% rate -> anomaly
	for i := 0; i < 5; i++ {
		m.RecordConfirmed()
	}
	for i := 0; i < 5; i++ {
		m.RecordDuplicateReplay()
	}

	snap := m.Snapshot()
	if !snap.AnomalyDetected {
		t.Error("50% rate should trigger anomaly")
	}
	if snap.AnomalyThreshold != 20.0 {
		t.Errorf("expected threshold 20, got %.1f", snap.AnomalyThreshold)
	}
}

func TestMetrics_SnapshotEmpty(t *testing.T) {
	m := NewMetrics()
	snap := m.Snapshot()

	if snap.TotalWebhooks != 0 {
		t.Errorf("expected 0, got %d", snap.TotalWebhooks)
	}
	if snap.WindowAnomalyRate != 0 {
		t.Errorf("expected 0 rate, got %.2f", snap.WindowAnomalyRate)
	}
	if snap.AnomalyDetected {
		t.Error("empty metrics should not trigger anomaly")
	}
}

func TestMetrics_ConcurrentAccess(t *testing.T) {
	m := NewMetrics()
	var wg sync.WaitGroup
	wg.Add(50)

	for i := 0; i < 25; i++ {
		go func() {
			defer wg.Done()
			m.RecordConfirmed()
		}()
		go func() {
			defer wg.Done()
			m.RecordDuplicateReplay()
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	if snap.TotalWebhooks != 50 {
		t.Errorf("expected 50 total, got %d", snap.TotalWebhooks)
	}
	if snap.PaymentsConfirmed != 25 {
		t.Errorf("expected 25 confirmed, got %d", snap.PaymentsConfirmed)
	}
	if snap.DuplicateReplays != 25 {
		t.Errorf("expected 25 replays, got %d", snap.DuplicateReplays)
	}
}
