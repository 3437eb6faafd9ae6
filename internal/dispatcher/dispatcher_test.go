package dispatcher_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kubo-market/pix-charge-platform/internal/dispatcher"
	"github.com/kubo-market/pix-charge-platform/internal/domain"
	"github.com/kubo-market/pix-charge-platform/internal/signing"
)

var secret = []byte("issuer-secret")

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testConfig() dispatcher.Config {
	cfg := dispatcher.DefaultConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond
	return cfg
}

func testEvent() domain.WebhookEvent {
	return domain.WebhookEvent{
		EventID:    "evt_1",
		ExternalID: "ext_1",
		Value:      decimal.RequireFromString("120.00"),
		Status:     "PAID",
	}
}

func TestDeliverSucceedsOnFirstAttempt(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := dispatcher.New(secret, testConfig(), noopLogger())
	res := d.Deliver(context.Background(), srv.URL, testEvent())

	require.True(t, res.Delivered)
	require.Equal(t, 1, res.Attempts)
	require.EqualValues(t, 1, calls)
}

func TestDeliverRetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := dispatcher.New(secret, testConfig(), noopLogger())
	res := d.Deliver(context.Background(), srv.URL, testEvent())

	require.True(t, res.Delivered)
	require.Equal(t, 3, res.Attempts)
}

func TestDeliverExhaustsRetriesAndReportsFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.MaxRetries = 3
	d := dispatcher.New(secret, cfg, noopLogger())
	res := d.Deliver(context.Background(), srv.URL, testEvent())

	require.False(t, res.Delivered)
	require.Equal(t, 3, res.Attempts)
	require.EqualValues(t, 3, calls)
	require.Equal(t, 500, res.LastStatusCode)
}

func TestDeliverSignsBodyVerifiableByReceiver(t *testing.T) {
	var gotSig, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Signature")
		body := make([]byte, r.ContentLength)
		r.Body.Read(body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := dispatcher.New(secret, testConfig(), noopLogger())
	res := d.Deliver(context.Background(), srv.URL, testEvent())

	require.True(t, res.Delivered)
	require.NoError(t, signing.Verify(secret, []byte(gotBody), gotSig))
}

func TestStripSignatureHeaderRemovesOnlySignature(t *testing.T) {
	headers := map[string]string{
		"Content-Type": "application/json",
		"X-Signature":  "sha256=deadbeef",
		"X-Event-Id":   "evt_1",
	}
	stripped := dispatcher.StripSignatureHeader(headers)
	require.NotContains(t, stripped, "X-Signature")
	require.Contains(t, stripped, "X-Event-Id")
}
