// Command issuer runs the fake-bank/webhook-dispatcher process: charge
// registration, PIX payment simulation, reliable webhook dispatch, and the
// dead letter queue admin surface.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/kubo-market/pix-charge-platform/internal/bank"
	"github.com/kubo-market/pix-charge-platform/internal/config"
	"github.com/kubo-market/pix-charge-platform/internal/dispatcher"
	"github.com/kubo-market/pix-charge-platform/internal/dlq"
	"github.com/kubo-market/pix-charge-platform/internal/handler"
)

func main() {
	cfg := config.LoadIssuer()
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "issuer").Logger()

	dlqStore, err := dlq.Open(cfg.DLQPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open dead letter queue")
	}
	defer dlqStore.Close()
	log.Info().Str("path", cfg.DLQPath).Msg("dead letter queue opened")

	dispatchCfg := dispatcher.Config{
		MaxRetries:        cfg.MaxRetries,
		InitialDelay:      cfg.InitialDelay,
		BackoffMultiplier: cfg.BackoffMultiplier,
		MaxDelay:          cfg.MaxDelay,
		JitterRatio:       0.20,
		Timeout:           cfg.Timeout,
	}
	d := dispatcher.New([]byte(cfg.WebhookSecret), dispatchCfg, log)

	registry := bank.NewRegistry()

	var outbox *dispatcher.Outbox
	if cfg.DispatchMode == "outbox" {
		onExhausted := func(job dispatcher.Job, res dispatcher.Result) {
			_ = dlqStore.Enqueue(dlq.Record{
				TsUTC:          time.Now().UTC(),
				EventID:        job.Event.EventID,
				ExternalID:     job.Event.ExternalID,
				URL:            job.URL,
				Payload:        job.Event,
				Headers:        dispatcher.StripSignatureHeader(res.Headers),
				LastStatusCode: res.LastStatusCode,
				LastError:      res.LastError,
			})
		}
		outbox = dispatcher.NewOutbox(d, 4, 256, cfg.DispatchRatePerSec, onExhausted)
		defer outbox.Close()
		log.Info().Msg("dispatching webhooks asynchronously via outbox")
	}

	bankHandler := handler.NewBankHandler(registry, d, outbox, dlqStore)
	dlqHandler := handler.NewDLQHandler(dlqStore, d)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})
	mux.HandleFunc("/bank/pix/charges", bankHandler.RegisterCharge)
	mux.HandleFunc("/bank/pix/pay", bankHandler.Pay)
	mux.HandleFunc("/bank/dlq", dlqHandler.List)
	mux.HandleFunc("/bank/dlq/replay", dlqHandler.Replay)

	var h http.Handler = mux
	h = handler.Logging(log)(h)
	h = handler.Recovery(h)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	log.Info().Str("port", cfg.Port).Str("dispatch_mode", cfg.DispatchMode).Msg("issuer listening")
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server error")
	}
	log.Info().Msg("server stopped")
}
