// Command receiver runs the payment-charges API: charge creation/read plus
// the signed webhook ingestor, wired together the way the teacher's
// cmd/server wires its Postgres-backed idempotency service.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/kubo-market/pix-charge-platform/internal/config"
	"github.com/kubo-market/pix-charge-platform/internal/handler"
	"github.com/kubo-market/pix-charge-platform/internal/idempotency"
	"github.com/kubo-market/pix-charge-platform/internal/monitor"
	"github.com/kubo-market/pix-charge-platform/internal/oracle"
	"github.com/kubo-market/pix-charge-platform/internal/seed"
	"github.com/kubo-market/pix-charge-platform/internal/storage"
	"github.com/kubo-market/pix-charge-platform/internal/webhook"
)

func main() {
	cfg := config.LoadReceiver()
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "receiver").Logger()

	db, err := storage.NewPostgresDB(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("connected to postgres")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rdb.Close()
	log.Info().Msg("connected to redis")

	if os.Getenv("SEED_ON_START") == "true" {
		if _, err := db.Exec(seed.GenerateSQL()); err != nil {
			log.Warn().Err(err).Msg("seed data (may already exist)")
		} else {
			log.Info().Msg("seed data loaded")
		}
	}

	repo := storage.NewPostgresRepository(db)
	idemStore := idempotency.New(rdb)
	oracleStore := oracle.New(rdb)
	metrics := monitor.NewMetrics()

	ingestor := webhook.New([]byte(cfg.WebhookSecret), idemStore, oracleStore, repo).WithMetrics(metrics)

	chargeHandler := handler.NewChargeHandler(repo, oracleStore, cfg.DefaultTTL)
	webhookHandler := handler.NewWebhookHandler(ingestor)
	healthHandler := handler.NewHealthHandler(db, func(ctx context.Context) error { return rdb.Ping(ctx).Err() }, metrics)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler.Health)
	mux.HandleFunc("/v1/metrics", healthHandler.Metrics)
	mux.HandleFunc("/webhooks/pix", webhookHandler.HandlePixWebhook)

	authedCharges := handler.RequireAPIKey(cfg.ExternalAPIKey)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			chargeHandler.CreateCharge(w, r)
			return
		}
		chargeHandler.GetCharge(w, r)
	}))
	mux.Handle("/payment/charges", authedCharges)
	mux.Handle("/payment/charges/", authedCharges)

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

	log.Info().Str("port", cfg.Port).Msg("receiver listening")
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server error")
	}
	log.Info().Msg("server stopped")
}
