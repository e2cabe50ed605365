package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/parchmail/parchmail/internal/auth"
	"github.com/parchmail/parchmail/internal/config"
	"github.com/parchmail/parchmail/internal/db"
	"github.com/parchmail/parchmail/internal/health"
	"github.com/parchmail/parchmail/internal/idempotency"
	"github.com/parchmail/parchmail/internal/issue"
	"github.com/parchmail/parchmail/internal/logging"
	"github.com/parchmail/parchmail/internal/metrics"
	"github.com/parchmail/parchmail/internal/publish"
	"github.com/parchmail/parchmail/internal/queue"
	"github.com/parchmail/parchmail/internal/subscribers"
	"github.com/parchmail/parchmail/internal/tracing"
)

func newValidator(cfg config.Config, logger *logging.Logger) *auth.JWTValidator {
	if cfg.Auth.PublicKeyPEM != "" {
		validator, err := auth.NewJWTValidator(cfg.Auth.PublicKeyPEM, cfg.Auth.Issuer, cfg.Auth.Audience)
		if err != nil {
			logger.Plain().WithError(err).Fatal("invalid JWT public key")
		}
		return validator
	}
	if jwksURL := os.Getenv("JWT_JWKS_URL"); jwksURL != "" {
		key, err := auth.FetchJWKS(jwksURL)
		if err != nil {
			logger.Plain().WithError(err).Fatal("failed to fetch JWKS")
		}
		return auth.NewJWTValidatorFromKey(key, cfg.Auth.Issuer, cfg.Auth.Audience)
	}
	logger.Plain().Fatal("no JWT public key configured, set JWT_PUBLIC_KEY or JWT_JWKS_URL")
	return nil
}

func main() {
	cfg := config.FromEnv()
	ctx := context.Background()

	logger := logging.New("parchmail-server")
	logging.SetDefaultService("parchmail-server")

	shutdown, err := tracing.Init(ctx, "parchmail-server")
	if err != nil {
		logger.Plain().WithError(err).Fatal("Failed to initialize tracing")
	}
	defer shutdown()

	pool, err := db.Connect(ctx, cfg.DSN(), 10)
	if err != nil {
		logger.Plain().WithError(err).Fatal("db connect failed")
	}
	defer pool.Close()

	reg := prometheus.NewRegistry()
	metrics.MustRegister(reg)

	issueStore := issue.NewStore(pool)
	queueStore := queue.NewStore(pool)
	subscriberStore := subscribers.NewStore(pool)
	ledger := idempotency.NewLedger(pool)
	coordinator := idempotency.NewCoordinator(ledger)

	publishSvc := publish.NewService(coordinator, issueStore, queueStore, subscriberStore, logger)
	publishHandler := publish.NewHandler(publishSvc, logger)
	subscriptionHandler := subscribers.NewHandler(subscriberStore, logger)

	validator := newValidator(cfg, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", health.HTTPHandler(pool, queueStore.Depth))
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/subscriptions", subscriptionHandler.Subscribe)
	mux.HandleFunc("/subscriptions/confirm", subscriptionHandler.Confirm)
	mux.Handle("/admin/newsletters", validator.HTTPMiddleware(publishHandler))
	mux.Handle("/admin/queue", validator.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, err := queueStore.Depth(r.Context())
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]int64{"pending_deliveries": n})
	})))

	httpSrv := &http.Server{Addr: cfg.HTTPPort, Handler: mux}
	go func() {
		logger.Plain().WithField("addr", httpSrv.Addr).Info("server HTTP listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Plain().WithError(err).Fatal("HTTP serve failed")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop
	_ = httpSrv.Shutdown(context.Background())
	logger.Plain().Info("server stopped")
}
