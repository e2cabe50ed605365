package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/parchmail/parchmail/internal/config"
	"github.com/parchmail/parchmail/internal/db"
	"github.com/parchmail/parchmail/internal/domain"
	"github.com/parchmail/parchmail/internal/gateway"
	"github.com/parchmail/parchmail/internal/health"
	"github.com/parchmail/parchmail/internal/issue"
	"github.com/parchmail/parchmail/internal/logging"
	"github.com/parchmail/parchmail/internal/metrics"
	"github.com/parchmail/parchmail/internal/queue"
	"github.com/parchmail/parchmail/internal/tracing"
)

func main() {
	cfg := config.FromEnv()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := logging.New("parchmail-worker")
	logging.SetDefaultService("parchmail-worker")

	shutdown, err := tracing.Init(ctx, "parchmail-worker")
	if err != nil {
		logger.Plain().WithError(err).Fatal("Failed to initialize tracing")
	}
	defer shutdown()

	// Each claim holds its pool connection for the whole attempt.
	maxConns := int32(cfg.Worker.Concurrency + 2)
	pool, err := db.Connect(ctx, cfg.DSN(), maxConns)
	if err != nil {
		logger.Plain().WithError(err).Fatal("db connect failed")
	}
	defer pool.Close()

	sender, err := domain.ParseEmail(cfg.Gateway.SenderEmail)
	if err != nil {
		logger.Plain().WithError(err).Fatal("invalid sender email")
	}
	client, err := gateway.NewClient(cfg.Gateway.BaseURL, sender, cfg.Gateway.ServerToken, cfg.Gateway.SendTimeout)
	if err != nil {
		logger.Plain().WithError(err).Fatal("gateway client setup failed")
	}

	queueStore := queue.NewStore(pool)
	issueStore := issue.NewStore(pool)

	// Prom metrics
	reg := prometheus.NewRegistry()
	metrics.MustRegister(reg)

	// HTTP health/metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", health.HTTPHandler(pool, queueStore.Depth))
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	httpSrv := &http.Server{Addr: cfg.Worker.HTTPPort, Handler: mux}
	go func() {
		logger.Plain().WithField("addr", httpSrv.Addr).Info("worker HTTP server starting")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Plain().WithError(err).Fatal("worker HTTP server failed")
		}
	}()

	startDepthMonitor(ctx, queueStore, logger)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Worker.Concurrency; i++ {
		w := queue.NewWorker(queueStore, issueStore, client, logger, cfg.Worker.PollInterval, cfg.Worker.RetryInterval)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
	}
	logger.Plain().WithField("concurrency", cfg.Worker.Concurrency).Info("worker service started")

	// Graceful stop
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop

	logger.Plain().Info("Shutting down worker service")
	cancel()
	wg.Wait()
	_ = httpSrv.Shutdown(context.Background())
	logger.Plain().Info("worker service stopped")
}

// startDepthMonitor periodically exports the delivery queue depth.
func startDepthMonitor(ctx context.Context, store *queue.Store, logger *logging.Logger) {
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := store.Depth(ctx)
				if err != nil {
					logger.Plain().WithError(err).Error("Failed to read queue depth")
					continue
				}
				metrics.QueueDepth.Set(float64(n))
			}
		}
	}()
}
