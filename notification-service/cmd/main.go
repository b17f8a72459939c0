package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/go_eshop/notification-service/internal/config"
	"github.com/fjod/go_eshop/notification-service/internal/consumer"
	"github.com/fjod/go_eshop/notification-service/internal/email"
	h "github.com/fjod/go_eshop/notification-service/internal/http"
	"github.com/fjod/go_eshop/notification-service/internal/inbox"
	"github.com/fjod/go_eshop/pkg/httpx"
	"github.com/fjod/go_eshop/pkg/logger"
	"github.com/fjod/go_eshop/pkg/messaging"
	"github.com/fjod/go_eshop/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "notification-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(serviceName, "info").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Inbox
	connectCtx, cancelConnect := context.WithTimeout(ctx, 10*time.Second)
	pool, err := inbox.Connect(connectCtx, cfg.DatabaseURL)
	cancelConnect()
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := inbox.New(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Error("failed to prepare inbox", "error", err)
		os.Exit(1)
	}

	// Email
	var sender email.Sender
	if cfg.ResendAPIKey != "" {
		sender = email.NewResendSender(cfg.ResendAPIKey, cfg.EmailTimeout, log,
			email.WithBaseURL(cfg.ResendURL), email.WithFrom(cfg.EmailFrom))
		log.Info("email delivery through resend", "from", cfg.EmailFrom)
	} else {
		sender = email.NewLogSender(log)
		log.Warn("RESEND_API_KEY not set, emails will only be logged")
	}

	reg := prometheus.NewRegistry()
	serverMetrics := metrics.NewServerMetrics(reg, serviceName)

	// Kafka consumer
	var wg sync.WaitGroup
	subscriber := messaging.NewSubscriber(
		messaging.NewReader(cfg.CheckoutTopic, cfg.ConsumerGroup, cfg.KafkaBrokers...),
		messaging.RetryPolicy{
			MaxRetries:  cfg.RedeliveryMaxRetries,
			MinInterval: cfg.RedeliveryMinInterval,
			MaxInterval: cfg.RedeliveryMaxInterval,
			Jitter:      cfg.RedeliveryJitter,
		},
		log,
		messaging.WithDeadLetter(messaging.NewWriter(messaging.ErrorTopic(cfg.CheckoutTopic, cfg.ConsumerGroup), cfg.KafkaBrokers...)),
		messaging.WithConsumedCounter(messaging.NewConsumedCounter(reg, serviceName)),
	)
	handler := consumer.NewCheckoutHandler(store, sender, log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		subscriber.Run(ctx, handler.Handle)
	}()
	log.Info("checkout consumer started", "topic", cfg.CheckoutTopic, "group", cfg.ConsumerGroup)

	// HTTP
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(httpx.RequestIDMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(serverMetrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			httpx.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "db_error"})
			return
		}
		httpx.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler(reg))
	h.NewEmailHandler(sender, log, cfg.RequestTimeout).Routes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, serviceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 20 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info("notification service listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down notification service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warn("consumer didn't stop in time")
	}

	subscriber.Close()
	log.Info("notification service stopped")
}
