package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/go_eshop/orders-service/internal/config"
	"github.com/fjod/go_eshop/orders-service/internal/consumer"
	"github.com/fjod/go_eshop/orders-service/internal/dispatcher"
	h "github.com/fjod/go_eshop/orders-service/internal/http"
	"github.com/fjod/go_eshop/orders-service/internal/repository"
	"github.com/fjod/go_eshop/orders-service/internal/service"
	"github.com/fjod/go_eshop/orders-service/internal/uow"
	"github.com/fjod/go_eshop/pkg/httpx"
	"github.com/fjod/go_eshop/pkg/logger"
	"github.com/fjod/go_eshop/pkg/messaging"
	"github.com/fjod/go_eshop/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const serviceName = "orders-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(serviceName, "info").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(serviceName, cfg.LogLevel)
	log.Info("orders-service starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	creds := cfg.Credentials()
	repo, err := repository.NewRepository(ctx, creds)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	if err := repo.RunMigrations(creds); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	log.Info("database migrations completed")

	// Domain events
	events := dispatcher.New(log)
	dispatcher.RegisterLogging(events, log)

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
	ingest := consumer.NewCheckoutHandler(uow.NewFactory(repo, events, consumer.GroupID), log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		subscriber.Run(ctx, ingest.Handle)
	}()
	log.Info("checkout consumer started", "topic", cfg.CheckoutTopic, "group", cfg.ConsumerGroup)

	// HTTP
	orders := service.NewOrderService(repo, uow.NewFactory(repo, events, "orders-api"), log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(httpx.RequestIDMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(serverMetrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler(reg))
	h.NewOrderHandler(orders, log, cfg.RequestTimeout).Routes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, serviceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info("orders service listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	// gRPC health
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Error("failed to listen", "port", cfg.GRPCPort, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)
	go func() {
		log.Info("grpc health listening", "port", cfg.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("grpc server error", "error", err)
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info("shutting down orders service")
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	grpcServer.GracefulStop()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Info("consumer stopped cleanly")
	case <-shutdownCtx.Done():
		log.Warn("consumer didn't stop in time")
	}

	subscriber.Close()
	log.Info("orders service stopped")
}
